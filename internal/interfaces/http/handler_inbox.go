package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dmasistan/internal/entities"
	"dmasistan/internal/usecases"
)

// ListConversations returns the tenant's inbox, most recent first.
func (h *Handler) ListConversations(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	conversations, err := h.conversations.ListByTenant(c.Request.Context(), tenantID, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("conversation list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// ListMessages returns one conversation's history, oldest first.
func (h *Handler) ListMessages(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	conversationID := c.Param("id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	conv, err := h.conversations.GetByID(c.Request.Context(), tenantID, conversationID)
	if err != nil {
		h.log.Error().Err(err).Msg("conversation lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversation"})
		return
	}
	if conv == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	messages, err := h.messages.ListByConversation(c.Request.Context(), tenantID, conversationID, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("message list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv, "messages": messages})
}

// SendMessage delivers an operator-written message into a conversation.
func (h *Handler) SendMessage(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	conversationID := c.Param("id")

	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req.Content = SanitizeString(req.Content)
	if !ValidateLength(req.Content, 1, MaxMessageLength) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message content is empty or too long"})
		return
	}

	msg, err := h.processor.SendManual(c.Request.Context(), tenantID, conversationID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, usecases.ErrConversationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		case errors.Is(err, usecases.ErrNoConnection):
			c.JSON(http.StatusConflict, gin.H{"error": "Platform is not connected"})
		default:
			h.log.Error().Err(err).Msg("manual send failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// UpdateConversationStatus moves a conversation between open/closed/pending.
func (h *Handler) UpdateConversationStatus(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	conversationID := c.Param("id")

	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Status != entities.ConversationOpen && req.Status != entities.ConversationClosed && req.Status != entities.ConversationPending {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	conv, err := h.conversations.GetByID(c.Request.Context(), tenantID, conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversation"})
		return
	}
	if conv == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	if err := h.conversations.UpdateStatus(c.Request.Context(), tenantID, conversationID, req.Status); err != nil {
		h.log.Error().Err(err).Msg("status update failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

// GetAISettings returns the tenant's assistant settings, with defaults
// for tenants that never saved any.
func (h *Handler) GetAISettings(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	settings, err := h.settings.Get(c.Request.Context(), tenantID)
	if err != nil {
		h.log.Error().Err(err).Msg("settings lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load settings"})
		return
	}
	if settings == nil {
		settings = &entities.AISettings{
			TenantID: tenantID,
			IsActive: true,
			Tone:     entities.ToneProfessional,
			Language: "tr",
		}
	}
	c.JSON(http.StatusOK, settings)
}

// SaveAISettings upserts the tenant's assistant settings.
func (h *Handler) SaveAISettings(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var req entities.AISettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if _, ok := map[string]bool{
		entities.ToneProfessional: true,
		entities.ToneFriendly:     true,
		entities.ToneFormal:       true,
		entities.ToneCasual:       true,
		"":                        true,
	}[req.Tone]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tone"})
		return
	}
	if !ValidateLength(req.BusinessName, 0, MaxBusinessNameLength) || !ValidateLength(req.CustomPrompt, 0, MaxCustomPromptLength) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Field too long"})
		return
	}

	req.TenantID = tenantID
	req.BusinessName = SanitizeString(req.BusinessName)
	req.CustomPrompt = SanitizeString(req.CustomPrompt)
	req.BotName = SanitizeString(req.BotName)
	if req.Tone == "" {
		req.Tone = entities.ToneProfessional
	}
	if req.Language == "" {
		req.Language = "tr"
	}

	if err := h.settings.Upsert(c.Request.Context(), &req); err != nil {
		h.log.Error().Err(err).Msg("settings save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save settings"})
		return
	}
	c.JSON(http.StatusOK, &req)
}

// GetUsage returns today's quota status and recent history.
func (h *Handler) GetUsage(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	today, err := h.usage.Today(c.Request.Context(), tenantID)
	if err != nil {
		h.log.Error().Err(err).Msg("usage lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load usage"})
		return
	}
	history, err := h.usage.History(c.Request.Context(), tenantID, days)
	if err != nil {
		h.log.Error().Err(err).Msg("usage history failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load usage"})
		return
	}

	limit := h.cfg.DailyLimit(today.Plan)
	c.JSON(http.StatusOK, gin.H{
		"usage":   entities.QuotaStatus{Total: limit, Used: today.MessageCount},
		"plan":    today.Plan,
		"history": history,
	})
}
