package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"dmasistan/internal/infrastructure"
	"dmasistan/internal/usecases"
)

// VerifyWebhook answers Meta's subscription handshake: echo the
// challenge when the verify token matches, 403 otherwise.
func (h *Handler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.cfg.MetaVerifyToken {
		h.log.Info().Msg("webhook verified")
		c.String(http.StatusOK, challenge)
		return
	}
	c.String(http.StatusForbidden, "Forbidden")
}

// ReceiveWebhook ingests one Meta delivery. The provider retries on
// non-2xx, so everything after a successful parse answers 200; only an
// unparseable body gets a 500.
func (h *Handler) ReceiveWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusInternalServerError, "Processing error: "+err.Error())
		return
	}

	signature := c.GetHeader("x-hub-signature-256")
	if h.cfg.MetaAppSecret != "" {
		valid := infrastructure.VerifySignature(body, signature, h.cfg.MetaAppSecret)
		if !valid {
			if h.cfg.SignatureStrict {
				h.log.Warn().Msg("rejecting webhook with invalid signature")
				c.String(http.StatusForbidden, "Invalid signature")
				return
			}
			h.log.Warn().Msg("invalid webhook signature, processing anyway")
		}
	}

	events, err := usecases.NormalizeWebhook(body)
	if err != nil {
		h.log.Error().Err(err).Msg("webhook parse failed")
		c.String(http.StatusInternalServerError, "Processing error: "+err.Error())
		return
	}

	for _, ev := range events {
		// One bad event must not fail the delivery; Meta would retry
		// the whole batch and duplicate the good ones.
		if err := h.processor.ProcessEvent(c.Request.Context(), ev); err != nil {
			h.log.Error().Err(err).
				Str("platform", ev.Platform).
				Str("sender_id", ev.SenderID).
				Msg("event processing failed")
		}
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// InvokeAIReply generates a reply for a caller-managed conversation.
func (h *Handler) InvokeAIReply(c *gin.Context) {
	var req struct {
		ConversationID string `json:"conversation_id"`
		UserID         string `json:"user_id"`
		TenantID       string `json:"tenant_id"`
		Message        string `json:"message"`
		Platform       string `json:"platform"`
		SenderID       string `json:"sender_id"`
		SenderName     string `json:"sender_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	// Callers identify the tenant as user_id; tenant_id is accepted too.
	tenantID := req.UserID
	if tenantID == "" {
		tenantID = req.TenantID
	}
	if req.ConversationID == "" || tenantID == "" || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversation_id, user_id and message are required"})
		return
	}

	result, err := h.processor.InvokeAIReply(c.Request.Context(), tenantID, req.ConversationID,
		req.Platform, req.SenderID, req.SenderName, SanitizeString(req.Message))
	if err != nil {
		if errors.Is(err, usecases.ErrAssistantDisabled) {
			c.JSON(http.StatusOK, gin.H{"skipped": true, "reason": "AI kapalı"})
			return
		}
		var rle *usecases.RateLimitError
		if errors.As(err, &rle) {
			c.JSON(http.StatusOK, gin.H{
				"error": "rate_limit",
				"usage": gin.H{"total": rle.Limit, "used": rle.Used},
			})
			return
		}
		h.log.Error().Err(err).Msg("ai reply failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"reply":           result.Reply,
		"message_id":      result.MessageID,
		"conversation_id": result.ConversationID,
		"usage":           result.Usage,
	})
}
