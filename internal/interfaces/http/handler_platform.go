package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dmasistan/internal/entities"
)

// ListPlatforms returns the tenant's platform connections. Access
// tokens never leave the server; the entity hides them from JSON.
func (h *Handler) ListPlatforms(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	connections, err := h.platforms.ListByTenant(c.Request.Context(), tenantID)
	if err != nil {
		h.log.Error().Err(err).Msg("platform list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load platforms"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"platforms": connections})
}

// ExchangePlatform completes the Meta OAuth flow for one platform.
// Errors come back as 200 payloads so the dashboard can surface the
// provider's message instead of a generic failure.
func (h *Handler) ExchangePlatform(c *gin.Context) {
	tenantID := c.GetString("tenant_id")

	var req struct {
		Code        string `json:"code"`
		Platform    string `json:"platform"`
		RedirectURI string `json:"redirect_uri"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Code == "" || !entities.KnownPlatform(req.Platform) {
		c.JSON(http.StatusOK, gin.H{"error": "code and a supported platform are required"})
		return
	}

	conn, err := h.connector.Connect(c.Request.Context(), tenantID, req.Platform, req.Code, req.RedirectURI)
	if err != nil {
		h.log.Error().Err(err).Str("platform", req.Platform).Msg("oauth exchange failed")
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"platform":     conn.Platform,
		"account_name": conn.AccountName,
		"account_id":   conn.AccountID,
	})
}

// DisconnectPlatform deactivates a connection without deleting its
// conversation history.
func (h *Handler) DisconnectPlatform(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	platform := c.Param("platform")

	if !entities.KnownPlatform(platform) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported platform"})
		return
	}
	if err := h.platforms.Deactivate(c.Request.Context(), tenantID, platform); err != nil {
		h.log.Error().Err(err).Str("platform", platform).Msg("disconnect failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to disconnect platform"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}
