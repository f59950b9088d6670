package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"dmasistan/internal/config"
	"dmasistan/internal/interfaces"
	"dmasistan/internal/usecases"
)

type Handler struct {
	processor     *usecases.WebhookProcessor
	connector     *usecases.PlatformConnector
	conversations interfaces.ConversationStore
	messages      interfaces.MessageLedger
	platforms     interfaces.PlatformStore
	settings      interfaces.AISettingsStore
	usage         interfaces.UsageStore
	cfg           config.Config
	log           zerolog.Logger
}

func NewHandler(processor *usecases.WebhookProcessor, connector *usecases.PlatformConnector,
	conversations interfaces.ConversationStore, messages interfaces.MessageLedger,
	platforms interfaces.PlatformStore, settings interfaces.AISettingsStore,
	usage interfaces.UsageStore, cfg config.Config, log zerolog.Logger) *Handler {
	return &Handler{
		processor:     processor,
		connector:     connector,
		conversations: conversations,
		messages:      messages,
		platforms:     platforms,
		settings:      settings,
		usage:         usage,
		cfg:           cfg,
		log:           log.With().Str("component", "http").Logger(),
	}
}

func SetupRoutes(r *gin.Engine, h *Handler, middleware *Middleware) {
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(10 << 20)) // 10MB max request size
	r.Use(middleware.CORSMiddleware())

	// Public webhook routes. Meta calls GET once for the handshake and
	// POSTs every delivery afterwards.
	r.GET("/webhook/meta", h.VerifyWebhook)
	r.POST("/webhook/meta", h.ReceiveWebhook)

	// Service-to-service reply generation. Authenticated like the API
	// but the tenant comes from the body, not the token subject.
	internal := r.Group("/internal")
	internal.Use(middleware.AuthRequired())
	{
		internal.POST("/ai-reply", h.InvokeAIReply)
	}

	// Tenant dashboard API
	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerTenant(rate.Limit(5), 10))
	{
		api.GET("/conversations", h.ListConversations)
		api.GET("/conversations/:id/messages", h.ListMessages)
		api.POST("/conversations/:id/send", h.SendMessage)
		api.PUT("/conversations/:id/status", h.UpdateConversationStatus)

		api.GET("/ai-settings", h.GetAISettings)
		api.PUT("/ai-settings", h.SaveAISettings)

		api.GET("/usage", h.GetUsage)

		api.GET("/platforms", h.ListPlatforms)
		api.POST("/platforms/exchange", h.ExchangePlatform)
		api.DELETE("/platforms/:platform", h.DisconnectPlatform)
	}
}
