package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"dmasistan/internal/config"
	"dmasistan/internal/infrastructure"
	"dmasistan/internal/interfaces/http"
	"dmasistan/internal/repository"
	"dmasistan/internal/usecases"
)

func main() {
	// .env is optional; production injects real env vars.
	_ = godotenv.Load()

	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	// Connect to PostgreSQL
	pgClient, err := infrastructure.NewPostgresClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pgClient.Close()

	// Initialize Repositories
	platformRepo := repository.NewPlatformRepository(pgClient.Pool)
	conversationRepo := repository.NewConversationRepository(pgClient.Pool)
	messageRepo := repository.NewMessageRepository(pgClient.Pool)
	settingsRepo := repository.NewAISettingsRepository(pgClient.Pool)
	usageRepo := repository.NewUsageRepository(pgClient.Pool)

	// Outbound clients
	openaiClient := infrastructure.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	metaClient := infrastructure.NewMetaClient(cfg.MetaAppID, cfg.MetaAppSecret, cfg.GraphBaseURL)
	sendLimiter := infrastructure.NewMessageRateLimiter(cfg.ReplyRate, cfg.ReplyBurst)

	// Pipeline
	responder := usecases.NewResponder(openaiClient, settingsRepo, messageRepo, usageRepo, cfg, log)
	dispatcher := usecases.NewDispatcher(metaClient, messageRepo, sendLimiter, cfg.OutboxMaxAttempts, log)
	processor := usecases.NewWebhookProcessor(platformRepo, conversationRepo, messageRepo,
		responder, dispatcher, metaClient, metaClient, log)
	connector := usecases.NewPlatformConnector(metaClient, platformRepo, log)

	// Outbox redelivery worker
	outbox := usecases.NewOutboxWorker(messageRepo, platformRepo, dispatcher,
		cfg.OutboxGrace, cfg.OutboxMaxAttempts, cfg.OutboxBatchSize, log)
	if err := outbox.Start(cfg.OutboxSchedule); err != nil {
		log.Fatal().Err(err).Msg("invalid outbox schedule")
	}
	defer outbox.Stop()

	// HTTP server
	handler := http.NewHandler(processor, connector, conversationRepo, messageRepo,
		platformRepo, settingsRepo, usageRepo, cfg, log)
	authMiddleware := http.NewMiddleware(cfg.JWTSecret)

	r := gin.Default()
	http.SetupRoutes(r, handler, authMiddleware)

	log.Info().Str("addr", cfg.HTTPAddr).Msg("starting http server")
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
