package interfaces

import (
	"context"
	"time"

	"dmasistan/internal/entities"
)

type AIClient interface {
	Complete(ctx context.Context, system string, history []entities.ChatTurn, userMessage string) (string, error)
}

// ReplySender delivers generated replies back through the provider
type ReplySender interface {
	SendMessengerText(ctx context.Context, recipientID, text, accessToken string) error
	SendWhatsAppText(ctx context.Context, phoneNumberID, to, text, accessToken string) error
}

// ProfileFetcher resolves display names for Messenger-family senders
type ProfileFetcher interface {
	FetchSenderName(ctx context.Context, senderID, accessToken string) (string, error)
}

// ReadMarker flags inbound WhatsApp messages as read
type ReadMarker interface {
	MarkWhatsAppRead(ctx context.Context, phoneNumberID, messageID, accessToken string) error
}

type PlatformStore interface {
	FindActiveByPlatform(ctx context.Context, platform string) (*entities.PlatformConnection, error)
	FindByTenantAndPlatform(ctx context.Context, tenantID, platform string) (*entities.PlatformConnection, error)
	ListByTenant(ctx context.Context, tenantID string) ([]entities.PlatformConnection, error)
	Upsert(ctx context.Context, conn *entities.PlatformConnection) error
	Deactivate(ctx context.Context, tenantID, platform string) error
}

type ConversationStore interface {
	FindOrCreateOpen(ctx context.Context, tenantID, platform, senderID, contactName string) (*entities.Conversation, error)
	GetByID(ctx context.Context, tenantID, id string) (*entities.Conversation, error)
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]entities.Conversation, error)
	Touch(ctx context.Context, id, lastMessage string) error
	UpdateStatus(ctx context.Context, tenantID, id, status string) error
}

type MessageLedger interface {
	Append(ctx context.Context, msg *entities.Message) error
	RecentWindow(ctx context.Context, conversationID string, limit int) ([]entities.Message, error)
	ListByConversation(ctx context.Context, tenantID, conversationID string, limit int) ([]entities.Message, error)
	ListPendingOutbound(ctx context.Context, grace time.Duration, maxAttempts, limit int) ([]entities.Message, error)
	MarkDelivered(ctx context.Context, id string) error
	RecordAttempt(ctx context.Context, id string) error
	MarkDeliveryFailed(ctx context.Context, id string) error
}

type AISettingsStore interface {
	Get(ctx context.Context, tenantID string) (*entities.AISettings, error)
	Upsert(ctx context.Context, s *entities.AISettings) error
}

type UsageStore interface {
	Today(ctx context.Context, tenantID string) (*entities.DailyUsage, error)
	Increment(ctx context.Context, tenantID string) error
	History(ctx context.Context, tenantID string, days int) ([]entities.DailyUsage, error)
}
