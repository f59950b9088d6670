package entities

import "time"

// Conversation statuses. Only "open" threads receive auto-replies; the
// dashboard moves threads to closed/pending.
const (
	ConversationOpen    = "open"
	ConversationClosed  = "closed"
	ConversationPending = "pending"
)

// Conversation is a thread between a tenant and one external contact on
// one platform. At most one open conversation exists per
// (tenant, platform, sender) — enforced by a partial unique index.
type Conversation struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenant_id"`
	Platform      string    `json:"platform"`
	SenderID      string    `json:"sender_id"`
	ContactName   string    `json:"contact_name"`
	Status        string    `json:"status"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
}
