package entities

import "time"

// Message direction relative to the tenant.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Delivery states for outbound messages. Inbound rows stay at "none".
// "pending" rows are picked up by the outbox worker until they are
// delivered or exhaust their attempts.
const (
	DeliveryNone    = "none"
	DeliveryPending = "pending"
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
)

// Message is one append-only ledger row tied to a conversation. Rows are
// never mutated except for outbound delivery bookkeeping.
type Message struct {
	ID               string     `json:"id"`
	ConversationID   string     `json:"conversation_id"`
	TenantID         string     `json:"tenant_id"`
	Content          string     `json:"content"`
	Direction        string     `json:"direction"`
	IsAI             bool       `json:"is_ai"`
	Platform         string     `json:"platform"`
	SenderID         string     `json:"sender_id,omitempty"`
	DeliveryStatus   string     `json:"delivery_status"`
	DeliveryAttempts int        `json:"delivery_attempts"`
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ChatTurn is one prompt-history entry for the model call.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRole maps ledger direction to the model's chat role: outbound rows
// were spoken by the assistant, inbound rows by the customer.
func (m Message) ChatRole() string {
	if m.Direction == DirectionOutbound {
		return "assistant"
	}
	return "user"
}
