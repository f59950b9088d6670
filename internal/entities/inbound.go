package entities

import "time"

// InboundEvent is the canonical form of one customer message extracted
// from a provider webhook delivery, regardless of wire shape.
type InboundEvent struct {
	Platform string
	// ExternalAccountID identifies the receiving account on the provider
	// side: page/IG account id for Messenger payloads, phone_number_id
	// for WhatsApp.
	ExternalAccountID string
	SenderID          string
	SenderName        string
	Text              string
	SentAt            time.Time
	// ProviderMessageID is the provider's own message id; used for the
	// WhatsApp mark-read call.
	ProviderMessageID string
	// PhoneNumberID routes the WhatsApp reply back through the number
	// that received the message.
	PhoneNumberID string
}
