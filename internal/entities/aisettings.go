package entities

import "time"

// Assistant tone presets selectable per tenant.
const (
	ToneProfessional = "professional"
	ToneFriendly     = "friendly"
	ToneFormal       = "formal"
	ToneCasual       = "casual"
)

// AISettings is the per-tenant assistant configuration. is_active=false
// is a hard stop for auto-replies on every connected platform.
type AISettings struct {
	TenantID     string    `json:"tenant_id"`
	IsActive     bool      `json:"is_active"`
	BusinessName string    `json:"business_name"`
	Tone         string    `json:"tone"`
	Language     string    `json:"language"`
	CustomPrompt string    `json:"custom_prompt"`
	BotName      string    `json:"bot_name"`
	UpdatedAt    time.Time `json:"updated_at"`
}
