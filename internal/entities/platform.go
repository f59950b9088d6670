package entities

import "time"

// Supported messaging platforms. The webhook envelope's top-level
// "object" field maps onto these.
const (
	PlatformInstagram = "instagram"
	PlatformFacebook  = "facebook"
	PlatformWhatsApp  = "whatsapp"
)

// KnownPlatform reports whether p is one of the supported platforms.
func KnownPlatform(p string) bool {
	return p == PlatformInstagram || p == PlatformFacebook || p == PlatformWhatsApp
}

// PlatformConnection links a tenant to one external messaging account.
// Rows are written by the OAuth exchange and read by the webhook router
// to resolve tenants and authorize outbound sends.
type PlatformConnection struct {
	ID             int                    `json:"id"`
	TenantID       string                 `json:"tenant_id"`
	Platform       string                 `json:"platform"`
	AccountID      string                 `json:"account_id"`
	AccountName    string                 `json:"account_name"`
	AccessToken    string                 `json:"-"`
	TokenExpiresAt *time.Time             `json:"token_expires_at,omitempty"`
	IsActive       bool                   `json:"is_active"`
	PlatformData   map[string]interface{} `json:"platform_data,omitempty"`
	ConnectedAt    time.Time              `json:"connected_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// WhatsAppPhoneNumberID returns the stored phone number id used for
// Cloud API sends when the webhook metadata is unavailable (outbox path).
func (p *PlatformConnection) WhatsAppPhoneNumberID() string {
	if p.PlatformData == nil {
		return ""
	}
	if v, ok := p.PlatformData["waba_id"].(string); ok {
		return v
	}
	return ""
}
