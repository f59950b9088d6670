package entities

// DailyUsage is the per-tenant, per-day AI reply counter. A row is
// created lazily on first use each day; the date rollover is the
// implicit quota reset. Plan is maintained by the billing collaborator.
type DailyUsage struct {
	TenantID     string `json:"tenant_id"`
	Date         string `json:"date"` // YYYY-MM-DD
	MessageCount int    `json:"message_count"`
	Plan         string `json:"plan"`
}

// QuotaStatus is the wire shape returned alongside rate-limit results.
type QuotaStatus struct {
	Total int `json:"total"`
	Used  int `json:"used"`
}
