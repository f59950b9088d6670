package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dmasistan/internal/entities"
)

type AISettingsRepository struct {
	db *pgxpool.Pool
}

func NewAISettingsRepository(db *pgxpool.Pool) *AISettingsRepository {
	return &AISettingsRepository{db: db}
}

// Get returns a tenant's assistant settings, or nil when the tenant has
// never saved any. Callers fall back to defaults on nil.
func (r *AISettingsRepository) Get(ctx context.Context, tenantID string) (*entities.AISettings, error) {
	var s entities.AISettings
	err := r.db.QueryRow(ctx, `
		SELECT tenant_id, is_active, business_name, tone, language,
		       custom_prompt, bot_name, updated_at
		FROM ai_settings
		WHERE tenant_id = $1
	`, tenantID).Scan(&s.TenantID, &s.IsActive, &s.BusinessName, &s.Tone,
		&s.Language, &s.CustomPrompt, &s.BotName, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert saves a tenant's assistant settings
func (r *AISettingsRepository) Upsert(ctx context.Context, s *entities.AISettings) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO ai_settings (tenant_id, is_active, business_name, tone,
		                         language, custom_prompt, bot_name, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (tenant_id)
		DO UPDATE SET
			is_active = EXCLUDED.is_active,
			business_name = EXCLUDED.business_name,
			tone = EXCLUDED.tone,
			language = EXCLUDED.language,
			custom_prompt = EXCLUDED.custom_prompt,
			bot_name = EXCLUDED.bot_name,
			updated_at = NOW()
	`, s.TenantID, s.IsActive, s.BusinessName, s.Tone, s.Language, s.CustomPrompt, s.BotName)
	return err
}
