package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dmasistan/internal/entities"
)

type ConversationRepository struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// FindOrCreateOpen returns the open conversation for a contact,
// creating it in the same statement when none exists. The upsert rides
// the partial unique index on open conversations, so two concurrent
// webhook deliveries for the same contact converge on one row.
func (r *ConversationRepository) FindOrCreateOpen(ctx context.Context, tenantID, platform, senderID, contactName string) (*entities.Conversation, error) {
	conv := &entities.Conversation{
		TenantID: tenantID,
		Platform: platform,
		SenderID: senderID,
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO conversations (id, tenant_id, platform, sender_id, contact_name, status)
		VALUES ($1, $2, $3, $4, $5, 'open')
		ON CONFLICT (tenant_id, platform, sender_id) WHERE status = 'open'
		DO UPDATE SET contact_name = CASE
			WHEN EXCLUDED.contact_name <> '' THEN EXCLUDED.contact_name
			ELSE conversations.contact_name
		END
		RETURNING id, contact_name, status, last_message, last_message_at, created_at
	`, uuid.NewString(), tenantID, platform, senderID, contactName).Scan(
		&conv.ID, &conv.ContactName, &conv.Status, &conv.LastMessage, &conv.LastMessageAt, &conv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// GetByID returns a conversation scoped to its tenant, or nil
func (r *ConversationRepository) GetByID(ctx context.Context, tenantID, id string) (*entities.Conversation, error) {
	var conv entities.Conversation
	err := r.db.QueryRow(ctx, `
		SELECT id, tenant_id, platform, sender_id, contact_name, status,
		       last_message, last_message_at, created_at
		FROM conversations
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID).Scan(&conv.ID, &conv.TenantID, &conv.Platform, &conv.SenderID,
		&conv.ContactName, &conv.Status, &conv.LastMessage, &conv.LastMessageAt, &conv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListByTenant returns a tenant's conversations, most recent activity first
func (r *ConversationRepository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]entities.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, tenant_id, platform, sender_id, contact_name, status,
		       last_message, last_message_at, created_at
		FROM conversations
		WHERE tenant_id = $1
		ORDER BY last_message_at DESC
		LIMIT $2
	`, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := []entities.Conversation{}
	for rows.Next() {
		var conv entities.Conversation
		if err := rows.Scan(&conv.ID, &conv.TenantID, &conv.Platform, &conv.SenderID,
			&conv.ContactName, &conv.Status, &conv.LastMessage, &conv.LastMessageAt, &conv.CreatedAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

// Touch updates the conversation preview after a new message
func (r *ConversationRepository) Touch(ctx context.Context, id, lastMessage string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations SET last_message = $2, last_message_at = NOW()
		WHERE id = $1
	`, id, lastMessage)
	return err
}

// UpdateStatus moves a conversation between open/closed/pending
func (r *ConversationRepository) UpdateStatus(ctx context.Context, tenantID, id, status string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations SET status = $3
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID, status)
	return err
}
