package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dmasistan/internal/entities"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append inserts one message into the ledger, filling in id and
// created_at on the passed struct. A pre-set CreatedAt wins, so inbound
// rows carry the provider's send time rather than our receive time.
func (r *MessageRepository) Append(ctx context.Context, msg *entities.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.DeliveryStatus == "" {
		msg.DeliveryStatus = entities.DeliveryNone
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, tenant_id, content, direction,
		                      is_ai, platform, sender_id, delivery_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, msg.ID, msg.ConversationID, msg.TenantID, msg.Content, msg.Direction,
		msg.IsAI, msg.Platform, msg.SenderID, msg.DeliveryStatus, msg.CreatedAt)
	return err
}

// RecentWindow returns the newest messages of a conversation in
// chronological order, capped at limit. This is the model context
// window, so ordering matters: oldest first.
func (r *MessageRepository) RecentWindow(ctx context.Context, conversationID string, limit int) ([]entities.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, conversation_id, tenant_id, content, direction, is_ai,
		       platform, sender_id, delivery_status, delivery_attempts, delivered_at, created_at
		FROM (
			SELECT * FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ListByConversation returns a conversation's full history, oldest first
func (r *MessageRepository) ListByConversation(ctx context.Context, tenantID, conversationID string, limit int) ([]entities.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, conversation_id, tenant_id, content, direction, is_ai,
		       platform, sender_id, delivery_status, delivery_attempts, delivered_at, created_at
		FROM messages
		WHERE conversation_id = $1 AND tenant_id = $2
		ORDER BY created_at ASC
		LIMIT $3
	`, conversationID, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ListPendingOutbound returns outbound rows still awaiting delivery,
// skipping anything newer than the grace period so the retry worker
// never races the in-flight first attempt.
func (r *MessageRepository) ListPendingOutbound(ctx context.Context, grace time.Duration, maxAttempts, limit int) ([]entities.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, conversation_id, tenant_id, content, direction, is_ai,
		       platform, sender_id, delivery_status, delivery_attempts, delivered_at, created_at
		FROM messages
		WHERE direction = 'outbound'
		  AND delivery_status = 'pending'
		  AND delivery_attempts < $2
		  AND created_at < NOW() - make_interval(secs => $1)
		ORDER BY created_at ASC
		LIMIT $3
	`, grace.Seconds(), maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// MarkDelivered finalizes a successful send
func (r *MessageRepository) MarkDelivered(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE messages
		SET delivery_status = 'sent', delivered_at = NOW(),
		    delivery_attempts = delivery_attempts + 1
		WHERE id = $1
	`, id)
	return err
}

// RecordAttempt counts a failed send, leaving the row pending for retry
func (r *MessageRepository) RecordAttempt(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE messages SET delivery_attempts = delivery_attempts + 1
		WHERE id = $1
	`, id)
	return err
}

// MarkDeliveryFailed gives up on a row after too many attempts
func (r *MessageRepository) MarkDeliveryFailed(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE messages SET delivery_status = 'failed'
		WHERE id = $1
	`, id)
	return err
}

func scanMessages(rows pgx.Rows) ([]entities.Message, error) {
	messages := []entities.Message{}
	for rows.Next() {
		var m entities.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.TenantID, &m.Content, &m.Direction,
			&m.IsAI, &m.Platform, &m.SenderID, &m.DeliveryStatus, &m.DeliveryAttempts,
			&m.DeliveredAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
