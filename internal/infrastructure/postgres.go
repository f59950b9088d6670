package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}

	// Auto-migrate schema
	if err := client.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (p *PostgresClient) Migrate() error {
	ctx := context.Background()

	// Platform connections (one per tenant+platform, written by OAuth exchange)
	_, err := p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS platforms (
			id SERIAL PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			platform VARCHAR(20) NOT NULL,
			account_id VARCHAR(128) NOT NULL DEFAULT '',
			account_name VARCHAR(256) NOT NULL DEFAULT '',
			access_token TEXT NOT NULL DEFAULT '',
			token_expires_at TIMESTAMPTZ,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			platform_data JSONB NOT NULL DEFAULT '{}',
			connected_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (tenant_id, platform)
		);
	`)
	if err != nil {
		return fmt.Errorf("create platforms table: %w", err)
	}

	// Conversations
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			platform VARCHAR(20) NOT NULL,
			sender_id VARCHAR(128) NOT NULL,
			contact_name VARCHAR(256) NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'open',
			last_message TEXT NOT NULL DEFAULT '',
			last_message_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create conversations table: %w", err)
	}

	// One open thread per contact. The webhook router upserts against
	// this index so concurrent deliveries cannot fork a conversation.
	_, err = p.Pool.Exec(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS conversations_open_contact
		ON conversations (tenant_id, platform, sender_id)
		WHERE status = 'open';
	`)
	if err != nil {
		return fmt.Errorf("create open-conversation index: %w", err)
	}

	// Message ledger (append-only; delivery_* columns track outbound sends)
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations(id),
			tenant_id TEXT NOT NULL,
			content TEXT NOT NULL,
			direction VARCHAR(10) NOT NULL,
			is_ai BOOLEAN NOT NULL DEFAULT FALSE,
			platform VARCHAR(20) NOT NULL,
			sender_id VARCHAR(128) NOT NULL DEFAULT '',
			delivery_status VARCHAR(10) NOT NULL DEFAULT 'none',
			delivery_attempts INT NOT NULL DEFAULT 0,
			delivered_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create messages table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS messages_conversation_created
		ON messages (conversation_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("create messages index: %w", err)
	}

	// AI settings (one row per tenant)
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ai_settings (
			tenant_id TEXT PRIMARY KEY,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			business_name VARCHAR(256) NOT NULL DEFAULT '',
			tone VARCHAR(20) NOT NULL DEFAULT 'professional',
			language VARCHAR(10) NOT NULL DEFAULT 'tr',
			custom_prompt TEXT NOT NULL DEFAULT '',
			bot_name VARCHAR(128) NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create ai_settings table: %w", err)
	}

	// Daily AI usage counters (quota; reset is the date rollover)
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS usage_daily (
			tenant_id TEXT NOT NULL,
			date DATE NOT NULL,
			message_count INT NOT NULL DEFAULT 0,
			plan VARCHAR(20) NOT NULL DEFAULT 'free',
			PRIMARY KEY (tenant_id, date)
		);
	`)
	if err != nil {
		return fmt.Errorf("create usage_daily table: %w", err)
	}

	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
