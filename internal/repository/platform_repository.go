package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dmasistan/internal/entities"
)

type PlatformRepository struct {
	db *pgxpool.Pool
}

func NewPlatformRepository(db *pgxpool.Pool) *PlatformRepository {
	return &PlatformRepository{db: db}
}

// FindActiveByPlatform resolves the tenant owning the active connection
// for a platform. Returns nil when no active connection exists.
func (r *PlatformRepository) FindActiveByPlatform(ctx context.Context, platform string) (*entities.PlatformConnection, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, tenant_id, platform, account_id, account_name, access_token,
		       token_expires_at, is_active, platform_data, connected_at, updated_at
		FROM platforms
		WHERE platform = $1 AND is_active = TRUE
		ORDER BY updated_at DESC
		LIMIT 1
	`, platform)
	return scanPlatform(row)
}

// FindByTenantAndPlatform returns a tenant's connection for one
// platform, active or not. Returns nil when never connected.
func (r *PlatformRepository) FindByTenantAndPlatform(ctx context.Context, tenantID, platform string) (*entities.PlatformConnection, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, tenant_id, platform, account_id, account_name, access_token,
		       token_expires_at, is_active, platform_data, connected_at, updated_at
		FROM platforms
		WHERE tenant_id = $1 AND platform = $2
	`, tenantID, platform)
	return scanPlatform(row)
}

// ListByTenant returns all of a tenant's platform connections
func (r *PlatformRepository) ListByTenant(ctx context.Context, tenantID string) ([]entities.PlatformConnection, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, tenant_id, platform, account_id, account_name, access_token,
		       token_expires_at, is_active, platform_data, connected_at, updated_at
		FROM platforms
		WHERE tenant_id = $1
		ORDER BY platform ASC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	connections := []entities.PlatformConnection{}
	for rows.Next() {
		conn, err := scanPlatform(rows)
		if err != nil {
			return nil, err
		}
		connections = append(connections, *conn)
	}
	return connections, rows.Err()
}

// Upsert stores a platform connection, replacing any previous one for
// the same tenant+platform and reactivating it.
func (r *PlatformRepository) Upsert(ctx context.Context, conn *entities.PlatformConnection) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO platforms (tenant_id, platform, account_id, account_name, access_token,
		                       token_expires_at, is_active, platform_data)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)
		ON CONFLICT (tenant_id, platform)
		DO UPDATE SET
			account_id = EXCLUDED.account_id,
			account_name = EXCLUDED.account_name,
			access_token = EXCLUDED.access_token,
			token_expires_at = EXCLUDED.token_expires_at,
			is_active = TRUE,
			platform_data = EXCLUDED.platform_data,
			updated_at = NOW()
		RETURNING id
	`, conn.TenantID, conn.Platform, conn.AccountID, conn.AccountName, conn.AccessToken,
		conn.TokenExpiresAt, conn.PlatformData).Scan(&conn.ID)
}

// Deactivate disconnects a platform without losing its history
func (r *PlatformRepository) Deactivate(ctx context.Context, tenantID, platform string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE platforms SET is_active = FALSE, updated_at = NOW()
		WHERE tenant_id = $1 AND platform = $2
	`, tenantID, platform)
	return err
}

func scanPlatform(row pgx.Row) (*entities.PlatformConnection, error) {
	var conn entities.PlatformConnection
	err := row.Scan(&conn.ID, &conn.TenantID, &conn.Platform, &conn.AccountID, &conn.AccountName,
		&conn.AccessToken, &conn.TokenExpiresAt, &conn.IsActive, &conn.PlatformData,
		&conn.ConnectedAt, &conn.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}
