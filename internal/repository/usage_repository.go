package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"dmasistan/internal/entities"
)

type UsageRepository struct {
	db *pgxpool.Pool
}

func NewUsageRepository(db *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{db: db}
}

// Today returns the tenant's usage row for the current day, creating it
// lazily with a zero count. The date rollover is the quota reset.
func (r *UsageRepository) Today(ctx context.Context, tenantID string) (*entities.DailyUsage, error) {
	today := time.Now().Format("2006-01-02")
	usage := &entities.DailyUsage{TenantID: tenantID, Date: today}
	err := r.db.QueryRow(ctx, `
		INSERT INTO usage_daily (tenant_id, date, message_count)
		VALUES ($1, $2, 0)
		ON CONFLICT (tenant_id, date)
		DO UPDATE SET message_count = usage_daily.message_count
		RETURNING message_count, plan
	`, tenantID, today).Scan(&usage.MessageCount, &usage.Plan)
	if err != nil {
		return nil, err
	}
	return usage, nil
}

// Increment bumps today's reply counter by one
func (r *UsageRepository) Increment(ctx context.Context, tenantID string) error {
	today := time.Now().Format("2006-01-02")
	_, err := r.db.Exec(ctx, `
		INSERT INTO usage_daily (tenant_id, date, message_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, date)
		DO UPDATE SET message_count = usage_daily.message_count + 1
	`, tenantID, today)
	return err
}

// History returns the last N days of usage, oldest first
func (r *UsageRepository) History(ctx context.Context, tenantID string, days int) ([]entities.DailyUsage, error) {
	startDate := time.Now().AddDate(0, 0, -days).Format("2006-01-02")
	rows, err := r.db.Query(ctx, `
		SELECT date, message_count, plan
		FROM usage_daily
		WHERE tenant_id = $1 AND date >= $2
		ORDER BY date ASC
	`, tenantID, startDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usage := []entities.DailyUsage{}
	for rows.Next() {
		u := entities.DailyUsage{TenantID: tenantID}
		var date time.Time
		if err := rows.Scan(&date, &u.MessageCount, &u.Plan); err != nil {
			return nil, err
		}
		u.Date = date.Format("2006-01-02")
		usage = append(usage, u)
	}
	return usage, rows.Err()
}
