package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moneyradar/backend/internal/domain/entity"
	"github.com/moneyradar/backend/internal/domain/repository"
)

// UsageRepositoryImpl implements UsageRepository
type UsageRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(pool *pgxpool.Pool) repository.UsageRepository {
	return &UsageRepositoryImpl{pool: pool}
}

const usageColumns = `id, subscription_id, metric_name, quantity, plan_limit,
	period_start, period_end, recorded_at`

// Create creates a usage record
func (r *UsageRepositoryImpl) Create(ctx context.Context, record *entity.UsageRecord) error {
	query := `
		INSERT INTO usage_records (subscription_id, metric_name, quantity, plan_limit,
			period_start, period_end, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	return r.pool.QueryRow(ctx, query,
		record.SubscriptionID,
		record.MetricName,
		record.Quantity,
		record.Limit,
		record.PeriodStart,
		record.PeriodEnd,
		record.RecordedAt,
	).Scan(&record.ID)
}

// ListForPeriod retrieves the subscription's records whose period falls
// within [periodStart, periodEnd]
func (r *UsageRepositoryImpl) ListForPeriod(ctx context.Context, subscriptionID int64, periodStart, periodEnd time.Time) ([]*entity.UsageRecord, error) {
	query := `SELECT ` + usageColumns + `
		FROM usage_records
		WHERE subscription_id = $1 AND period_start >= $2 AND period_end <= $3
		ORDER BY recorded_at`

	rows, err := r.pool.Query(ctx, query, subscriptionID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// ListRecordedSince retrieves the subscription's records recorded at or
// after the cutoff, oldest first
func (r *UsageRepositoryImpl) ListRecordedSince(ctx context.Context, subscriptionID int64, cutoff time.Time) ([]*entity.UsageRecord, error) {
	query := `SELECT ` + usageColumns + `
		FROM usage_records
		WHERE subscription_id = $1 AND recorded_at >= $2
		ORDER BY recorded_at`

	rows, err := r.pool.Query(ctx, query, subscriptionID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// ListBounded retrieves the subscription's records that carry a positive
// plan limit
func (r *UsageRepositoryImpl) ListBounded(ctx context.Context, subscriptionID int64) ([]*entity.UsageRecord, error) {
	query := `SELECT ` + usageColumns + `
		FROM usage_records
		WHERE subscription_id = $1 AND plan_limit > 0
		ORDER BY recorded_at`

	rows, err := r.pool.Query(ctx, query, subscriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

func (r *UsageRepositoryImpl) scanAll(rows pgx.Rows) ([]*entity.UsageRecord, error) {
	var records []*entity.UsageRecord
	for rows.Next() {
		record := &entity.UsageRecord{}
		if err := rows.Scan(
			&record.ID,
			&record.SubscriptionID,
			&record.MetricName,
			&record.Quantity,
			&record.Limit,
			&record.PeriodStart,
			&record.PeriodEnd,
			&record.RecordedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
