package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moneyradar/backend/internal/domain/entity"
	"github.com/moneyradar/backend/internal/domain/repository"
)

// RevenueEventRepositoryImpl implements RevenueEventRepository
type RevenueEventRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewRevenueEventRepository creates a new revenue event repository
func NewRevenueEventRepository(pool *pgxpool.Pool) repository.RevenueEventRepository {
	return &RevenueEventRepositoryImpl{pool: pool}
}

const revenueEventColumns = `id, subscription_id, event_type, stripe_event_id,
	amount, currency, mrr_delta, metadata, occurred_at, processed_at`

// Create creates a new revenue event
func (r *RevenueEventRepositoryImpl) Create(ctx context.Context, event *entity.RevenueEvent) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO revenue_events (subscription_id, event_type, stripe_event_id,
			amount, currency, mrr_delta, metadata, occurred_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	return r.pool.QueryRow(ctx, query,
		event.SubscriptionID,
		event.EventType,
		event.StripeEventID,
		event.Amount,
		event.Currency,
		event.MRRDelta,
		metadata,
		event.OccurredAt,
		event.ProcessedAt,
	).Scan(&event.ID)
}

// ListByType retrieves events of the given type at or after the cutoff,
// oldest first
func (r *RevenueEventRepositoryImpl) ListByType(ctx context.Context, eventType entity.RevenueEventType, cutoff time.Time) ([]*entity.RevenueEvent, error) {
	query := `SELECT ` + revenueEventColumns + `
		FROM revenue_events
		WHERE event_type = $1 AND occurred_at >= $2
		ORDER BY occurred_at`

	rows, err := r.pool.Query(ctx, query, eventType, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// ListBetween retrieves events with occurred_at in [start, end), oldest first
func (r *RevenueEventRepositoryImpl) ListBetween(ctx context.Context, start, end time.Time) ([]*entity.RevenueEvent, error) {
	query := `SELECT ` + revenueEventColumns + `
		FROM revenue_events
		WHERE occurred_at >= $1 AND occurred_at < $2
		ORDER BY occurred_at`

	rows, err := r.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

func (r *RevenueEventRepositoryImpl) scanAll(rows pgx.Rows) ([]*entity.RevenueEvent, error) {
	var events []*entity.RevenueEvent
	for rows.Next() {
		event := &entity.RevenueEvent{}
		var metadata []byte
		if err := rows.Scan(
			&event.ID,
			&event.SubscriptionID,
			&event.EventType,
			&event.StripeEventID,
			&event.Amount,
			&event.Currency,
			&event.MRRDelta,
			&metadata,
			&event.OccurredAt,
			&event.ProcessedAt,
		); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, err
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
