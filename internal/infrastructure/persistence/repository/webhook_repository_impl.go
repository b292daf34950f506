package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moneyradar/backend/internal/domain/entity"
	domainErrors "github.com/moneyradar/backend/internal/domain/errors"
	"github.com/moneyradar/backend/internal/domain/repository"
)

// WebhookRepositoryImpl implements WebhookRepository
type WebhookRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewWebhookRepository creates a new webhook repository
func NewWebhookRepository(pool *pgxpool.Pool) repository.WebhookRepository {
	return &WebhookRepositoryImpl{pool: pool}
}

// Insert stores a raw provider event. The (provider, event_id) pair is
// unique; replays surface as ErrDuplicateEvent.
func (r *WebhookRepositoryImpl) Insert(ctx context.Context, event *entity.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (provider, event_id, event_type, payload, received_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		event.Provider,
		event.EventID,
		event.EventType,
		event.Payload,
		event.ReceivedAt,
	).Scan(&event.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrDuplicateEvent
		}
		return err
	}
	return nil
}

// GetByEventID retrieves a stored event by provider and event ID
func (r *WebhookRepositoryImpl) GetByEventID(ctx context.Context, provider, eventID string) (*entity.WebhookEvent, error) {
	query := `
		SELECT id, provider, event_id, event_type, payload, received_at, processed_at
		FROM webhook_events
		WHERE provider = $1 AND event_id = $2
	`

	event := &entity.WebhookEvent{}
	err := r.pool.QueryRow(ctx, query, provider, eventID).Scan(
		&event.ID,
		&event.Provider,
		&event.EventID,
		&event.EventType,
		&event.Payload,
		&event.ReceivedAt,
		&event.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrWebhookEventNotFound
		}
		return nil, err
	}
	return event, nil
}

// MarkProcessed records when the event was applied
func (r *WebhookRepositoryImpl) MarkProcessed(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE webhook_events SET processed_at = $2 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrWebhookEventNotFound
	}
	return nil
}
