package repository

import (
	"context"
	"time"

	"github.com/moneyradar/backend/internal/domain/entity"
)

// WebhookRepository defines data access for raw provider webhook events.
type WebhookRepository interface {
	// Insert stores a raw event, setting event.ID. Returns
	// errors.ErrDuplicateEvent when the provider event was seen before.
	Insert(ctx context.Context, event *entity.WebhookEvent) error

	// GetByEventID retrieves a stored event by provider and event ID.
	GetByEventID(ctx context.Context, provider, eventID string) (*entity.WebhookEvent, error)

	// MarkProcessed records when the event was applied.
	MarkProcessed(ctx context.Context, id int64, at time.Time) error
}
