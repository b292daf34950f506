package repository

import (
	"context"
	"time"

	"github.com/moneyradar/backend/internal/domain/entity"
)

// RevenueEventRepository defines data access for revenue events.
type RevenueEventRepository interface {
	// Create inserts a new event and sets event.ID.
	Create(ctx context.Context, event *entity.RevenueEvent) error

	// ListByType returns events of the given type occurring at or after
	// the cutoff, oldest first.
	ListByType(ctx context.Context, eventType entity.RevenueEventType, cutoff time.Time) ([]*entity.RevenueEvent, error)

	// ListBetween returns events with occurred_at in [start, end),
	// oldest first.
	ListBetween(ctx context.Context, start, end time.Time) ([]*entity.RevenueEvent, error)
}
