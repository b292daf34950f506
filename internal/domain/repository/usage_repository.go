package repository

import (
	"context"
	"time"

	"github.com/moneyradar/backend/internal/domain/entity"
)

// UsageRepository defines data access for usage records.
type UsageRepository interface {
	// Create inserts a usage record and sets record.ID.
	Create(ctx context.Context, record *entity.UsageRecord) error

	// ListForPeriod returns records for the subscription whose period
	// falls within [periodStart, periodEnd].
	ListForPeriod(ctx context.Context, subscriptionID int64, periodStart, periodEnd time.Time) ([]*entity.UsageRecord, error)

	// ListRecordedSince returns the subscription's records recorded at or
	// after the cutoff, oldest first.
	ListRecordedSince(ctx context.Context, subscriptionID int64, cutoff time.Time) ([]*entity.UsageRecord, error)

	// ListBounded returns the subscription's records that carry a positive
	// plan limit.
	ListBounded(ctx context.Context, subscriptionID int64) ([]*entity.UsageRecord, error)
}
