package repository

import (
	"context"
	"time"

	"github.com/moneyradar/backend/internal/domain/entity"
)

// SnapshotRepository defines data access for daily MRR snapshots.
type SnapshotRepository interface {
	// Create inserts a snapshot and sets snapshot.ID.
	Create(ctx context.Context, snapshot *entity.MRRSnapshot) error

	// GetByDate retrieves the snapshot for the given day, if any.
	GetByDate(ctx context.Context, date time.Time) (*entity.MRRSnapshot, error)

	// Latest returns the most recent snapshot.
	Latest(ctx context.Context) (*entity.MRRSnapshot, error)

	// ListSince returns snapshots dated at or after the cutoff,
	// oldest first.
	ListSince(ctx context.Context, cutoff time.Time) ([]*entity.MRRSnapshot, error)
}
