package repository

import (
	"context"

	"github.com/moneyradar/backend/internal/domain/entity"
)

// ExperimentRepository defines data access for pricing experiments.
type ExperimentRepository interface {
	// Create inserts an experiment and sets experiment.ID.
	Create(ctx context.Context, experiment *entity.Experiment) error

	// GetByID retrieves an experiment by ID.
	GetByID(ctx context.Context, id int64) (*entity.Experiment, error)

	// Update persists lifecycle, group-size and result fields.
	Update(ctx context.Context, experiment *entity.Experiment) error

	// ListByStatus returns experiments in the given status, newest first.
	ListByStatus(ctx context.Context, status entity.ExperimentStatus) ([]*entity.Experiment, error)

	// ListCompleted returns completed experiments, most recently ended
	// first, optionally filtered by tracked metric. A limit of 0 means
	// no limit.
	ListCompleted(ctx context.Context, metric string, limit int) ([]*entity.Experiment, error)

	// ListAll returns every experiment.
	ListAll(ctx context.Context) ([]*entity.Experiment, error)
}
