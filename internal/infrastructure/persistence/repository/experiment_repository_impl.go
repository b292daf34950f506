package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moneyradar/backend/internal/domain/entity"
	domainErrors "github.com/moneyradar/backend/internal/domain/errors"
	"github.com/moneyradar/backend/internal/domain/repository"
)

// ExperimentRepositoryImpl implements ExperimentRepository
type ExperimentRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewExperimentRepository creates a new experiment repository
func NewExperimentRepository(pool *pgxpool.Pool) repository.ExperimentRepository {
	return &ExperimentRepositoryImpl{pool: pool}
}

const experimentColumns = `id, name, hypothesis, affected_segment, control_group_size,
	variant_group_size, change_description, metric_tracked, baseline_value, target_value,
	actual_value, outcome, status, started_at, ended_at, created_at, updated_at`

// Create creates an experiment
func (r *ExperimentRepositoryImpl) Create(ctx context.Context, experiment *entity.Experiment) error {
	segment, err := json.Marshal(experiment.AffectedSegment)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO pricing_experiments (name, hypothesis, affected_segment,
			control_group_size, variant_group_size, change_description, metric_tracked,
			baseline_value, target_value, actual_value, outcome, status,
			started_at, ended_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	return r.pool.QueryRow(ctx, query,
		experiment.Name,
		experiment.Hypothesis,
		segment,
		experiment.ControlGroupSize,
		experiment.VariantGroupSize,
		experiment.ChangeDescription,
		experiment.MetricTracked,
		experiment.BaselineValue,
		experiment.TargetValue,
		experiment.ActualValue,
		experiment.Outcome,
		experiment.Status,
		experiment.StartedAt,
		experiment.EndedAt,
	).Scan(&experiment.ID, &experiment.CreatedAt, &experiment.UpdatedAt)
}

// GetByID retrieves an experiment by ID
func (r *ExperimentRepositoryImpl) GetByID(ctx context.Context, id int64) (*entity.Experiment, error) {
	query := `SELECT ` + experimentColumns + ` FROM pricing_experiments WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// Update persists lifecycle, group-size and result fields
func (r *ExperimentRepositoryImpl) Update(ctx context.Context, experiment *entity.Experiment) error {
	segment, err := json.Marshal(experiment.AffectedSegment)
	if err != nil {
		return err
	}

	query := `
		UPDATE pricing_experiments
		SET name = $2, hypothesis = $3, affected_segment = $4, control_group_size = $5,
			variant_group_size = $6, change_description = $7, metric_tracked = $8,
			baseline_value = $9, target_value = $10, actual_value = $11, outcome = $12,
			status = $13, started_at = $14, ended_at = $15, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		experiment.ID,
		experiment.Name,
		experiment.Hypothesis,
		segment,
		experiment.ControlGroupSize,
		experiment.VariantGroupSize,
		experiment.ChangeDescription,
		experiment.MetricTracked,
		experiment.BaselineValue,
		experiment.TargetValue,
		experiment.ActualValue,
		experiment.Outcome,
		experiment.Status,
		experiment.StartedAt,
		experiment.EndedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrExperimentNotFound
	}
	return nil
}

// ListByStatus retrieves experiments in the given status, newest first
func (r *ExperimentRepositoryImpl) ListByStatus(ctx context.Context, status entity.ExperimentStatus) ([]*entity.Experiment, error) {
	query := `SELECT ` + experimentColumns + `
		FROM pricing_experiments
		WHERE status = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// ListCompleted retrieves completed experiments, most recently ended first,
// optionally filtered by tracked metric
func (r *ExperimentRepositoryImpl) ListCompleted(ctx context.Context, metric string, limit int) ([]*entity.Experiment, error) {
	query := `SELECT ` + experimentColumns + `
		FROM pricing_experiments
		WHERE status = 'completed' AND ($1 = '' OR metric_tracked = $1)
		ORDER BY ended_at DESC`
	args := []any{metric}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// ListAll retrieves every experiment
func (r *ExperimentRepositoryImpl) ListAll(ctx context.Context) ([]*entity.Experiment, error) {
	query := `SELECT ` + experimentColumns + ` FROM pricing_experiments ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

func (r *ExperimentRepositoryImpl) scanOne(row pgx.Row) (*entity.Experiment, error) {
	experiment := &entity.Experiment{}
	var segment []byte
	err := row.Scan(
		&experiment.ID,
		&experiment.Name,
		&experiment.Hypothesis,
		&segment,
		&experiment.ControlGroupSize,
		&experiment.VariantGroupSize,
		&experiment.ChangeDescription,
		&experiment.MetricTracked,
		&experiment.BaselineValue,
		&experiment.TargetValue,
		&experiment.ActualValue,
		&experiment.Outcome,
		&experiment.Status,
		&experiment.StartedAt,
		&experiment.EndedAt,
		&experiment.CreatedAt,
		&experiment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrExperimentNotFound
		}
		return nil, err
	}
	if len(segment) > 0 {
		if err := json.Unmarshal(segment, &experiment.AffectedSegment); err != nil {
			return nil, err
		}
	}
	return experiment, nil
}

func (r *ExperimentRepositoryImpl) scanAll(rows pgx.Rows) ([]*entity.Experiment, error) {
	var experiments []*entity.Experiment
	for rows.Next() {
		experiment, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		experiments = append(experiments, experiment)
	}
	return experiments, rows.Err()
}
