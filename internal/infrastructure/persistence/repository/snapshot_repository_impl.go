package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moneyradar/backend/internal/domain/entity"
	domainErrors "github.com/moneyradar/backend/internal/domain/errors"
	"github.com/moneyradar/backend/internal/domain/repository"
)

// SnapshotRepositoryImpl implements SnapshotRepository
type SnapshotRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(pool *pgxpool.Pool) repository.SnapshotRepository {
	return &SnapshotRepositoryImpl{pool: pool}
}

const snapshotColumns = `id, date, total_mrr, new_mrr, expansion_mrr,
	contraction_mrr, churned_mrr, product_breakdown, created_at`

// Create creates a snapshot. The date column is unique per day; a conflict
// surfaces as ErrSnapshotExists.
func (r *SnapshotRepositoryImpl) Create(ctx context.Context, snapshot *entity.MRRSnapshot) error {
	breakdown, err := json.Marshal(snapshot.ProductBreakdown)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO mrr_snapshots (date, total_mrr, new_mrr, expansion_mrr,
			contraction_mrr, churned_mrr, product_breakdown, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`

	err = r.pool.QueryRow(ctx, query,
		snapshot.Date,
		snapshot.TotalMRR,
		snapshot.NewMRR,
		snapshot.ExpansionMRR,
		snapshot.ContractionMRR,
		snapshot.ChurnedMRR,
		breakdown,
	).Scan(&snapshot.ID, &snapshot.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrSnapshotExists
		}
		return err
	}
	return nil
}

// GetByDate retrieves the snapshot for the given day
func (r *SnapshotRepositoryImpl) GetByDate(ctx context.Context, date time.Time) (*entity.MRRSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM mrr_snapshots WHERE date = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, date))
}

// Latest retrieves the most recent snapshot
func (r *SnapshotRepositoryImpl) Latest(ctx context.Context) (*entity.MRRSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM mrr_snapshots ORDER BY date DESC LIMIT 1`
	return r.scanOne(r.pool.QueryRow(ctx, query))
}

// ListSince retrieves snapshots dated at or after the cutoff, oldest first
func (r *SnapshotRepositoryImpl) ListSince(ctx context.Context, cutoff time.Time) ([]*entity.MRRSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM mrr_snapshots WHERE date >= $1 ORDER BY date`

	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*entity.MRRSnapshot
	for rows.Next() {
		snapshot, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

func (r *SnapshotRepositoryImpl) scanOne(row pgx.Row) (*entity.MRRSnapshot, error) {
	snapshot := &entity.MRRSnapshot{}
	var breakdown []byte
	err := row.Scan(
		&snapshot.ID,
		&snapshot.Date,
		&snapshot.TotalMRR,
		&snapshot.NewMRR,
		&snapshot.ExpansionMRR,
		&snapshot.ContractionMRR,
		&snapshot.ChurnedMRR,
		&breakdown,
		&snapshot.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrSnapshotNotFound
		}
		return nil, err
	}
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &snapshot.ProductBreakdown); err != nil {
			return nil, err
		}
	}
	return snapshot, nil
}
