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

// PlanRepositoryImpl implements PlanRepository
type PlanRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(pool *pgxpool.Pool) repository.PlanRepository {
	return &PlanRepositoryImpl{pool: pool}
}

const planColumns = `id, product_id, name, version, price_monthly, price_annual, currency,
	limits, features, effective_from, effective_until, stripe_price_id, is_active,
	created_at, updated_at`

// Create creates a new plan
func (r *PlanRepositoryImpl) Create(ctx context.Context, plan *entity.Plan) error {
	limits, err := json.Marshal(plan.Limits)
	if err != nil {
		return err
	}
	features, err := json.Marshal(plan.Features)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO plans (product_id, name, version, price_monthly, price_annual, currency,
			limits, features, effective_from, effective_until, stripe_price_id, is_active,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	return r.pool.QueryRow(ctx, query,
		plan.ProductID,
		plan.Name,
		plan.Version,
		plan.PriceMonthly,
		plan.PriceAnnual,
		plan.Currency,
		limits,
		features,
		plan.EffectiveFrom,
		plan.EffectiveUntil,
		plan.StripePriceID,
		plan.IsActive,
	).Scan(&plan.ID, &plan.CreatedAt, &plan.UpdatedAt)
}

// GetByID retrieves a plan by ID
func (r *PlanRepositoryImpl) GetByID(ctx context.Context, id int64) (*entity.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetByStripePriceID retrieves a plan by its provider price identifier
func (r *PlanRepositoryImpl) GetByStripePriceID(ctx context.Context, stripePriceID string) (*entity.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE stripe_price_id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, stripePriceID))
}

// ListActive retrieves all active plans
func (r *PlanRepositoryImpl) ListActive(ctx context.Context) ([]*entity.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE is_active ORDER BY product_id, price_monthly`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// ListUpgrades retrieves active plans of the product priced above monthlyPrice,
// cheapest first
func (r *PlanRepositoryImpl) ListUpgrades(ctx context.Context, productID int64, monthlyPrice float64) ([]*entity.Plan, error) {
	query := `SELECT ` + planColumns + `
		FROM plans
		WHERE product_id = $1 AND is_active AND price_monthly > $2
		ORDER BY price_monthly`

	rows, err := r.pool.Query(ctx, query, productID, monthlyPrice)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

func (r *PlanRepositoryImpl) scanOne(row pgx.Row) (*entity.Plan, error) {
	plan := &entity.Plan{}
	var limits, features []byte
	err := row.Scan(
		&plan.ID,
		&plan.ProductID,
		&plan.Name,
		&plan.Version,
		&plan.PriceMonthly,
		&plan.PriceAnnual,
		&plan.Currency,
		&limits,
		&features,
		&plan.EffectiveFrom,
		&plan.EffectiveUntil,
		&plan.StripePriceID,
		&plan.IsActive,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrPlanNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(limits, &plan.Limits); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(features, &plan.Features); err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *PlanRepositoryImpl) scanAll(rows pgx.Rows) ([]*entity.Plan, error) {
	var plans []*entity.Plan
	for rows.Next() {
		plan, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}
