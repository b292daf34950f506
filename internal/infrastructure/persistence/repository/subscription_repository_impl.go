package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moneyradar/backend/internal/domain/entity"
	domainErrors "github.com/moneyradar/backend/internal/domain/errors"
	"github.com/moneyradar/backend/internal/domain/repository"
)

// SubscriptionRepositoryImpl implements SubscriptionRepository
type SubscriptionRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(pool *pgxpool.Pool) repository.SubscriptionRepository {
	return &SubscriptionRepositoryImpl{pool: pool}
}

const subscriptionColumns = `id, stripe_subscription_id, customer_id, plan_id, status,
	current_period_start, current_period_end, mrr, created_at, updated_at, canceled_at`

// Create creates a new subscription
func (r *SubscriptionRepositoryImpl) Create(ctx context.Context, sub *entity.Subscription) error {
	query := `
		INSERT INTO subscriptions (stripe_subscription_id, customer_id, plan_id, status,
			current_period_start, current_period_end, mrr, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	return r.pool.QueryRow(ctx, query,
		sub.StripeSubscriptionID,
		sub.CustomerID,
		sub.PlanID,
		sub.Status,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.MRR,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
}

// GetByID retrieves a subscription by ID
func (r *SubscriptionRepositoryImpl) GetByID(ctx context.Context, id int64) (*entity.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id), domainErrors.ErrSubscriptionNotFound)
}

// GetByStripeID retrieves a subscription by its provider identifier
func (r *SubscriptionRepositoryImpl) GetByStripeID(ctx context.Context, stripeSubID string) (*entity.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE stripe_subscription_id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, stripeSubID), domainErrors.ErrSubscriptionNotFound)
}

// GetActiveByCustomerID retrieves the customer's active subscription
func (r *SubscriptionRepositoryImpl) GetActiveByCustomerID(ctx context.Context, customerID string) (*entity.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE customer_id = $1 AND status = 'active'
		ORDER BY created_at DESC
		LIMIT 1`
	return r.scanOne(r.pool.QueryRow(ctx, query, customerID), domainErrors.ErrNoActiveSubscription)
}

// Update persists status, period, MRR and cancellation fields
func (r *SubscriptionRepositoryImpl) Update(ctx context.Context, sub *entity.Subscription) error {
	query := `
		UPDATE subscriptions
		SET status = $2, current_period_start = $3, current_period_end = $4,
			mrr = $5, canceled_at = $6, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		sub.ID,
		sub.Status,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.MRR,
		sub.CanceledAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrSubscriptionNotFound
	}
	return nil
}

// ListActive retrieves all active subscriptions
func (r *SubscriptionRepositoryImpl) ListActive(ctx context.Context) ([]*entity.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE status = 'active' ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// ListActiveByPlan retrieves active subscriptions on the given plan
func (r *SubscriptionRepositoryImpl) ListActiveByPlan(ctx context.Context, planID int64) ([]*entity.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE plan_id = $1 AND status = 'active'
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// TotalActiveMRR sums MRR over active subscriptions
func (r *SubscriptionRepositoryImpl) TotalActiveMRR(ctx context.Context) (float64, error) {
	query := `SELECT COALESCE(SUM(mrr), 0) FROM subscriptions WHERE status = 'active'`

	var total float64
	err := r.pool.QueryRow(ctx, query).Scan(&total)
	return total, err
}

// CountCanceledSince counts subscriptions canceled at or after the cutoff
func (r *SubscriptionRepositoryImpl) CountCanceledSince(ctx context.Context, cutoff time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM subscriptions WHERE canceled_at >= $1`

	var count int
	err := r.pool.QueryRow(ctx, query, cutoff).Scan(&count)
	return count, err
}

// MRRByProduct returns active MRR grouped by product name
func (r *SubscriptionRepositoryImpl) MRRByProduct(ctx context.Context) (map[string]float64, error) {
	query := `
		SELECT pr.name, COALESCE(SUM(s.mrr), 0)
		FROM subscriptions s
		JOIN plans p ON p.id = s.plan_id
		JOIN products pr ON pr.id = p.product_id
		WHERE s.status = 'active'
		GROUP BY pr.name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	breakdown := make(map[string]float64)
	for rows.Next() {
		var name string
		var mrr float64
		if err := rows.Scan(&name, &mrr); err != nil {
			return nil, err
		}
		breakdown[name] = mrr
	}
	return breakdown, rows.Err()
}

func (r *SubscriptionRepositoryImpl) scanOne(row pgx.Row, notFound error) (*entity.Subscription, error) {
	sub := &entity.Subscription{}
	err := row.Scan(
		&sub.ID,
		&sub.StripeSubscriptionID,
		&sub.CustomerID,
		&sub.PlanID,
		&sub.Status,
		&sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd,
		&sub.MRR,
		&sub.CreatedAt,
		&sub.UpdatedAt,
		&sub.CanceledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		return nil, err
	}
	return sub, nil
}

func (r *SubscriptionRepositoryImpl) scanAll(rows pgx.Rows) ([]*entity.Subscription, error) {
	var subs []*entity.Subscription
	for rows.Next() {
		sub, err := r.scanOne(rows, domainErrors.ErrSubscriptionNotFound)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
