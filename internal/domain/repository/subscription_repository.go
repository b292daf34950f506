package repository

import (
	"context"
	"time"

	"github.com/moneyradar/backend/internal/domain/entity"
)

// SubscriptionRepository defines data access for subscriptions.
type SubscriptionRepository interface {
	// Create inserts a new subscription and sets sub.ID.
	Create(ctx context.Context, sub *entity.Subscription) error

	// GetByID retrieves a subscription by ID.
	GetByID(ctx context.Context, id int64) (*entity.Subscription, error)

	// GetByStripeID retrieves a subscription by its provider identifier.
	GetByStripeID(ctx context.Context, stripeSubID string) (*entity.Subscription, error)

	// GetActiveByCustomerID retrieves the active subscription for a customer.
	GetActiveByCustomerID(ctx context.Context, customerID string) (*entity.Subscription, error)

	// Update persists status, period, MRR and cancellation fields.
	Update(ctx context.Context, sub *entity.Subscription) error

	// ListActive returns all active subscriptions.
	ListActive(ctx context.Context) ([]*entity.Subscription, error)

	// ListActiveByPlan returns active subscriptions on the given plan.
	ListActiveByPlan(ctx context.Context, planID int64) ([]*entity.Subscription, error)

	// TotalActiveMRR returns the MRR sum over active subscriptions.
	TotalActiveMRR(ctx context.Context) (float64, error)

	// CountCanceledSince counts subscriptions canceled at or after the cutoff.
	CountCanceledSince(ctx context.Context, cutoff time.Time) (int, error)

	// MRRByProduct returns active MRR grouped by product name.
	MRRByProduct(ctx context.Context) (map[string]float64, error)
}
