package repository

import (
	"context"

	"github.com/moneyradar/backend/internal/domain/entity"
)

// ProductRepository defines data access for the product catalog.
type ProductRepository interface {
	// Upsert creates the product or updates it by stripe_product_id,
	// setting product.ID either way.
	Upsert(ctx context.Context, product *entity.Product) error

	// GetByStripeID retrieves a product by its provider identifier.
	GetByStripeID(ctx context.Context, stripeProductID string) (*entity.Product, error)

	// List returns all products.
	List(ctx context.Context) ([]*entity.Product, error)
}

// PlanRepository defines data access for pricing plans.
type PlanRepository interface {
	// Create inserts a new plan and sets plan.ID.
	Create(ctx context.Context, plan *entity.Plan) error

	// GetByID retrieves a plan by ID.
	GetByID(ctx context.Context, id int64) (*entity.Plan, error)

	// GetByStripePriceID retrieves a plan by its provider price identifier.
	GetByStripePriceID(ctx context.Context, stripePriceID string) (*entity.Plan, error)

	// ListActive returns all active plans.
	ListActive(ctx context.Context) ([]*entity.Plan, error)

	// ListUpgrades returns active plans of the same product priced above
	// monthlyPrice, cheapest first.
	ListUpgrades(ctx context.Context, productID int64, monthlyPrice float64) ([]*entity.Plan, error)
}
