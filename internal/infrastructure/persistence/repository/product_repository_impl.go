package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moneyradar/backend/internal/domain/entity"
	domainErrors "github.com/moneyradar/backend/internal/domain/errors"
	"github.com/moneyradar/backend/internal/domain/repository"
)

// ProductRepositoryImpl implements ProductRepository
type ProductRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewProductRepository creates a new product repository
func NewProductRepository(pool *pgxpool.Pool) repository.ProductRepository {
	return &ProductRepositoryImpl{pool: pool}
}

// Upsert creates or updates a product keyed by its provider identifier
func (r *ProductRepositoryImpl) Upsert(ctx context.Context, product *entity.Product) error {
	query := `
		INSERT INTO products (name, description, stripe_product_id, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (stripe_product_id) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	return r.pool.QueryRow(ctx, query,
		product.Name,
		product.Description,
		product.StripeProductID,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
}

// GetByStripeID retrieves a product by its provider identifier
func (r *ProductRepositoryImpl) GetByStripeID(ctx context.Context, stripeProductID string) (*entity.Product, error) {
	query := `
		SELECT id, name, description, stripe_product_id, created_at, updated_at
		FROM products
		WHERE stripe_product_id = $1
	`

	product := &entity.Product{}
	err := r.pool.QueryRow(ctx, query, stripeProductID).Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.StripeProductID,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

// List retrieves all products
func (r *ProductRepositoryImpl) List(ctx context.Context) ([]*entity.Product, error) {
	query := `
		SELECT id, name, description, stripe_product_id, created_at, updated_at
		FROM products
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*entity.Product
	for rows.Next() {
		product := &entity.Product{}
		if err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Description,
			&product.StripeProductID,
			&product.CreatedAt,
			&product.UpdatedAt,
		); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}
