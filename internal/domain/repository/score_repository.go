package repository

import (
	"context"

	"github.com/moneyradar/backend/internal/domain/entity"
)

// ScoreRepository defines data access for customer scores.
type ScoreRepository interface {
	// Upsert creates or replaces the score row for score.CustomerID.
	Upsert(ctx context.Context, score *entity.CustomerScore) error

	// GetByCustomerID retrieves the score for a customer.
	GetByCustomerID(ctx context.Context, customerID string) (*entity.CustomerScore, error)

	// ListByCategory returns scores in the given expansion category.
	ListByCategory(ctx context.Context, category string) ([]*entity.CustomerScore, error)
}
