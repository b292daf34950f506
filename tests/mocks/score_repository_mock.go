package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/moneyradar/backend/internal/domain/entity"
)

// MockScoreRepository is a mock implementation of ScoreRepository
type MockScoreRepository struct {
	mock.Mock
}

// NewMockScoreRepository creates a new mock score repository
func NewMockScoreRepository() *MockScoreRepository {
	return &MockScoreRepository{}
}

func (m *MockScoreRepository) Upsert(ctx context.Context, score *entity.CustomerScore) error {
	args := m.Called(ctx, score)
	return args.Error(0)
}

func (m *MockScoreRepository) GetByCustomerID(ctx context.Context, customerID string) (*entity.CustomerScore, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CustomerScore), args.Error(1)
}

func (m *MockScoreRepository) ListByCategory(ctx context.Context, category string) ([]*entity.CustomerScore, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.CustomerScore), args.Error(1)
}
