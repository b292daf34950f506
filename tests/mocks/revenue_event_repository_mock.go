package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/moneyradar/backend/internal/domain/entity"
)

// MockRevenueEventRepository is a mock implementation of RevenueEventRepository
type MockRevenueEventRepository struct {
	mock.Mock
}

// NewMockRevenueEventRepository creates a new mock revenue event repository
func NewMockRevenueEventRepository() *MockRevenueEventRepository {
	return &MockRevenueEventRepository{}
}

func (m *MockRevenueEventRepository) Create(ctx context.Context, event *entity.RevenueEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockRevenueEventRepository) ListByType(ctx context.Context, eventType entity.RevenueEventType, cutoff time.Time) ([]*entity.RevenueEvent, error) {
	args := m.Called(ctx, eventType, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.RevenueEvent), args.Error(1)
}

func (m *MockRevenueEventRepository) ListBetween(ctx context.Context, start, end time.Time) ([]*entity.RevenueEvent, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.RevenueEvent), args.Error(1)
}
