package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/moneyradar/backend/internal/domain/entity"
)

// MockUsageRepository is a mock implementation of UsageRepository
type MockUsageRepository struct {
	mock.Mock
}

// NewMockUsageRepository creates a new mock usage repository
func NewMockUsageRepository() *MockUsageRepository {
	return &MockUsageRepository{}
}

func (m *MockUsageRepository) Create(ctx context.Context, record *entity.UsageRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockUsageRepository) ListForPeriod(ctx context.Context, subscriptionID int64, periodStart, periodEnd time.Time) ([]*entity.UsageRecord, error) {
	args := m.Called(ctx, subscriptionID, periodStart, periodEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.UsageRecord), args.Error(1)
}

func (m *MockUsageRepository) ListRecordedSince(ctx context.Context, subscriptionID int64, cutoff time.Time) ([]*entity.UsageRecord, error) {
	args := m.Called(ctx, subscriptionID, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.UsageRecord), args.Error(1)
}

func (m *MockUsageRepository) ListBounded(ctx context.Context, subscriptionID int64) ([]*entity.UsageRecord, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.UsageRecord), args.Error(1)
}
