package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/moneyradar/backend/internal/domain/entity"
)

// MockSnapshotRepository is a mock implementation of SnapshotRepository
type MockSnapshotRepository struct {
	mock.Mock
}

// NewMockSnapshotRepository creates a new mock snapshot repository
func NewMockSnapshotRepository() *MockSnapshotRepository {
	return &MockSnapshotRepository{}
}

func (m *MockSnapshotRepository) Create(ctx context.Context, snapshot *entity.MRRSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockSnapshotRepository) GetByDate(ctx context.Context, date time.Time) (*entity.MRRSnapshot, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.MRRSnapshot), args.Error(1)
}

func (m *MockSnapshotRepository) Latest(ctx context.Context) (*entity.MRRSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.MRRSnapshot), args.Error(1)
}

func (m *MockSnapshotRepository) ListSince(ctx context.Context, cutoff time.Time) ([]*entity.MRRSnapshot, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.MRRSnapshot), args.Error(1)
}
