package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/moneyradar/backend/internal/domain/entity"
)

// MockExperimentRepository is a mock implementation of ExperimentRepository
type MockExperimentRepository struct {
	mock.Mock
}

// NewMockExperimentRepository creates a new mock experiment repository
func NewMockExperimentRepository() *MockExperimentRepository {
	return &MockExperimentRepository{}
}

func (m *MockExperimentRepository) Create(ctx context.Context, experiment *entity.Experiment) error {
	args := m.Called(ctx, experiment)
	return args.Error(0)
}

func (m *MockExperimentRepository) GetByID(ctx context.Context, id int64) (*entity.Experiment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Experiment), args.Error(1)
}

func (m *MockExperimentRepository) Update(ctx context.Context, experiment *entity.Experiment) error {
	args := m.Called(ctx, experiment)
	return args.Error(0)
}

func (m *MockExperimentRepository) ListByStatus(ctx context.Context, status entity.ExperimentStatus) ([]*entity.Experiment, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Experiment), args.Error(1)
}

func (m *MockExperimentRepository) ListCompleted(ctx context.Context, metric string, limit int) ([]*entity.Experiment, error) {
	args := m.Called(ctx, metric, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Experiment), args.Error(1)
}

func (m *MockExperimentRepository) ListAll(ctx context.Context) ([]*entity.Experiment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Experiment), args.Error(1)
}
