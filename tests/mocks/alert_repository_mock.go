package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/moneyradar/backend/internal/domain/entity"
	"github.com/moneyradar/backend/internal/domain/repository"
)

// MockAlertRepository is a mock implementation of AlertRepository
type MockAlertRepository struct {
	mock.Mock
}

// NewMockAlertRepository creates a new mock alert repository
func NewMockAlertRepository() *MockAlertRepository {
	return &MockAlertRepository{}
}

func (m *MockAlertRepository) Create(ctx context.Context, alert *entity.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockAlertRepository) GetByID(ctx context.Context, id int64) (*entity.Alert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Alert), args.Error(1)
}

func (m *MockAlertRepository) HasUnresolved(ctx context.Context, customerID string, alertType entity.AlertType) (bool, error) {
	args := m.Called(ctx, customerID, alertType)
	return args.Bool(0), args.Error(1)
}

func (m *MockAlertRepository) List(ctx context.Context, filter repository.AlertFilter, limit int) ([]*entity.Alert, error) {
	args := m.Called(ctx, filter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Alert), args.Error(1)
}

func (m *MockAlertRepository) Update(ctx context.Context, alert *entity.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}
