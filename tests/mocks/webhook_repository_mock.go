package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/moneyradar/backend/internal/domain/entity"
)

// MockWebhookRepository is a mock implementation of WebhookRepository
type MockWebhookRepository struct {
	mock.Mock
}

// NewMockWebhookRepository creates a new mock webhook repository
func NewMockWebhookRepository() *MockWebhookRepository {
	return &MockWebhookRepository{}
}

func (m *MockWebhookRepository) Insert(ctx context.Context, event *entity.WebhookEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockWebhookRepository) GetByEventID(ctx context.Context, provider, eventID string) (*entity.WebhookEvent, error) {
	args := m.Called(ctx, provider, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.WebhookEvent), args.Error(1)
}

func (m *MockWebhookRepository) MarkProcessed(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}
