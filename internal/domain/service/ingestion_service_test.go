package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/moneyradar/backend/internal/domain/entity"
	domainErrors "github.com/moneyradar/backend/internal/domain/errors"
	"github.com/moneyradar/backend/internal/domain/service"
	"github.com/moneyradar/backend/tests/mocks"
)

func subscriptionPayload(subID, priceID string, unitAmount, quantity int64, interval string) json.RawMessage {
	payload := map[string]any{
		"id":                   subID,
		"customer":             "cus_001",
		"status":               "active",
		"current_period_start": 1735689600,
		"current_period_end":   1738368000,
		"items": map[string]any{
			"data": []map[string]any{
				{
					"quantity": quantity,
					"price": map[string]any{
						"id":          priceID,
						"unit_amount": unitAmount,
						"currency":    "usd",
						"recurring":   map[string]any{"interval": interval},
					},
				},
			},
		},
	}
	raw, _ := json.Marshal(payload)
	return raw
}

func TestIngestionService(t *testing.T) {
	ctx := context.Background()

	t.Run("subscription created stores plan MRR and a revenue event", func(t *testing.T) {
		subRepo := mocks.NewMockSubscriptionRepository()
		planRepo := mocks.NewMockPlanRepository()
		eventRepo := mocks.NewMockRevenueEventRepository()
		svc := service.NewIngestionService(subRepo, planRepo, eventRepo, zap.NewNop())

		planRepo.On("GetByStripePriceID", ctx, "price_pro").
			Return(&entity.Plan{ID: 7, Name: "Pro"}, nil).Once()
		subRepo.On("Create", ctx, mock.MatchedBy(func(sub *entity.Subscription) bool {
			return sub.StripeSubscriptionID == "sub_001" && sub.MRR == 99.0
		})).Return(nil).Once()
		eventRepo.On("Create", ctx, mock.MatchedBy(func(ev *entity.RevenueEvent) bool {
			return ev.EventType == entity.EventSubscriptionCreated && ev.MRRDelta == 99.0
		})).Return(nil).Once()

		err := svc.ProcessEvent(ctx, service.EventTypeSubscriptionCreated,
			subscriptionPayload("sub_001", "price_pro", 9900, 1, "month"))
		require.NoError(t, err)
		subRepo.AssertExpectations(t)
		eventRepo.AssertExpectations(t)
	})

	t.Run("unknown price is skipped without error", func(t *testing.T) {
		subRepo := mocks.NewMockSubscriptionRepository()
		planRepo := mocks.NewMockPlanRepository()
		eventRepo := mocks.NewMockRevenueEventRepository()
		svc := service.NewIngestionService(subRepo, planRepo, eventRepo, zap.NewNop())

		planRepo.On("GetByStripePriceID", ctx, "price_unknown").
			Return(nil, domainErrors.ErrPlanNotFound).Once()

		err := svc.ProcessEvent(ctx, service.EventTypeSubscriptionCreated,
			subscriptionPayload("sub_002", "price_unknown", 9900, 1, "month"))
		require.NoError(t, err)
		subRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("update with higher MRR records an upgrade", func(t *testing.T) {
		subRepo := mocks.NewMockSubscriptionRepository()
		planRepo := mocks.NewMockPlanRepository()
		eventRepo := mocks.NewMockRevenueEventRepository()
		svc := service.NewIngestionService(subRepo, planRepo, eventRepo, zap.NewNop())

		existing := &entity.Subscription{ID: 3, StripeSubscriptionID: "sub_003", CustomerID: "cus_001", MRR: 49.0}
		subRepo.On("GetByStripeID", ctx, "sub_003").Return(existing, nil).Once()
		subRepo.On("Update", ctx, existing).Return(nil).Once()
		eventRepo.On("Create", ctx, mock.MatchedBy(func(ev *entity.RevenueEvent) bool {
			return ev.EventType == entity.EventSubscriptionUpgraded && ev.MRRDelta == 50.0
		})).Return(nil).Once()

		err := svc.ProcessEvent(ctx, service.EventTypeSubscriptionUpdated,
			subscriptionPayload("sub_003", "price_pro", 9900, 1, "month"))
		require.NoError(t, err)
		assert.Equal(t, 99.0, existing.MRR)
		eventRepo.AssertExpectations(t)
	})

	t.Run("update with unchanged MRR records no event", func(t *testing.T) {
		subRepo := mocks.NewMockSubscriptionRepository()
		planRepo := mocks.NewMockPlanRepository()
		eventRepo := mocks.NewMockRevenueEventRepository()
		svc := service.NewIngestionService(subRepo, planRepo, eventRepo, zap.NewNop())

		existing := &entity.Subscription{ID: 4, StripeSubscriptionID: "sub_004", MRR: 99.0}
		subRepo.On("GetByStripeID", ctx, "sub_004").Return(existing, nil).Once()
		subRepo.On("Update", ctx, existing).Return(nil).Once()

		err := svc.ProcessEvent(ctx, service.EventTypeSubscriptionUpdated,
			subscriptionPayload("sub_004", "price_pro", 9900, 1, "month"))
		require.NoError(t, err)
		eventRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("deletion cancels and records churned MRR", func(t *testing.T) {
		subRepo := mocks.NewMockSubscriptionRepository()
		planRepo := mocks.NewMockPlanRepository()
		eventRepo := mocks.NewMockRevenueEventRepository()
		svc := service.NewIngestionService(subRepo, planRepo, eventRepo, zap.NewNop())

		existing := &entity.Subscription{ID: 5, StripeSubscriptionID: "sub_005", MRR: 99.0, Status: entity.SubscriptionActive}
		subRepo.On("GetByStripeID", ctx, "sub_005").Return(existing, nil).Once()
		subRepo.On("Update", ctx, existing).Return(nil).Once()
		eventRepo.On("Create", ctx, mock.MatchedBy(func(ev *entity.RevenueEvent) bool {
			return ev.EventType == entity.EventSubscriptionCanceled && ev.MRRDelta == -99.0
		})).Return(nil).Once()

		err := svc.ProcessEvent(ctx, service.EventTypeSubscriptionDeleted,
			subscriptionPayload("sub_005", "price_pro", 9900, 1, "month"))
		require.NoError(t, err)
		assert.Equal(t, entity.SubscriptionCanceled, existing.Status)
		assert.Equal(t, 0.0, existing.MRR)
	})

	t.Run("failed payment carries attempt count", func(t *testing.T) {
		subRepo := mocks.NewMockSubscriptionRepository()
		planRepo := mocks.NewMockPlanRepository()
		eventRepo := mocks.NewMockRevenueEventRepository()
		svc := service.NewIngestionService(subRepo, planRepo, eventRepo, zap.NewNop())

		existing := &entity.Subscription{ID: 6, StripeSubscriptionID: "sub_006"}
		subRepo.On("GetByStripeID", ctx, "sub_006").Return(existing, nil).Once()
		eventRepo.On("Create", ctx, mock.MatchedBy(func(ev *entity.RevenueEvent) bool {
			return ev.EventType == entity.EventPaymentFailed &&
				ev.Amount == 99.0 &&
				ev.Currency == "USD" &&
				ev.AttemptCount() == 3
		})).Return(nil).Once()

		invoice := json.RawMessage(`{"id":"in_001","subscription":"sub_006","currency":"usd","amount_due":9900,"attempt_count":3}`)
		err := svc.ProcessEvent(ctx, service.EventTypePaymentFailed, invoice)
		require.NoError(t, err)
		eventRepo.AssertExpectations(t)
	})

	t.Run("unhandled event types are acknowledged", func(t *testing.T) {
		subRepo := mocks.NewMockSubscriptionRepository()
		planRepo := mocks.NewMockPlanRepository()
		eventRepo := mocks.NewMockRevenueEventRepository()
		svc := service.NewIngestionService(subRepo, planRepo, eventRepo, zap.NewNop())

		err := svc.ProcessEvent(ctx, "charge.refunded", json.RawMessage(`{}`))
		require.NoError(t, err)
	})
}

func TestComputeMRR(t *testing.T) {
	build := func(unitAmount, quantity int64, interval string) *service.SubscriptionPayload {
		var payload service.SubscriptionPayload
		raw := subscriptionPayload("sub_x", "price_x", unitAmount, quantity, interval)
		_ = json.Unmarshal(raw, &payload)
		return &payload
	}

	t.Run("monthly price in cents", func(t *testing.T) {
		assert.InDelta(t, 49.0, service.ComputeMRR(build(4900, 1, "month")), 0.001)
	})

	t.Run("quantity multiplies", func(t *testing.T) {
		assert.InDelta(t, 147.0, service.ComputeMRR(build(4900, 3, "month")), 0.001)
	})

	t.Run("yearly price divided by twelve", func(t *testing.T) {
		assert.InDelta(t, 100.0, service.ComputeMRR(build(120000, 1, "year")), 0.001)
	})

	t.Run("unknown interval contributes nothing", func(t *testing.T) {
		assert.Zero(t, service.ComputeMRR(build(4900, 1, "week")))
	})

	t.Run("non-recurring price contributes nothing", func(t *testing.T) {
		var payload service.SubscriptionPayload
		raw := json.RawMessage(`{"items":{"data":[{"quantity":1,"price":{"id":"price_once","unit_amount":5000}}]}}`)
		require.NoError(t, json.Unmarshal(raw, &payload))
		assert.Zero(t, service.ComputeMRR(&payload))
	})
}
