package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/moneyradar/backend/internal/domain/entity"
	"github.com/moneyradar/backend/internal/domain/service"
	"github.com/moneyradar/backend/tests/mocks"
)

func TestRiskDetector(t *testing.T) {
	ctx := context.Background()
	thresholds := service.RiskThresholds{
		MRRDeclineWarningPercent:  5,
		MRRDeclineCriticalPercent: 15,
	}

	newDetector := func() (*service.RiskDetector, *mocks.MockSubscriptionRepository, *mocks.MockRevenueEventRepository, *mocks.MockSnapshotRepository, *mocks.MockUsageRepository, *mocks.MockAlertRepository) {
		subRepo := mocks.NewMockSubscriptionRepository()
		eventRepo := mocks.NewMockRevenueEventRepository()
		snapshotRepo := mocks.NewMockSnapshotRepository()
		usageRepo := mocks.NewMockUsageRepository()
		alertRepo := mocks.NewMockAlertRepository()
		detector := service.NewRiskDetector(subRepo, eventRepo, snapshotRepo, usageRepo, alertRepo, thresholds, zap.NewNop())
		return detector, subRepo, eventRepo, snapshotRepo, usageRepo, alertRepo
	}

	usageSeries := func(quantities ...float64) []*entity.UsageRecord {
		records := make([]*entity.UsageRecord, len(quantities))
		for i, q := range quantities {
			records[i] = &entity.UsageRecord{MetricName: "api_calls", Quantity: q}
		}
		return records
	}

	t.Run("declining usage past 20 percent raises a warning", func(t *testing.T) {
		detector, subRepo, _, _, usageRepo, alertRepo := newDetector()

		sub := &entity.Subscription{ID: 1, CustomerID: "cus_fade", Status: entity.SubscriptionActive}
		subRepo.On("ListActive", ctx).Return([]*entity.Subscription{sub}, nil).Once()
		usageRepo.On("ListRecordedSince", ctx, int64(1), mock.AnythingOfType("time.Time")).
			Return(usageSeries(100, 100, 50, 50), nil).Once()
		alertRepo.On("HasUnresolved", ctx, "cus_fade", entity.AlertDecliningUsage).Return(false, nil).Once()
		alertRepo.On("Create", ctx, mock.MatchedBy(func(a *entity.Alert) bool {
			return a.AlertType == entity.AlertDecliningUsage && a.Severity == entity.SeverityWarning
		})).Return(nil).Once()

		alerts, err := detector.DetectDecliningUsage(ctx, 30)
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.InDelta(t, -0.5, alerts[0].Data["trend"], 0.001)
	})

	t.Run("stable usage raises nothing", func(t *testing.T) {
		detector, subRepo, _, _, usageRepo, alertRepo := newDetector()

		sub := &entity.Subscription{ID: 2, CustomerID: "cus_steady", Status: entity.SubscriptionActive}
		subRepo.On("ListActive", ctx).Return([]*entity.Subscription{sub}, nil).Once()
		usageRepo.On("ListRecordedSince", ctx, int64(2), mock.AnythingOfType("time.Time")).
			Return(usageSeries(100, 100, 95, 100), nil).Once()

		alerts, err := detector.DetectDecliningUsage(ctx, 30)
		require.NoError(t, err)
		assert.Empty(t, alerts)
		alertRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("third payment attempt escalates to critical", func(t *testing.T) {
		detector, subRepo, eventRepo, _, _, alertRepo := newDetector()

		sub := &entity.Subscription{ID: 3, CustomerID: "cus_broke"}
		failure := &entity.RevenueEvent{
			SubscriptionID: 3,
			EventType:      entity.EventPaymentFailed,
			Amount:         99.0,
			Metadata:       map[string]any{"attempt_count": 3},
		}
		eventRepo.On("ListByType", ctx, entity.EventPaymentFailed, mock.AnythingOfType("time.Time")).
			Return([]*entity.RevenueEvent{failure}, nil).Once()
		subRepo.On("GetByID", ctx, int64(3)).Return(sub, nil).Once()
		alertRepo.On("HasUnresolved", ctx, "cus_broke", entity.AlertPaymentRetry).Return(false, nil).Once()
		alertRepo.On("Create", ctx, mock.MatchedBy(func(a *entity.Alert) bool {
			return a.AlertType == entity.AlertPaymentRetry && a.Severity == entity.SeverityCritical
		})).Return(nil).Once()

		alerts, err := detector.DetectPaymentIssues(ctx)
		require.NoError(t, err)
		require.Len(t, alerts, 1)
	})

	t.Run("first payment failure stays a warning", func(t *testing.T) {
		detector, subRepo, eventRepo, _, _, alertRepo := newDetector()

		sub := &entity.Subscription{ID: 4, CustomerID: "cus_slip"}
		failure := &entity.RevenueEvent{SubscriptionID: 4, EventType: entity.EventPaymentFailed, Amount: 49.0}
		eventRepo.On("ListByType", ctx, entity.EventPaymentFailed, mock.AnythingOfType("time.Time")).
			Return([]*entity.RevenueEvent{failure}, nil).Once()
		subRepo.On("GetByID", ctx, int64(4)).Return(sub, nil).Once()
		alertRepo.On("HasUnresolved", ctx, "cus_slip", entity.AlertPaymentRetry).Return(false, nil).Once()
		alertRepo.On("Create", ctx, mock.MatchedBy(func(a *entity.Alert) bool {
			return a.Severity == entity.SeverityWarning
		})).Return(nil).Once()

		alerts, err := detector.DetectPaymentIssues(ctx)
		require.NoError(t, err)
		require.Len(t, alerts, 1)
	})

	t.Run("downgrade within window raises a warning", func(t *testing.T) {
		detector, subRepo, eventRepo, _, _, alertRepo := newDetector()

		sub := &entity.Subscription{ID: 5, CustomerID: "cus_down"}
		downgrade := &entity.RevenueEvent{
			SubscriptionID: 5,
			EventType:      entity.EventSubscriptionDowngraded,
			MRRDelta:       -50.0,
			OccurredAt:     time.Now().UTC().AddDate(0, 0, -3),
		}
		eventRepo.On("ListByType", ctx, entity.EventSubscriptionDowngraded, mock.AnythingOfType("time.Time")).
			Return([]*entity.RevenueEvent{downgrade}, nil).Once()
		subRepo.On("GetByID", ctx, int64(5)).Return(sub, nil).Once()
		alertRepo.On("HasUnresolved", ctx, "cus_down", entity.AlertPlanDowngrade).Return(false, nil).Once()
		alertRepo.On("Create", ctx, mock.MatchedBy(func(a *entity.Alert) bool {
			return a.AlertType == entity.AlertPlanDowngrade
		})).Return(nil).Once()

		alerts, err := detector.DetectDowngrades(ctx, 30)
		require.NoError(t, err)
		require.Len(t, alerts, 1)
	})

	t.Run("mrr decline between thresholds raises a warning", func(t *testing.T) {
		detector, _, _, snapshotRepo, _, alertRepo := newDetector()

		snapshotRepo.On("ListSince", ctx, mock.AnythingOfType("time.Time")).Return([]*entity.MRRSnapshot{
			{TotalMRR: 1000.0},
			{TotalMRR: 900.0},
		}, nil).Once()
		alertRepo.On("Create", ctx, mock.MatchedBy(func(a *entity.Alert) bool {
			return a.AlertType == entity.AlertMRRDecline && a.Severity == entity.SeverityWarning
		})).Return(nil).Once()

		alerts, err := detector.DetectMRRDecline(ctx, 7)
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.InDelta(t, -10.0, alerts[0].Data["decline_percent"], 0.001)
	})

	t.Run("mrr decline past the critical threshold escalates", func(t *testing.T) {
		detector, _, _, snapshotRepo, _, alertRepo := newDetector()

		snapshotRepo.On("ListSince", ctx, mock.AnythingOfType("time.Time")).Return([]*entity.MRRSnapshot{
			{TotalMRR: 1000.0},
			{TotalMRR: 800.0},
		}, nil).Once()
		alertRepo.On("Create", ctx, mock.MatchedBy(func(a *entity.Alert) bool {
			return a.Severity == entity.SeverityCritical
		})).Return(nil).Once()

		alerts, err := detector.DetectMRRDecline(ctx, 7)
		require.NoError(t, err)
		require.Len(t, alerts, 1)
	})

	t.Run("growing mrr raises nothing", func(t *testing.T) {
		detector, _, _, snapshotRepo, _, alertRepo := newDetector()

		snapshotRepo.On("ListSince", ctx, mock.AnythingOfType("time.Time")).Return([]*entity.MRRSnapshot{
			{TotalMRR: 1000.0},
			{TotalMRR: 1100.0},
		}, nil).Once()

		alerts, err := detector.DetectMRRDecline(ctx, 7)
		require.NoError(t, err)
		assert.Empty(t, alerts)
		alertRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("a single snapshot is not enough to judge decline", func(t *testing.T) {
		detector, _, _, snapshotRepo, _, _ := newDetector()

		snapshotRepo.On("ListSince", ctx, mock.AnythingOfType("time.Time")).
			Return([]*entity.MRRSnapshot{{TotalMRR: 1000.0}}, nil).Once()

		alerts, err := detector.DetectMRRDecline(ctx, 7)
		require.NoError(t, err)
		assert.Empty(t, alerts)
	})
}
