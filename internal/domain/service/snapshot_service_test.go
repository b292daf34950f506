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
	domainErrors "github.com/moneyradar/backend/internal/domain/errors"
	"github.com/moneyradar/backend/internal/domain/service"
	"github.com/moneyradar/backend/tests/mocks"
)

func TestSnapshotService(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	t.Run("buckets day events into movement columns", func(t *testing.T) {
		subRepo := mocks.NewMockSubscriptionRepository()
		eventRepo := mocks.NewMockRevenueEventRepository()
		snapshotRepo := mocks.NewMockSnapshotRepository()
		svc := service.NewSnapshotService(subRepo, eventRepo, snapshotRepo, zap.NewNop())

		snapshotRepo.On("GetByDate", ctx, day).Return(nil, domainErrors.ErrSnapshotNotFound).Once()
		subRepo.On("TotalActiveMRR", ctx).Return(1500.0, nil).Once()
		eventRepo.On("ListBetween", ctx, day, day.Add(24*time.Hour)).Return([]*entity.RevenueEvent{
			{EventType: entity.EventSubscriptionCreated, MRRDelta: 99.0},
			{EventType: entity.EventSubscriptionUpgraded, MRRDelta: 50.0},
			{EventType: entity.EventSubscriptionDowngraded, MRRDelta: -30.0},
			{EventType: entity.EventSubscriptionCanceled, MRRDelta: -49.0},
			{EventType: entity.EventPaymentSucceeded, Amount: 99.0},
		}, nil).Once()
		subRepo.On("MRRByProduct", ctx).Return(map[string]float64{"Radar": 1500.0}, nil).Once()
		snapshotRepo.On("Create", ctx, mock.Anything).Return(nil).Once()

		snapshot, err := svc.CalculateDaily(ctx, day.Add(13*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, day, snapshot.Date)
		assert.Equal(t, 1500.0, snapshot.TotalMRR)
		assert.Equal(t, 99.0, snapshot.NewMRR)
		assert.Equal(t, 50.0, snapshot.ExpansionMRR)
		assert.Equal(t, 30.0, snapshot.ContractionMRR)
		assert.Equal(t, 49.0, snapshot.ChurnedMRR)
		assert.InDelta(t, 70.0, snapshot.NetMovement(), 0.001)
		assert.Equal(t, map[string]float64{"Radar": 1500.0}, snapshot.ProductBreakdown)
	})

	t.Run("existing snapshot is returned unchanged", func(t *testing.T) {
		subRepo := mocks.NewMockSubscriptionRepository()
		eventRepo := mocks.NewMockRevenueEventRepository()
		snapshotRepo := mocks.NewMockSnapshotRepository()
		svc := service.NewSnapshotService(subRepo, eventRepo, snapshotRepo, zap.NewNop())

		stored := &entity.MRRSnapshot{ID: 12, Date: day, TotalMRR: 1200.0}
		snapshotRepo.On("GetByDate", ctx, day).Return(stored, nil).Once()

		snapshot, err := svc.CalculateDaily(ctx, day)
		require.NoError(t, err)
		assert.Same(t, stored, snapshot)
		subRepo.AssertNotCalled(t, "TotalActiveMRR", mock.Anything)
	})

	t.Run("create race falls back to the stored row", func(t *testing.T) {
		subRepo := mocks.NewMockSubscriptionRepository()
		eventRepo := mocks.NewMockRevenueEventRepository()
		snapshotRepo := mocks.NewMockSnapshotRepository()
		svc := service.NewSnapshotService(subRepo, eventRepo, snapshotRepo, zap.NewNop())

		stored := &entity.MRRSnapshot{ID: 13, Date: day, TotalMRR: 1500.0}
		snapshotRepo.On("GetByDate", ctx, day).Return(nil, domainErrors.ErrSnapshotNotFound).Once()
		subRepo.On("TotalActiveMRR", ctx).Return(1500.0, nil).Once()
		eventRepo.On("ListBetween", ctx, day, day.Add(24*time.Hour)).Return([]*entity.RevenueEvent{}, nil).Once()
		subRepo.On("MRRByProduct", ctx).Return(map[string]float64{}, nil).Once()
		snapshotRepo.On("Create", ctx, mock.Anything).Return(domainErrors.ErrSnapshotExists).Once()
		snapshotRepo.On("GetByDate", ctx, day).Return(stored, nil).Once()

		snapshot, err := svc.CalculateDaily(ctx, day)
		require.NoError(t, err)
		assert.Same(t, stored, snapshot)
	})
}
