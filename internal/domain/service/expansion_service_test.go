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

func TestExpansionScorer(t *testing.T) {
	ctx := context.Background()
	limit := 100.0

	newScorer := func() (*service.ExpansionScorer, *mocks.MockSubscriptionRepository, *mocks.MockUsageRepository, *mocks.MockScoreRepository) {
		subRepo := mocks.NewMockSubscriptionRepository()
		usageRepo := mocks.NewMockUsageRepository()
		scoreRepo := mocks.NewMockScoreRepository()
		scorer := service.NewExpansionScorer(subRepo, usageRepo, scoreRepo, zap.NewNop())
		return scorer, subRepo, usageRepo, scoreRepo
	}

	subWithTenure := func(id int64, customerID string, days int) *entity.Subscription {
		return &entity.Subscription{
			ID:         id,
			CustomerID: customerID,
			Status:     entity.SubscriptionActive,
			CreatedAt:  time.Now().UTC().AddDate(0, 0, -days),
		}
	}

	bounded := func(quantities ...float64) []*entity.UsageRecord {
		records := make([]*entity.UsageRecord, len(quantities))
		for i, q := range quantities {
			records[i] = &entity.UsageRecord{Quantity: q, Limit: &limit}
		}
		return records
	}

	t.Run("long tenure with growing heavy usage is safe to upsell", func(t *testing.T) {
		scorer, subRepo, usageRepo, scoreRepo := newScorer()

		subRepo.On("GetActiveByCustomerID", ctx, "cus_vet").Return(subWithTenure(1, "cus_vet", 400), nil).Once()
		// trend: first half avg 50, second half avg 90 -> +0.8
		usageRepo.On("ListRecordedSince", ctx, int64(1), mock.AnythingOfType("time.Time")).
			Return(bounded(50, 50, 90, 90), nil).Once()
		usageRepo.On("ListBounded", ctx, int64(1)).Return(bounded(80, 90), nil).Once()
		scoreRepo.On("Upsert", ctx, mock.AnythingOfType("*entity.CustomerScore")).Return(nil).Once()

		score, err := scorer.ScoreCustomer(ctx, "cus_vet")
		require.NoError(t, err)
		// 30 tenure + 40 trend + 25.5 engagement
		assert.InDelta(t, 95.5, score.ExpansionScore, 0.01)
		assert.Equal(t, entity.CategorySafeToUpsell, score.ExpansionCategory)
	})

	t.Run("mid tenure with mild growth lands neutral", func(t *testing.T) {
		scorer, subRepo, usageRepo, scoreRepo := newScorer()

		subRepo.On("GetActiveByCustomerID", ctx, "cus_mid").Return(subWithTenure(2, "cus_mid", 200), nil).Once()
		// trend: 100 -> 110 = +0.1
		usageRepo.On("ListRecordedSince", ctx, int64(2), mock.AnythingOfType("time.Time")).
			Return(bounded(100, 110), nil).Once()
		usageRepo.On("ListBounded", ctx, int64(2)).Return(bounded(40, 60), nil).Once()
		scoreRepo.On("Upsert", ctx, mock.Anything).Return(nil).Once()

		score, err := scorer.ScoreCustomer(ctx, "cus_mid")
		require.NoError(t, err)
		// 20 tenure + 10 trend + 15 engagement
		assert.InDelta(t, 45.0, score.ExpansionScore, 0.01)
		assert.Equal(t, entity.CategoryNeutral, score.ExpansionCategory)
	})

	t.Run("new customer with no usage is do not touch", func(t *testing.T) {
		scorer, subRepo, usageRepo, scoreRepo := newScorer()

		subRepo.On("GetActiveByCustomerID", ctx, "cus_new").Return(subWithTenure(3, "cus_new", 10), nil).Once()
		usageRepo.On("ListRecordedSince", ctx, int64(3), mock.AnythingOfType("time.Time")).
			Return([]*entity.UsageRecord{}, nil).Once()
		usageRepo.On("ListBounded", ctx, int64(3)).Return([]*entity.UsageRecord{}, nil).Once()
		scoreRepo.On("Upsert", ctx, mock.Anything).Return(nil).Once()

		score, err := scorer.ScoreCustomer(ctx, "cus_new")
		require.NoError(t, err)
		assert.Zero(t, score.ExpansionScore)
		assert.Equal(t, entity.CategoryDoNotTouch, score.ExpansionCategory)
	})

	t.Run("sharp usage decline overrides to likely to churn", func(t *testing.T) {
		scorer, subRepo, usageRepo, scoreRepo := newScorer()

		subRepo.On("GetActiveByCustomerID", ctx, "cus_risk").Return(subWithTenure(4, "cus_risk", 400), nil).Once()
		// trend: 100 -> 40 = -0.6
		usageRepo.On("ListRecordedSince", ctx, int64(4), mock.AnythingOfType("time.Time")).
			Return(bounded(100, 100, 40, 40), nil).Once()
		usageRepo.On("ListBounded", ctx, int64(4)).Return(bounded(70), nil).Once()
		scoreRepo.On("Upsert", ctx, mock.Anything).Return(nil).Once()

		score, err := scorer.ScoreCustomer(ctx, "cus_risk")
		require.NoError(t, err)
		// 30 tenure + 0 trend + 21 engagement - 30 churn dock
		assert.InDelta(t, 21.0, score.ExpansionScore, 0.01)
		assert.Equal(t, entity.CategoryLikelyToChurn, score.ExpansionCategory)
		assert.InDelta(t, -0.6, score.UsageTrend, 0.001)
	})

	t.Run("churn dock never goes below zero", func(t *testing.T) {
		scorer, subRepo, usageRepo, scoreRepo := newScorer()

		subRepo.On("GetActiveByCustomerID", ctx, "cus_gone").Return(subWithTenure(5, "cus_gone", 30), nil).Once()
		usageRepo.On("ListRecordedSince", ctx, int64(5), mock.AnythingOfType("time.Time")).
			Return(bounded(100, 10), nil).Once()
		usageRepo.On("ListBounded", ctx, int64(5)).Return([]*entity.UsageRecord{}, nil).Once()
		scoreRepo.On("Upsert", ctx, mock.Anything).Return(nil).Once()

		score, err := scorer.ScoreCustomer(ctx, "cus_gone")
		require.NoError(t, err)
		assert.Zero(t, score.ExpansionScore)
		assert.Equal(t, entity.CategoryLikelyToChurn, score.ExpansionCategory)
	})

	t.Run("score all skips failures and counts the rest", func(t *testing.T) {
		scorer, subRepo, usageRepo, scoreRepo := newScorer()

		good := subWithTenure(6, "cus_good", 100)
		bad := subWithTenure(7, "cus_bad", 100)
		subRepo.On("ListActive", ctx).Return([]*entity.Subscription{good, bad}, nil).Once()
		subRepo.On("GetActiveByCustomerID", ctx, "cus_good").Return(good, nil).Once()
		subRepo.On("GetActiveByCustomerID", ctx, "cus_bad").
			Return(nil, domainErrors.ErrNoActiveSubscription).Once()
		usageRepo.On("ListRecordedSince", ctx, int64(6), mock.AnythingOfType("time.Time")).
			Return([]*entity.UsageRecord{}, nil).Once()
		usageRepo.On("ListBounded", ctx, int64(6)).Return([]*entity.UsageRecord{}, nil).Once()
		scoreRepo.On("Upsert", ctx, mock.Anything).Return(nil).Once()

		scored, err := scorer.ScoreAllActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, scored)
	})
}
