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

func TestExperimentTracker(t *testing.T) {
	ctx := context.Background()

	newTracker := func() (*service.ExperimentTracker, *mocks.MockExperimentRepository, *mocks.MockSubscriptionRepository) {
		experimentRepo := mocks.NewMockExperimentRepository()
		subRepo := mocks.NewMockSubscriptionRepository()
		tracker := service.NewExperimentTracker(experimentRepo, subRepo, zap.NewNop())
		return tracker, experimentRepo, subRepo
	}

	activeSubs := func(mrrs ...float64) []*entity.Subscription {
		subs := make([]*entity.Subscription, len(mrrs))
		for i, mrr := range mrrs {
			subs[i] = &entity.Subscription{ID: int64(i + 1), MRR: mrr, Status: entity.SubscriptionActive}
		}
		return subs
	}

	t.Run("create yields a draft", func(t *testing.T) {
		tracker, experimentRepo, _ := newTracker()

		experimentRepo.On("Create", ctx, mock.AnythingOfType("*entity.Experiment")).Return(nil).Once()

		target := 120.0
		experiment, err := tracker.Create(ctx, "price bump", "raising Pro price keeps ARPU",
			"Pro $99 -> $119", entity.MetricARPU, map[string]any{"plan_id": 7}, nil, &target)
		require.NoError(t, err)
		assert.Equal(t, entity.ExperimentDraft, experiment.Status)
		assert.Equal(t, 120.0, *experiment.TargetValue)
		assert.Nil(t, experiment.BaselineValue)
	})

	t.Run("start captures baseline and splits the segment", func(t *testing.T) {
		tracker, experimentRepo, subRepo := newTracker()

		draft := entity.NewExperiment("price bump", "h", "c", entity.MetricARPU, map[string]any{"plan_id": 7})
		draft.ID = 1
		experimentRepo.On("GetByID", ctx, int64(1)).Return(draft, nil).Once()
		subRepo.On("ListActiveByPlan", ctx, int64(7)).Return(activeSubs(100, 100, 100, 200, 0), nil).Twice()
		experimentRepo.On("Update", ctx, draft).Return(nil).Once()

		started, err := tracker.Start(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, entity.ExperimentRunning, started.Status)
		require.NotNil(t, started.BaselineValue)
		assert.InDelta(t, 100.0, *started.BaselineValue, 0.001)
		assert.Equal(t, 2, started.ControlGroupSize)
		assert.Equal(t, 3, started.VariantGroupSize)
		assert.NotNil(t, started.StartedAt)
	})

	t.Run("start refuses a running experiment", func(t *testing.T) {
		tracker, experimentRepo, _ := newTracker()

		running := entity.NewExperiment("x", "h", "c", entity.MetricMRR, nil)
		running.ID = 2
		running.Status = entity.ExperimentRunning
		experimentRepo.On("GetByID", ctx, int64(2)).Return(running, nil).Once()

		_, err := tracker.Start(ctx, 2)
		assert.ErrorIs(t, err, domainErrors.ErrExperimentNotDraft)
	})

	t.Run("complete records the outcome", func(t *testing.T) {
		tracker, experimentRepo, _ := newTracker()

		running := entity.NewExperiment("x", "h", "c", entity.MetricARPU, nil)
		running.ID = 3
		running.Status = entity.ExperimentRunning
		experimentRepo.On("GetByID", ctx, int64(3)).Return(running, nil).Once()
		experimentRepo.On("Update", ctx, running).Return(nil).Once()

		done, err := tracker.Complete(ctx, 3, 118.0, "ARPU rose without added churn")
		require.NoError(t, err)
		assert.Equal(t, entity.ExperimentCompleted, done.Status)
		assert.Equal(t, 118.0, *done.ActualValue)
		assert.NotNil(t, done.EndedAt)
	})

	t.Run("analyze compares current metric against baseline and target", func(t *testing.T) {
		tracker, experimentRepo, subRepo := newTracker()

		baseline, target := 100.0, 110.0
		started := time.Now().UTC().AddDate(0, 0, -14)
		running := entity.NewExperiment("price bump", "h", "c", entity.MetricARPU, map[string]any{"plan_id": 7})
		running.ID = 4
		running.Status = entity.ExperimentRunning
		running.BaselineValue = &baseline
		running.TargetValue = &target
		running.StartedAt = &started
		experimentRepo.On("GetByID", ctx, int64(4)).Return(running, nil).Once()
		subRepo.On("ListActiveByPlan", ctx, int64(7)).Return(activeSubs(115, 115), nil).Once()

		analysis, err := tracker.Analyze(ctx, 4)
		require.NoError(t, err)
		assert.InDelta(t, 115.0, analysis.CurrentValue, 0.001)
		assert.InDelta(t, 15.0, analysis.Improvement, 0.001)
		assert.InDelta(t, 15.0, analysis.ImprovementPercent, 0.001)
		assert.True(t, analysis.TargetMet)
		assert.Equal(t, 14, analysis.DaysRunning)
	})

	t.Run("analyze refuses a draft", func(t *testing.T) {
		tracker, experimentRepo, _ := newTracker()

		draft := entity.NewExperiment("x", "h", "c", entity.MetricARPU, nil)
		draft.ID = 5
		experimentRepo.On("GetByID", ctx, int64(5)).Return(draft, nil).Once()

		_, err := tracker.Analyze(ctx, 5)
		assert.ErrorIs(t, err, domainErrors.ErrExperimentNotRunning)
	})

	t.Run("churn rate counts recent cancellations against actives", func(t *testing.T) {
		tracker, experimentRepo, subRepo := newTracker()

		baseline := 5.0
		started := time.Now().UTC().AddDate(0, 0, -7)
		running := entity.NewExperiment("retention", "h", "c", entity.MetricChurnRate, nil)
		running.ID = 6
		running.Status = entity.ExperimentRunning
		running.BaselineValue = &baseline
		running.StartedAt = &started
		experimentRepo.On("GetByID", ctx, int64(6)).Return(running, nil).Once()
		subRepo.On("ListActive", ctx).Return(activeSubs(100, 100, 100, 100), nil).Once()
		subRepo.On("CountCanceledSince", ctx, mock.AnythingOfType("time.Time")).Return(1, nil).Once()

		analysis, err := tracker.Analyze(ctx, 6)
		require.NoError(t, err)
		assert.InDelta(t, 25.0, analysis.CurrentValue, 0.001)
	})
}

func TestExperimentReporter(t *testing.T) {
	ctx := context.Background()

	completed := func(name string, baseline, actual float64, target *float64, outcome string) *entity.Experiment {
		ended := time.Now().UTC()
		return &entity.Experiment{
			Name:          name,
			Hypothesis:    "h",
			MetricTracked: entity.MetricARPU,
			Status:        entity.ExperimentCompleted,
			BaselineValue: &baseline,
			ActualValue:   &actual,
			TargetValue:   target,
			Outcome:       outcome,
			EndedAt:       &ended,
		}
	}

	t.Run("summary counts statuses and success rate", func(t *testing.T) {
		experimentRepo := mocks.NewMockExperimentRepository()
		reporter := service.NewExperimentReporter(experimentRepo)

		target := 110.0
		experimentRepo.On("ListAll", ctx).Return([]*entity.Experiment{
			{Status: entity.ExperimentDraft},
			{Status: entity.ExperimentRunning},
			completed("win", 100, 115, &target, "worked"),
			completed("loss", 100, 95, &target, "did not move the metric"),
		}, nil).Once()

		summary, err := reporter.Summary(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, summary.TotalExperiments)
		assert.Equal(t, 2, summary.ByStatus["completed"])
		assert.Equal(t, 1, summary.SuccessfulExperiments)
		assert.InDelta(t, 25.0, summary.SuccessRate, 0.001)
	})

	t.Run("learnings compute improvement per experiment", func(t *testing.T) {
		experimentRepo := mocks.NewMockExperimentRepository()
		reporter := service.NewExperimentReporter(experimentRepo)

		experimentRepo.On("ListCompleted", ctx, entity.MetricARPU, 0).Return([]*entity.Experiment{
			completed("win", 100, 115, nil, "worked"),
			{Status: entity.ExperimentCompleted, Name: "incomplete"},
		}, nil).Once()

		learnings, err := reporter.Learnings(ctx, entity.MetricARPU)
		require.NoError(t, err)
		require.Len(t, learnings, 1)
		assert.Equal(t, "win", learnings[0].Name)
		assert.InDelta(t, 15.0, learnings[0].ImprovementPercent, 0.001)
	})
}
