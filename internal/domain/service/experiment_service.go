package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/moneyradar/backend/internal/domain/entity"
	domainErrors "github.com/moneyradar/backend/internal/domain/errors"
	"github.com/moneyradar/backend/internal/domain/repository"
)

// ExperimentAnalysis is the evaluation of a running or completed
// experiment against its baseline and target.
type ExperimentAnalysis struct {
	ExperimentID       int64    `json:"experiment_id"`
	Name               string   `json:"name"`
	Status             string   `json:"status"`
	Metric             string   `json:"metric"`
	BaselineValue      float64  `json:"baseline_value"`
	CurrentValue       float64  `json:"current_value"`
	TargetValue        *float64 `json:"target_value,omitempty"`
	Improvement        float64  `json:"improvement"`
	ImprovementPercent float64  `json:"improvement_percent"`
	TargetMet          bool     `json:"target_met"`
	DaysRunning        int      `json:"days_running"`
}

// ExperimentSummary is the fleet-wide report over all experiments.
type ExperimentSummary struct {
	TotalExperiments      int            `json:"total_experiments"`
	ByStatus              map[string]int `json:"by_status"`
	SuccessfulExperiments int            `json:"successful_experiments"`
	SuccessRate           float64        `json:"success_rate"`
}

// Learning is a distilled outcome of a past experiment for a metric.
type Learning struct {
	Name               string  `json:"name"`
	Hypothesis         string  `json:"hypothesis"`
	Change             string  `json:"change"`
	ImprovementPercent float64 `json:"improvement_percent"`
	Outcome            string  `json:"outcome"`
	EndedAt            string  `json:"ended_at,omitempty"`
}

// ExperimentTracker manages the pricing-experiment lifecycle and evaluates
// tracked metrics over the affected segment.
type ExperimentTracker struct {
	experimentRepo repository.ExperimentRepository
	subRepo        repository.SubscriptionRepository
	logger         *zap.Logger
}

// NewExperimentTracker creates an experiment tracker.
func NewExperimentTracker(
	experimentRepo repository.ExperimentRepository,
	subRepo repository.SubscriptionRepository,
	logger *zap.Logger,
) *ExperimentTracker {
	return &ExperimentTracker{
		experimentRepo: experimentRepo,
		subRepo:        subRepo,
		logger:         logger,
	}
}

// Create registers a draft experiment.
func (t *ExperimentTracker) Create(ctx context.Context, name, hypothesis, changeDescription, metricTracked string, segment map[string]any, baseline, target *float64) (*entity.Experiment, error) {
	experiment := entity.NewExperiment(name, hypothesis, changeDescription, metricTracked, segment)
	experiment.BaselineValue = baseline
	experiment.TargetValue = target
	if err := t.experimentRepo.Create(ctx, experiment); err != nil {
		return nil, fmt.Errorf("create experiment: %w", err)
	}
	return experiment, nil
}

// Start moves a draft experiment to running, capturing the baseline when
// it was not supplied and splitting the segment into control/variant.
func (t *ExperimentTracker) Start(ctx context.Context, id int64) (*entity.Experiment, error) {
	experiment, err := t.experimentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if experiment.Status != entity.ExperimentDraft {
		return nil, domainErrors.ErrExperimentNotDraft
	}

	if experiment.BaselineValue == nil {
		baseline, err := t.calculateMetric(ctx, experiment)
		if err != nil {
			return nil, err
		}
		experiment.BaselineValue = &baseline
	}

	total, err := t.countSegment(ctx, experiment)
	if err != nil {
		return nil, err
	}
	experiment.ControlGroupSize = total / 2
	experiment.VariantGroupSize = total - total/2

	now := time.Now().UTC()
	experiment.Status = entity.ExperimentRunning
	experiment.StartedAt = &now
	if err := t.experimentRepo.Update(ctx, experiment); err != nil {
		return nil, err
	}

	t.logger.Info("experiment started",
		zap.Int64("experiment_id", experiment.ID),
		zap.String("name", experiment.Name),
		zap.Float64p("baseline", experiment.BaselineValue),
	)
	return experiment, nil
}

// Complete records results and closes the experiment.
func (t *ExperimentTracker) Complete(ctx context.Context, id int64, actualValue float64, outcome string) (*entity.Experiment, error) {
	experiment, err := t.experimentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if experiment.Status != entity.ExperimentRunning {
		return nil, domainErrors.ErrExperimentNotRunning
	}

	now := time.Now().UTC()
	experiment.ActualValue = &actualValue
	experiment.Outcome = outcome
	experiment.Status = entity.ExperimentCompleted
	experiment.EndedAt = &now
	if err := t.experimentRepo.Update(ctx, experiment); err != nil {
		return nil, err
	}
	return experiment, nil
}

// ListActive returns running experiments.
func (t *ExperimentTracker) ListActive(ctx context.Context) ([]*entity.Experiment, error) {
	return t.experimentRepo.ListByStatus(ctx, entity.ExperimentRunning)
}

// History returns completed experiments, optionally filtered by metric.
func (t *ExperimentTracker) History(ctx context.Context, metric string, limit int) ([]*entity.Experiment, error) {
	if limit <= 0 {
		limit = 50
	}
	return t.experimentRepo.ListCompleted(ctx, metric, limit)
}

// Analyze evaluates a started experiment against its baseline and target.
func (t *ExperimentTracker) Analyze(ctx context.Context, id int64) (*ExperimentAnalysis, error) {
	experiment, err := t.experimentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if experiment.Status != entity.ExperimentRunning && experiment.Status != entity.ExperimentCompleted {
		return nil, domainErrors.ErrExperimentNotRunning
	}

	current, err := t.calculateMetric(ctx, experiment)
	if err != nil {
		return nil, err
	}

	baseline := 0.0
	if experiment.BaselineValue != nil {
		baseline = *experiment.BaselineValue
	}
	improvement := 0.0
	improvementPercent := 0.0
	if baseline > 0 {
		improvement = current - baseline
		improvementPercent = improvement / baseline * 100
	}

	return &ExperimentAnalysis{
		ExperimentID:       experiment.ID,
		Name:               experiment.Name,
		Status:             string(experiment.Status),
		Metric:             experiment.MetricTracked,
		BaselineValue:      baseline,
		CurrentValue:       current,
		TargetValue:        experiment.TargetValue,
		Improvement:        improvement,
		ImprovementPercent: improvementPercent,
		TargetMet:          experiment.TargetMet(current),
		DaysRunning:        experiment.DaysRunning(time.Now().UTC()),
	}, nil
}

// calculateMetric computes the current value of the tracked metric over
// the experiment's segment. Unknown metrics evaluate to 0.
func (t *ExperimentTracker) calculateMetric(ctx context.Context, experiment *entity.Experiment) (float64, error) {
	var subs []*entity.Subscription
	var err error
	if planID, ok := experiment.SegmentPlanID(); ok {
		subs, err = t.subRepo.ListActiveByPlan(ctx, planID)
	} else {
		subs, err = t.subRepo.ListActive(ctx)
	}
	if err != nil {
		return 0, err
	}
	if len(subs) == 0 {
		return 0, nil
	}

	totalMRR := 0.0
	for _, sub := range subs {
		totalMRR += sub.MRR
	}

	switch experiment.MetricTracked {
	case entity.MetricARPU:
		return totalMRR / float64(len(subs)), nil
	case entity.MetricMRR:
		return totalMRR, nil
	case entity.MetricChurnRate:
		churned, err := t.subRepo.CountCanceledSince(ctx, time.Now().UTC().AddDate(0, 0, -30))
		if err != nil {
			return 0, err
		}
		return float64(churned) / float64(len(subs)) * 100, nil
	default:
		// conversion_rate needs trial data the system does not ingest.
		return 0, nil
	}
}

func (t *ExperimentTracker) countSegment(ctx context.Context, experiment *entity.Experiment) (int, error) {
	var subs []*entity.Subscription
	var err error
	if planID, ok := experiment.SegmentPlanID(); ok {
		subs, err = t.subRepo.ListActiveByPlan(ctx, planID)
	} else {
		subs, err = t.subRepo.ListActive(ctx)
	}
	if err != nil {
		return 0, err
	}
	return len(subs), nil
}

// ExperimentReporter builds summary reports and learnings from past
// experiments.
type ExperimentReporter struct {
	experimentRepo repository.ExperimentRepository
}

// NewExperimentReporter creates an experiment reporter.
func NewExperimentReporter(experimentRepo repository.ExperimentRepository) *ExperimentReporter {
	return &ExperimentReporter{experimentRepo: experimentRepo}
}

// Summary reports experiment counts by status and the success rate of
// completed experiments that met their target.
func (r *ExperimentReporter) Summary(ctx context.Context) (*ExperimentSummary, error) {
	experiments, err := r.experimentRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	summary := &ExperimentSummary{
		TotalExperiments: len(experiments),
		ByStatus:         make(map[string]int),
	}
	for _, exp := range experiments {
		summary.ByStatus[string(exp.Status)]++
		if exp.Status == entity.ExperimentCompleted && exp.ActualValue != nil && exp.TargetMet(*exp.ActualValue) {
			summary.SuccessfulExperiments++
		}
	}
	if summary.TotalExperiments > 0 {
		summary.SuccessRate = float64(summary.SuccessfulExperiments) / float64(summary.TotalExperiments) * 100
	}
	return summary, nil
}

// Learnings extracts outcomes of completed experiments for a metric.
func (r *ExperimentReporter) Learnings(ctx context.Context, metric string) ([]*Learning, error) {
	experiments, err := r.experimentRepo.ListCompleted(ctx, metric, 0)
	if err != nil {
		return nil, err
	}

	learnings := []*Learning{}
	for _, exp := range experiments {
		if exp.BaselineValue == nil || exp.ActualValue == nil || *exp.BaselineValue == 0 {
			continue
		}
		learning := &Learning{
			Name:               exp.Name,
			Hypothesis:         exp.Hypothesis,
			Change:             exp.ChangeDescription,
			ImprovementPercent: (*exp.ActualValue - *exp.BaselineValue) / *exp.BaselineValue * 100,
			Outcome:            exp.Outcome,
		}
		if exp.EndedAt != nil {
			learning.EndedAt = exp.EndedAt.Format(time.RFC3339)
		}
		learnings = append(learnings, learning)
	}
	return learnings, nil
}
