package entity

import "time"

type ExperimentStatus string

const (
	ExperimentDraft     ExperimentStatus = "draft"
	ExperimentRunning   ExperimentStatus = "running"
	ExperimentCompleted ExperimentStatus = "completed"
	ExperimentCanceled  ExperimentStatus = "canceled"
)

// Metrics an experiment can track.
const (
	MetricARPU           = "arpu"
	MetricMRR            = "mrr"
	MetricChurnRate      = "churn_rate"
	MetricConversionRate = "conversion_rate"
)

// Experiment is a pricing or packaging experiment with its hypothesis,
// the segment it targets and the recorded outcome.
type Experiment struct {
	ID         int64
	Name       string
	Hypothesis string

	// AffectedSegment filters the subscriptions the experiment applies to,
	// e.g. {"plan_id": 3}.
	AffectedSegment  map[string]any
	ControlGroupSize int
	VariantGroupSize int

	ChangeDescription string
	MetricTracked     string

	BaselineValue *float64
	TargetValue   *float64
	ActualValue   *float64
	Outcome       string

	Status    ExperimentStatus
	StartedAt *time.Time
	EndedAt   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewExperiment creates a draft experiment.
func NewExperiment(name, hypothesis, changeDescription, metricTracked string, segment map[string]any) *Experiment {
	now := time.Now().UTC()
	return &Experiment{
		Name:              name,
		Hypothesis:        hypothesis,
		AffectedSegment:   segment,
		ChangeDescription: changeDescription,
		MetricTracked:     metricTracked,
		Status:            ExperimentDraft,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// SegmentPlanID returns the plan filter from the affected segment, if any.
func (e *Experiment) SegmentPlanID() (int64, bool) {
	if e.AffectedSegment == nil {
		return 0, false
	}
	switch v := e.AffectedSegment["plan_id"].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

// TargetMet reports whether value reached the target, honoring direction:
// a target above baseline must be reached from below, a target below
// baseline from above.
func (e *Experiment) TargetMet(value float64) bool {
	if e.TargetValue == nil {
		return false
	}
	baseline := 0.0
	if e.BaselineValue != nil {
		baseline = *e.BaselineValue
	}
	if *e.TargetValue > baseline {
		return value >= *e.TargetValue
	}
	return value <= *e.TargetValue
}

// DaysRunning returns whole days since the experiment started, 0 if it
// has not started.
func (e *Experiment) DaysRunning(now time.Time) int {
	if e.StartedAt == nil {
		return 0
	}
	return int(now.Sub(*e.StartedAt).Hours() / 24)
}
