package tasks

import (
	"context"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/moneyradar/backend/internal/domain/service"
)

const (
	TypeRiskScan     = "alerts:risk_scan"
	TypeMismatchScan = "alerts:mismatch_scan"
	TypeScoreRefresh = "scores:refresh"
)

// DetectionJobHandler runs the churn-risk and usage-mismatch rule engines.
type DetectionJobHandler struct {
	risks      *service.RiskDetector
	mismatches *service.MismatchDetector
	scorer     *service.ExpansionScorer
	logger     *zap.Logger
}

// NewDetectionJobHandler creates a new detection job handler
func NewDetectionJobHandler(
	risks *service.RiskDetector,
	mismatches *service.MismatchDetector,
	scorer *service.ExpansionScorer,
	logger *zap.Logger,
) *DetectionJobHandler {
	return &DetectionJobHandler{
		risks:      risks,
		mismatches: mismatches,
		scorer:     scorer,
		logger:     logger,
	}
}

// HandleRiskScan runs all churn-risk detectors.
func (h *DetectionJobHandler) HandleRiskScan(ctx context.Context, t *asynq.Task) error {
	report, err := h.risks.ScanAll(ctx)
	if err != nil {
		return err
	}
	h.logger.Info("Risk scan completed",
		zap.Int("critical", len(report.Critical)),
		zap.Int("warning", len(report.Warning)),
		zap.Int("informational", len(report.Informational)),
	)
	return nil
}

// HandleMismatchScan runs the usage-mismatch analysis across active
// subscriptions.
func (h *DetectionJobHandler) HandleMismatchScan(ctx context.Context, t *asynq.Task) error {
	report, err := h.mismatches.AnalyzeAll(ctx)
	if err != nil {
		return err
	}
	h.logger.Info("Mismatch scan completed",
		zap.Int("upgrade_candidates", len(report.UpgradeCandidates)),
		zap.Int("overpriced_customers", len(report.OverpricedCustomers)),
	)
	return nil
}

// HandleScoreRefresh recomputes expansion scores for all active customers.
func (h *DetectionJobHandler) HandleScoreRefresh(ctx context.Context, t *asynq.Task) error {
	scored, err := h.scorer.ScoreAllActive(ctx)
	if err != nil {
		return err
	}
	h.logger.Info("Expansion scores refreshed",
		zap.Int("customers_scored", scored),
	)
	return nil
}

// ScheduleDetectionJobs registers the recurring rule-engine crons.
func ScheduleDetectionJobs(scheduler *asynq.Scheduler) error {
	if _, err := scheduler.Register("0 */6 * * *", asynq.NewTask(TypeRiskScan, nil)); err != nil {
		return err
	}
	if _, err := scheduler.Register("0 3 * * *", asynq.NewTask(TypeMismatchScan, nil)); err != nil {
		return err
	}
	if _, err := scheduler.Register("0 4 * * *", asynq.NewTask(TypeScoreRefresh, nil)); err != nil {
		return err
	}
	return nil
}
