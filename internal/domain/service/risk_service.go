package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/moneyradar/backend/internal/domain/entity"
	"github.com/moneyradar/backend/internal/domain/repository"
)

// RiskThresholds are the tunables of the risk detector, loaded from config.
type RiskThresholds struct {
	// MRRDeclineWarningPercent triggers a warning alert when MRR falls by
	// more than this percentage across the lookback window.
	MRRDeclineWarningPercent float64

	// MRRDeclineCriticalPercent escalates the decline alert to critical.
	MRRDeclineCriticalPercent float64
}

// RiskReport groups freshly raised alerts by severity.
type RiskReport struct {
	Critical      []*entity.Alert
	Warning       []*entity.Alert
	Informational []*entity.Alert
}

// RiskDetector runs the early-warning checks: declining usage, payment
// retries, plan downgrades and fleet-wide MRR decline. Each check dedups
// against unresolved alerts of the same type.
type RiskDetector struct {
	subRepo      repository.SubscriptionRepository
	eventRepo    repository.RevenueEventRepository
	snapshotRepo repository.SnapshotRepository
	usageRepo    repository.UsageRepository
	alertRepo    repository.AlertRepository
	thresholds   RiskThresholds
	logger       *zap.Logger
}

// NewRiskDetector creates a risk detector.
func NewRiskDetector(
	subRepo repository.SubscriptionRepository,
	eventRepo repository.RevenueEventRepository,
	snapshotRepo repository.SnapshotRepository,
	usageRepo repository.UsageRepository,
	alertRepo repository.AlertRepository,
	thresholds RiskThresholds,
	logger *zap.Logger,
) *RiskDetector {
	return &RiskDetector{
		subRepo:      subRepo,
		eventRepo:    eventRepo,
		snapshotRepo: snapshotRepo,
		usageRepo:    usageRepo,
		alertRepo:    alertRepo,
		thresholds:   thresholds,
		logger:       logger,
	}
}

// ScanAll runs every detection check and returns the new alerts grouped
// by severity.
func (d *RiskDetector) ScanAll(ctx context.Context) (*RiskReport, error) {
	report := &RiskReport{
		Critical:      []*entity.Alert{},
		Warning:       []*entity.Alert{},
		Informational: []*entity.Alert{},
	}

	var all []*entity.Alert
	for _, check := range []func(context.Context) ([]*entity.Alert, error){
		func(ctx context.Context) ([]*entity.Alert, error) { return d.DetectDecliningUsage(ctx, 30) },
		d.DetectPaymentIssues,
		func(ctx context.Context) ([]*entity.Alert, error) { return d.DetectDowngrades(ctx, 30) },
		func(ctx context.Context) ([]*entity.Alert, error) { return d.DetectMRRDecline(ctx, 7) },
	} {
		alerts, err := check(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, alerts...)
	}

	for _, alert := range all {
		switch alert.Severity {
		case entity.SeverityCritical:
			report.Critical = append(report.Critical, alert)
		case entity.SeverityWarning:
			report.Warning = append(report.Warning, alert)
		default:
			report.Informational = append(report.Informational, alert)
		}
	}
	return report, nil
}

// DetectDecliningUsage alerts on active subscriptions whose usage fell
// more than 20% when comparing the first and second half of the lookback
// window.
func (d *RiskDetector) DetectDecliningUsage(ctx context.Context, lookbackDays int) ([]*entity.Alert, error) {
	subs, err := d.subRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	alerts := []*entity.Alert{}
	for _, sub := range subs {
		trend, err := d.usageTrend(ctx, sub.ID, lookbackDays)
		if err != nil {
			return nil, err
		}
		if trend >= -0.2 {
			continue
		}

		alert, err := d.raiseAlert(ctx, entity.AlertDecliningUsage, entity.SeverityWarning, &sub.ID, sub.CustomerID,
			fmt.Sprintf("Declining Usage: %s", sub.CustomerID),
			fmt.Sprintf("Usage declined %.1f%% over %d days", abs(trend)*100, lookbackDays),
			map[string]any{"trend": trend, "lookback_days": lookbackDays},
			"Reach out to understand usage decline",
		)
		if err != nil {
			return nil, err
		}
		if alert != nil {
			alerts = append(alerts, alert)
		}
	}
	return alerts, nil
}

// DetectPaymentIssues alerts on payment failures from the last 7 days.
// Fewer than 3 attempts is a warning; 3 or more is critical.
func (d *RiskDetector) DetectPaymentIssues(ctx context.Context) ([]*entity.Alert, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -7)
	failures, err := d.eventRepo.ListByType(ctx, entity.EventPaymentFailed, cutoff)
	if err != nil {
		return nil, err
	}

	alerts := []*entity.Alert{}
	for _, event := range failures {
		sub, err := d.subRepo.GetByID(ctx, event.SubscriptionID)
		if err != nil {
			continue
		}

		attempts := event.AttemptCount()
		severity := entity.SeverityWarning
		if attempts >= 3 {
			severity = entity.SeverityCritical
		}

		alert, err := d.raiseAlert(ctx, entity.AlertPaymentRetry, severity, &sub.ID, sub.CustomerID,
			fmt.Sprintf("Payment Issue: %s", sub.CustomerID),
			fmt.Sprintf("Payment failed (attempt %d)", attempts),
			map[string]any{"retry_count": attempts, "amount": event.Amount},
			"Contact customer about payment method",
		)
		if err != nil {
			return nil, err
		}
		if alert != nil {
			alerts = append(alerts, alert)
		}
	}
	return alerts, nil
}

// DetectDowngrades alerts on plan downgrades within the lookback window.
func (d *RiskDetector) DetectDowngrades(ctx context.Context, lookbackDays int) ([]*entity.Alert, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -lookbackDays)
	downgrades, err := d.eventRepo.ListByType(ctx, entity.EventSubscriptionDowngraded, cutoff)
	if err != nil {
		return nil, err
	}

	alerts := []*entity.Alert{}
	for _, event := range downgrades {
		sub, err := d.subRepo.GetByID(ctx, event.SubscriptionID)
		if err != nil {
			continue
		}

		alert, err := d.raiseAlert(ctx, entity.AlertPlanDowngrade, entity.SeverityWarning, &sub.ID, sub.CustomerID,
			fmt.Sprintf("Recent Downgrade: %s", sub.CustomerID),
			fmt.Sprintf("Plan downgraded, MRR decreased by $%.2f", abs(event.MRRDelta)),
			map[string]any{"mrr_delta": event.MRRDelta, "occurred_at": event.OccurredAt.Format(time.RFC3339)},
			"Follow up to understand reason for downgrade",
		)
		if err != nil {
			return nil, err
		}
		if alert != nil {
			alerts = append(alerts, alert)
		}
	}
	return alerts, nil
}

// DetectMRRDecline compares the oldest and newest snapshot in the window
// and alerts when total MRR fell past the configured thresholds.
func (d *RiskDetector) DetectMRRDecline(ctx context.Context, lookbackDays int) ([]*entity.Alert, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -lookbackDays)
	snapshots, err := d.snapshotRepo.ListSince(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	if len(snapshots) < 2 {
		return []*entity.Alert{}, nil
	}

	earliest := snapshots[0]
	latest := snapshots[len(snapshots)-1]
	if earliest.TotalMRR == 0 {
		return []*entity.Alert{}, nil
	}

	declinePercent := (latest.TotalMRR - earliest.TotalMRR) / earliest.TotalMRR * 100
	if declinePercent >= 0 {
		return []*entity.Alert{}, nil
	}

	absDecline := -declinePercent
	var severity entity.AlertSeverity
	switch {
	case absDecline > d.thresholds.MRRDeclineCriticalPercent:
		severity = entity.SeverityCritical
	case absDecline > d.thresholds.MRRDeclineWarningPercent:
		severity = entity.SeverityWarning
	default:
		return []*entity.Alert{}, nil
	}

	alert := entity.NewAlert(entity.AlertMRRDecline, severity, "")
	alert.Title = "MRR Decline Alert"
	alert.Description = fmt.Sprintf("MRR declined %.1f%% over %d days", absDecline, lookbackDays)
	alert.Data = map[string]any{
		"decline_percent": declinePercent,
		"current_mrr":     latest.TotalMRR,
		"previous_mrr":    earliest.TotalMRR,
		"churned_mrr":     latest.ChurnedMRR,
		"new_mrr":         latest.NewMRR,
	}
	alert.RecommendedAction = "Review churn reasons and retention strategy"
	if err := d.alertRepo.Create(ctx, alert); err != nil {
		return nil, err
	}

	d.logger.Warn("mrr decline detected",
		zap.Float64("decline_percent", absDecline),
		zap.String("severity", string(severity)),
	)
	return []*entity.Alert{alert}, nil
}

// usageTrend compares the average quantity of the first and second half
// of the subscription's recent usage records. Fewer than two records
// yields a flat trend.
func (d *RiskDetector) usageTrend(ctx context.Context, subscriptionID int64, days int) (float64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	records, err := d.usageRepo.ListRecordedSince(ctx, subscriptionID, cutoff)
	if err != nil {
		return 0, err
	}
	return usageTrendOf(records), nil
}

func (d *RiskDetector) raiseAlert(
	ctx context.Context,
	alertType entity.AlertType,
	severity entity.AlertSeverity,
	subscriptionID *int64,
	customerID string,
	title, description string,
	data map[string]any,
	action string,
) (*entity.Alert, error) {
	exists, err := d.alertRepo.HasUnresolved(ctx, customerID, alertType)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, nil
	}

	alert := entity.NewAlert(alertType, severity, customerID)
	alert.SubscriptionID = subscriptionID
	alert.Title = title
	alert.Description = description
	alert.Data = data
	alert.RecommendedAction = action
	if err := d.alertRepo.Create(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// usageTrendOf is the shared first-half/second-half trend computation
// used by both the risk detector and the expansion scorer.
func usageTrendOf(records []*entity.UsageRecord) float64 {
	if len(records) < 2 {
		return 0
	}

	midpoint := len(records) / 2
	firstAvg := 0.0
	for _, r := range records[:midpoint] {
		firstAvg += r.Quantity
	}
	firstAvg /= float64(midpoint)

	secondAvg := 0.0
	for _, r := range records[midpoint:] {
		secondAvg += r.Quantity
	}
	secondAvg /= float64(len(records) - midpoint)

	if firstAvg == 0 {
		return 0
	}
	return (secondAvg - firstAvg) / firstAvg
}
