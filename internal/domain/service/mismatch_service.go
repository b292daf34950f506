package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/moneyradar/backend/internal/domain/entity"
	"github.com/moneyradar/backend/internal/domain/repository"
)

// Mismatch classifications.
const (
	MismatchUnderpriced = "underpriced"
	MismatchOverpriced  = "overpriced"
	MismatchAppropriate = "appropriate"
	MismatchNoData      = "no_data"
)

// Mismatch describes one subscription's usage-to-price fit.
type Mismatch struct {
	SubscriptionID int64              `json:"subscription_id"`
	CustomerID     string             `json:"customer_id"`
	PlanName       string             `json:"plan_name"`
	MRR            float64            `json:"mrr"`
	Utilization    float64            `json:"utilization"`
	UsageDetails   map[string]float64 `json:"usage_details"`
	Type           string             `json:"type"`
	Recommendation string             `json:"recommendation,omitempty"`
}

// MismatchReport buckets the analyzed subscriptions.
type MismatchReport struct {
	UpgradeCandidates   []*Mismatch `json:"upgrade_candidates"`
	OverpricedCustomers []*Mismatch `json:"overpriced_customers"`
}

// MispricedPlan flags a plan whose customers are mostly hitting limits.
type MispricedPlan struct {
	PlanID              int64   `json:"plan_id"`
	PlanName            string  `json:"plan_name"`
	HighUsagePercentage float64 `json:"high_usage_percentage"`
	TotalCustomers      int     `json:"total_customers"`
	Recommendation      string  `json:"recommendation"`
}

// MismatchDetector finds gaps between what customers use and what they pay
// for. Utilization above the threshold marks an upgrade candidate; below
// 1-threshold marks an overpriced customer.
type MismatchDetector struct {
	subRepo   repository.SubscriptionRepository
	planRepo  repository.PlanRepository
	usageRepo repository.UsageRepository
	alertRepo repository.AlertRepository
	threshold float64
	logger    *zap.Logger
}

// NewMismatchDetector creates a mismatch detector with the given
// utilization threshold (0.7 by default config).
func NewMismatchDetector(
	subRepo repository.SubscriptionRepository,
	planRepo repository.PlanRepository,
	usageRepo repository.UsageRepository,
	alertRepo repository.AlertRepository,
	threshold float64,
	logger *zap.Logger,
) *MismatchDetector {
	return &MismatchDetector{
		subRepo:   subRepo,
		planRepo:  planRepo,
		usageRepo: usageRepo,
		alertRepo: alertRepo,
		threshold: threshold,
		logger:    logger,
	}
}

// AnalyzeAll classifies every active subscription and raises alerts for
// the mismatched ones.
func (d *MismatchDetector) AnalyzeAll(ctx context.Context) (*MismatchReport, error) {
	subs, err := d.subRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	report := &MismatchReport{
		UpgradeCandidates:   []*Mismatch{},
		OverpricedCustomers: []*Mismatch{},
	}
	for _, sub := range subs {
		mismatch, err := d.analyzeSubscription(ctx, sub)
		if err != nil {
			return nil, err
		}
		switch mismatch.Type {
		case MismatchUnderpriced:
			report.UpgradeCandidates = append(report.UpgradeCandidates, mismatch)
		case MismatchOverpriced:
			report.OverpricedCustomers = append(report.OverpricedCustomers, mismatch)
		}
	}
	return report, nil
}

func (d *MismatchDetector) analyzeSubscription(ctx context.Context, sub *entity.Subscription) (*Mismatch, error) {
	usage, err := d.usageSummary(ctx, sub)
	if err != nil {
		return nil, err
	}
	if len(usage) == 0 {
		return &Mismatch{SubscriptionID: sub.ID, Type: MismatchNoData}, nil
	}

	plan, err := d.planRepo.GetByID(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}

	utilization := meanUtilization(usage)
	mismatch := &Mismatch{
		SubscriptionID: sub.ID,
		CustomerID:     sub.CustomerID,
		PlanName:       plan.Name,
		MRR:            sub.MRR,
		Utilization:    utilization,
		UsageDetails:   usage,
		Type:           MismatchAppropriate,
	}

	switch {
	case utilization > d.threshold:
		mismatch.Type = MismatchUnderpriced
		mismatch.Recommendation = "Upgrade candidate - high usage"
		if err := d.raiseAlert(ctx, sub, entity.AlertUsageMismatchHigh, entity.SeverityWarning,
			fmt.Sprintf("Upgrade Candidate: %s", sub.CustomerID),
			fmt.Sprintf("Customer is using %.1f%% of plan limits", utilization*100),
			usage,
			d.suggestUpgrade(ctx, plan),
		); err != nil {
			return nil, err
		}

	case utilization < 1-d.threshold:
		mismatch.Type = MismatchOverpriced
		mismatch.Recommendation = "Customer may be overpaying"
		if err := d.raiseAlert(ctx, sub, entity.AlertUsageMismatchLow, entity.SeverityInformational,
			fmt.Sprintf("Low Utilization: %s", sub.CustomerID),
			fmt.Sprintf("Customer is only using %.1f%% of plan limits", utilization*100),
			usage,
			"Consider offering a more appropriate plan",
		); err != nil {
			return nil, err
		}
	}
	return mismatch, nil
}

// usageSummary returns per-metric utilization for the subscription's
// current billing period. Metrics without a positive limit are skipped.
func (d *MismatchDetector) usageSummary(ctx context.Context, sub *entity.Subscription) (map[string]float64, error) {
	records, err := d.usageRepo.ListForPeriod(ctx, sub.ID, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
	if err != nil {
		return nil, err
	}

	summary := make(map[string]float64)
	for _, record := range records {
		if record.Limit != nil && *record.Limit > 0 {
			summary[record.MetricName] = record.Quantity / *record.Limit
		}
	}
	return summary, nil
}

func (d *MismatchDetector) suggestUpgrade(ctx context.Context, plan *entity.Plan) string {
	upgrades, err := d.planRepo.ListUpgrades(ctx, plan.ProductID, plan.PriceMonthly)
	if err != nil || len(upgrades) == 0 {
		return "No higher tier available - consider custom pricing"
	}
	next := upgrades[0]
	increase := next.PriceMonthly - plan.PriceMonthly
	return fmt.Sprintf("Upgrade to %s ($%.2f/mo) for $%.2f additional MRR", next.Name, next.PriceMonthly, increase)
}

func (d *MismatchDetector) raiseAlert(
	ctx context.Context,
	sub *entity.Subscription,
	alertType entity.AlertType,
	severity entity.AlertSeverity,
	title, description string,
	usage map[string]float64,
	action string,
) error {
	exists, err := d.alertRepo.HasUnresolved(ctx, sub.CustomerID, alertType)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	alert := entity.NewAlert(alertType, severity, sub.CustomerID)
	alert.SubscriptionID = &sub.ID
	alert.Title = title
	alert.Description = description
	alert.RecommendedAction = action
	alert.Data = make(map[string]any, len(usage))
	for metric, utilization := range usage {
		alert.Data[metric] = utilization
	}
	return d.alertRepo.Create(ctx, alert)
}

// DetectFeatureMispricing flags active plans where more than half of the
// customers run above 80% utilization, a sign the tier's limits or price
// are off.
func (d *MismatchDetector) DetectFeatureMispricing(ctx context.Context) ([]*MispricedPlan, error) {
	plans, err := d.planRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	results := []*MispricedPlan{}
	for _, plan := range plans {
		subs, err := d.subRepo.ListActiveByPlan(ctx, plan.ID)
		if err != nil {
			return nil, err
		}
		if len(subs) == 0 {
			continue
		}

		highUsage := 0
		for _, sub := range subs {
			usage, err := d.usageSummary(ctx, sub)
			if err != nil {
				return nil, err
			}
			if len(usage) > 0 && meanUtilization(usage) > 0.8 {
				highUsage++
			}
		}

		if float64(highUsage)/float64(len(subs)) > 0.5 {
			results = append(results, &MispricedPlan{
				PlanID:              plan.ID,
				PlanName:            plan.Name,
				HighUsagePercentage: float64(highUsage) / float64(len(subs)) * 100,
				TotalCustomers:      len(subs),
				Recommendation:      "Consider increasing limits or price for this plan",
			})
		}
	}
	return results, nil
}

func meanUtilization(usage map[string]float64) float64 {
	if len(usage) == 0 {
		return 0
	}
	sum := 0.0
	for _, u := range usage {
		sum += u
	}
	return sum / float64(len(usage))
}
