package entity

import "time"

type AlertSeverity string

const (
	SeverityInformational AlertSeverity = "informational"
	SeverityWarning       AlertSeverity = "warning"
	SeverityCritical      AlertSeverity = "critical"
)

type AlertType string

const (
	AlertDecliningUsage    AlertType = "declining_usage"
	AlertPaymentRetry      AlertType = "payment_retry"
	AlertPlanDowngrade     AlertType = "plan_downgrade"
	AlertUsageMismatchHigh AlertType = "usage_mismatch_high" // heavy usage, low tier
	AlertUsageMismatchLow  AlertType = "usage_mismatch_low"  // light usage, high tier
	AlertMRRDecline        AlertType = "mrr_decline"
	AlertChurnRisk         AlertType = "churn_risk"
)

// Alert is a categorized revenue-risk finding produced by the rule engines.
type Alert struct {
	ID                int64
	AlertType         AlertType
	Severity          AlertSeverity
	SubscriptionID    *int64
	CustomerID        string
	Title             string
	Description       string
	Data              map[string]any
	RecommendedAction string
	IsResolved        bool
	ResolvedAt        *time.Time
	CreatedAt         time.Time
}

// NewAlert creates an unresolved alert.
func NewAlert(alertType AlertType, severity AlertSeverity, customerID string) *Alert {
	return &Alert{
		AlertType:  alertType,
		Severity:   severity,
		CustomerID: customerID,
		CreatedAt:  time.Now().UTC(),
	}
}

// Resolve marks the alert resolved at the given time.
func (a *Alert) Resolve(at time.Time) {
	a.IsResolved = true
	a.ResolvedAt = &at
}
