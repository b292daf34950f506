package entity

import "time"

// Expansion categories assigned by the scorer.
const (
	CategorySafeToUpsell  = "safe_to_upsell"
	CategoryNeutral       = "neutral"
	CategoryDoNotTouch    = "do_not_touch"
	CategoryLikelyToChurn = "likely_to_churn"
)

// CustomerScore is the expansion-readiness assessment for a customer,
// a 0-100 score plus the factors it was derived from. One row per customer,
// overwritten on each recalculation.
type CustomerScore struct {
	ID                 int64
	CustomerID         string
	SubscriptionID     int64
	ExpansionScore     float64
	ExpansionCategory  string
	TenureDays         int
	UsageTrend         float64
	SupportTicketCount int
	EngagementScore    float64
	CalculatedAt       time.Time
}
