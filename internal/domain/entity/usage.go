package entity

import "time"

// UsageRecord is a single usage measurement for a subscription over a
// billing period. Limit is a copy of the plan allowance at record time,
// nil when the plan does not bound the metric.
type UsageRecord struct {
	ID             int64
	SubscriptionID int64
	MetricName     string
	Quantity       float64
	Limit          *float64
	PeriodStart    time.Time
	PeriodEnd      time.Time
	RecordedAt     time.Time
}

// Utilization returns Quantity/Limit, or 0 when the metric is unbounded.
func (u *UsageRecord) Utilization() float64 {
	if u.Limit == nil || *u.Limit <= 0 {
		return 0
	}
	return u.Quantity / *u.Limit
}
