package entity

import "time"

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionUnpaid   SubscriptionStatus = "unpaid"
)

// Subscription is a customer subscription mirrored from the billing provider.
// MRR holds the normalized monthly value of the subscription and is kept in
// sync by ingestion as provider events arrive.
type Subscription struct {
	ID                   int64
	StripeSubscriptionID string
	CustomerID           string
	PlanID               int64
	Status               SubscriptionStatus
	CurrentPeriodStart   time.Time
	CurrentPeriodEnd     time.Time
	MRR                  float64
	CreatedAt            time.Time
	UpdatedAt            time.Time
	CanceledAt           *time.Time
}

// NewSubscription creates a subscription record from provider data.
func NewSubscription(stripeSubID, customerID string, planID int64, status SubscriptionStatus, periodStart, periodEnd time.Time, mrr float64) *Subscription {
	now := time.Now().UTC()
	return &Subscription{
		StripeSubscriptionID: stripeSubID,
		CustomerID:           customerID,
		PlanID:               planID,
		Status:               status,
		CurrentPeriodStart:   periodStart,
		CurrentPeriodEnd:     periodEnd,
		MRR:                  mrr,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// IsActive reports whether the subscription currently contributes to MRR.
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionActive
}

// Cancel marks the subscription canceled and zeroes its MRR contribution.
// Returns the MRR that was lost.
func (s *Subscription) Cancel(at time.Time) float64 {
	lost := s.MRR
	s.Status = SubscriptionCanceled
	s.CanceledAt = &at
	s.MRR = 0
	return lost
}

// TenureDays returns the whole days since the subscription was created.
func (s *Subscription) TenureDays(now time.Time) int {
	return int(now.Sub(s.CreatedAt).Hours() / 24)
}
