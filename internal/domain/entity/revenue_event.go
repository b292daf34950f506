package entity

import "time"

type RevenueEventType string

const (
	EventSubscriptionCreated    RevenueEventType = "subscription_created"
	EventSubscriptionCanceled   RevenueEventType = "subscription_canceled"
	EventSubscriptionUpgraded   RevenueEventType = "subscription_upgraded"
	EventSubscriptionDowngraded RevenueEventType = "subscription_downgraded"
	EventPaymentSucceeded       RevenueEventType = "payment_succeeded"
	EventPaymentFailed          RevenueEventType = "payment_failed"
	EventMRRDelta               RevenueEventType = "mrr_delta"
)

// RevenueEvent is a revenue-affecting event derived from a provider webhook.
// MRRDelta is the change in monthly recurring revenue the event caused;
// Amount is the invoice amount for payment events.
type RevenueEvent struct {
	ID             int64
	SubscriptionID int64
	EventType      RevenueEventType
	StripeEventID  string
	Amount         float64
	Currency       string
	MRRDelta       float64
	Metadata       map[string]any
	OccurredAt     time.Time
	ProcessedAt    time.Time
}

// NewRevenueEvent creates an event occurring now.
func NewRevenueEvent(subscriptionID int64, eventType RevenueEventType, stripeEventID string) *RevenueEvent {
	now := time.Now().UTC()
	return &RevenueEvent{
		SubscriptionID: subscriptionID,
		EventType:      eventType,
		StripeEventID:  stripeEventID,
		Currency:       "USD",
		OccurredAt:     now,
		ProcessedAt:    now,
	}
}

// AttemptCount returns the payment attempt count carried in event metadata,
// defaulting to 1 when absent.
func (e *RevenueEvent) AttemptCount() int {
	if e.Metadata == nil {
		return 1
	}
	switch v := e.Metadata["attempt_count"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 1
}
