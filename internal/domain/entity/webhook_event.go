package entity

import "time"

// WebhookEvent is a raw provider webhook payload, persisted before
// processing for idempotency and audit. EventID is the provider's event
// identifier and is unique per provider.
type WebhookEvent struct {
	ID          int64
	Provider    string
	EventID     string
	EventType   string
	Payload     []byte
	ReceivedAt  time.Time
	ProcessedAt *time.Time
}
