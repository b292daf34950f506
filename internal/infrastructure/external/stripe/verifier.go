package stripe

import (
	stripego "github.com/stripe/stripe-go/v82"
)

// WebhookVerifier validates incoming webhook payloads against a signature
// header and signing secret.
type WebhookVerifier interface {
	Verify(payload []byte, header string) error
}

// SignatureVerifier verifies Stripe webhook signatures using the official
// SDK's HMAC-SHA256 check with timestamp tolerance.
type SignatureVerifier struct {
	secret string
}

// NewSignatureVerifier creates a verifier for the given webhook signing secret.
func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: secret}
}

// Verify checks the Stripe-Signature header against the payload.
func (v *SignatureVerifier) Verify(payload []byte, header string) error {
	return stripego.ValidatePayload(payload, header, v.secret)
}
