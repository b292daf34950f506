package errors

import (
	"errors"
	"fmt"
)

var (
	// Catalog errors
	ErrProductNotFound = errors.New("product not found")
	ErrPlanNotFound    = errors.New("plan not found")

	// Subscription errors
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrNoActiveSubscription = errors.New("no active subscription for customer")

	// Event errors
	ErrDuplicateEvent       = errors.New("event has already been processed")
	ErrWebhookEventNotFound = errors.New("webhook event not found")

	// Snapshot errors
	ErrSnapshotExists   = errors.New("snapshot already exists for date")
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// Alert errors
	ErrAlertNotFound = errors.New("alert not found")

	// Experiment errors
	ErrExperimentNotFound   = errors.New("experiment not found")
	ErrExperimentNotDraft   = errors.New("experiment must be in draft status to start")
	ErrExperimentNotRunning = errors.New("experiment is not running")
)

// NotFoundError wraps an error with entity context.
type NotFoundError struct {
	Entity string
	ID     string
	Err    error
}

// NewNotFoundError creates a NotFoundError for the given entity and ID.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s with id '%s' not found: %v", e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("%s with id '%s' not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}
