package repository

import (
	"context"

	"github.com/moneyradar/backend/internal/domain/entity"
)

// AlertFilter selects alerts by resolution state.
type AlertFilter string

const (
	AlertsActive   AlertFilter = "active"
	AlertsResolved AlertFilter = "resolved"
	AlertsAll      AlertFilter = "all"
)

// AlertRepository defines data access for alerts.
type AlertRepository interface {
	// Create inserts an alert and sets alert.ID.
	Create(ctx context.Context, alert *entity.Alert) error

	// GetByID retrieves an alert by ID.
	GetByID(ctx context.Context, id int64) (*entity.Alert, error)

	// HasUnresolved reports whether an unresolved alert of the given type
	// exists for the customer.
	HasUnresolved(ctx context.Context, customerID string, alertType entity.AlertType) (bool, error)

	// List returns alerts matching the filter, newest first, up to limit.
	List(ctx context.Context, filter AlertFilter, limit int) ([]*entity.Alert, error)

	// Update persists resolution fields.
	Update(ctx context.Context, alert *entity.Alert) error
}
