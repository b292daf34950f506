package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moneyradar/backend/internal/domain/entity"
	domainErrors "github.com/moneyradar/backend/internal/domain/errors"
	"github.com/moneyradar/backend/internal/domain/repository"
)

// AlertRepositoryImpl implements AlertRepository
type AlertRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(pool *pgxpool.Pool) repository.AlertRepository {
	return &AlertRepositoryImpl{pool: pool}
}

const alertColumns = `id, alert_type, severity, subscription_id, customer_id,
	title, description, data, recommended_action, is_resolved, resolved_at, created_at`

// Create creates an alert
func (r *AlertRepositoryImpl) Create(ctx context.Context, alert *entity.Alert) error {
	data, err := json.Marshal(alert.Data)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO alerts (alert_type, severity, subscription_id, customer_id,
			title, description, data, recommended_action, is_resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	return r.pool.QueryRow(ctx, query,
		alert.AlertType,
		alert.Severity,
		alert.SubscriptionID,
		alert.CustomerID,
		alert.Title,
		alert.Description,
		data,
		alert.RecommendedAction,
		alert.IsResolved,
		alert.CreatedAt,
	).Scan(&alert.ID)
}

// GetByID retrieves an alert by ID
func (r *AlertRepositoryImpl) GetByID(ctx context.Context, id int64) (*entity.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// HasUnresolved reports whether an unresolved alert of the given type
// exists for the customer
func (r *AlertRepositoryImpl) HasUnresolved(ctx context.Context, customerID string, alertType entity.AlertType) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM alerts
		WHERE customer_id = $1 AND alert_type = $2 AND NOT is_resolved
	)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, customerID, alertType).Scan(&exists)
	return exists, err
}

// List retrieves alerts matching the filter, newest first, up to limit
func (r *AlertRepositoryImpl) List(ctx context.Context, filter repository.AlertFilter, limit int) ([]*entity.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts`
	switch filter {
	case repository.AlertsActive:
		query += ` WHERE NOT is_resolved`
	case repository.AlertsResolved:
		query += ` WHERE is_resolved`
	}
	query += ` ORDER BY created_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*entity.Alert
	for rows.Next() {
		alert, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

// Update persists resolution fields
func (r *AlertRepositoryImpl) Update(ctx context.Context, alert *entity.Alert) error {
	query := `UPDATE alerts SET is_resolved = $2, resolved_at = $3 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, alert.ID, alert.IsResolved, alert.ResolvedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrAlertNotFound
	}
	return nil
}

func (r *AlertRepositoryImpl) scanOne(row pgx.Row) (*entity.Alert, error) {
	alert := &entity.Alert{}
	var data []byte
	err := row.Scan(
		&alert.ID,
		&alert.AlertType,
		&alert.Severity,
		&alert.SubscriptionID,
		&alert.CustomerID,
		&alert.Title,
		&alert.Description,
		&data,
		&alert.RecommendedAction,
		&alert.IsResolved,
		&alert.ResolvedAt,
		&alert.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrAlertNotFound
		}
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &alert.Data); err != nil {
			return nil, err
		}
	}
	return alert, nil
}
