package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moneyradar/backend/internal/domain/entity"
	domainErrors "github.com/moneyradar/backend/internal/domain/errors"
	"github.com/moneyradar/backend/internal/domain/repository"
)

// ScoreRepositoryImpl implements ScoreRepository
type ScoreRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewScoreRepository creates a new score repository
func NewScoreRepository(pool *pgxpool.Pool) repository.ScoreRepository {
	return &ScoreRepositoryImpl{pool: pool}
}

const scoreColumns = `id, customer_id, subscription_id, expansion_score, expansion_category,
	tenure_days, usage_trend, support_ticket_count, engagement_score, calculated_at`

// Upsert creates or replaces the score row for the customer
func (r *ScoreRepositoryImpl) Upsert(ctx context.Context, score *entity.CustomerScore) error {
	query := `
		INSERT INTO customer_scores (customer_id, subscription_id, expansion_score,
			expansion_category, tenure_days, usage_trend, support_ticket_count,
			engagement_score, calculated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (customer_id) DO UPDATE
		SET subscription_id = EXCLUDED.subscription_id,
			expansion_score = EXCLUDED.expansion_score,
			expansion_category = EXCLUDED.expansion_category,
			tenure_days = EXCLUDED.tenure_days,
			usage_trend = EXCLUDED.usage_trend,
			support_ticket_count = EXCLUDED.support_ticket_count,
			engagement_score = EXCLUDED.engagement_score,
			calculated_at = EXCLUDED.calculated_at
		RETURNING id
	`

	return r.pool.QueryRow(ctx, query,
		score.CustomerID,
		score.SubscriptionID,
		score.ExpansionScore,
		score.ExpansionCategory,
		score.TenureDays,
		score.UsageTrend,
		score.SupportTicketCount,
		score.EngagementScore,
		score.CalculatedAt,
	).Scan(&score.ID)
}

// GetByCustomerID retrieves the score for a customer
func (r *ScoreRepositoryImpl) GetByCustomerID(ctx context.Context, customerID string) (*entity.CustomerScore, error) {
	query := `SELECT ` + scoreColumns + ` FROM customer_scores WHERE customer_id = $1`

	score, err := r.scanOne(r.pool.QueryRow(ctx, query, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.NewNotFoundError("customer score", customerID)
		}
		return nil, err
	}
	return score, nil
}

// ListByCategory retrieves scores in the given expansion category
func (r *ScoreRepositoryImpl) ListByCategory(ctx context.Context, category string) ([]*entity.CustomerScore, error) {
	query := `SELECT ` + scoreColumns + `
		FROM customer_scores
		WHERE expansion_category = $1
		ORDER BY expansion_score DESC`

	rows, err := r.pool.Query(ctx, query, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []*entity.CustomerScore
	for rows.Next() {
		score, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}
	return scores, rows.Err()
}

func (r *ScoreRepositoryImpl) scanOne(row pgx.Row) (*entity.CustomerScore, error) {
	score := &entity.CustomerScore{}
	err := row.Scan(
		&score.ID,
		&score.CustomerID,
		&score.SubscriptionID,
		&score.ExpansionScore,
		&score.ExpansionCategory,
		&score.TenureDays,
		&score.UsageTrend,
		&score.SupportTicketCount,
		&score.EngagementScore,
		&score.CalculatedAt,
	)
	if err != nil {
		return nil, err
	}
	return score, nil
}
