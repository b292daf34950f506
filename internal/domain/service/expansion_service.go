package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/moneyradar/backend/internal/domain/entity"
	"github.com/moneyradar/backend/internal/domain/repository"
)

// ExpansionScorer computes the 0-100 expansion-readiness score for a
// customer from tenure, usage trend and engagement, then categorizes it.
//
// Scoring weights:
//   - tenure: >365d 30pts, >180d 20pts, >90d 10pts
//   - usage trend: >0.5 40pts, >0.2 25pts, >0 10pts
//   - engagement: min(30, average utilization x 30)
//
// A trend below -0.2 overrides the category to likely_to_churn and docks
// 30 points.
type ExpansionScorer struct {
	subRepo   repository.SubscriptionRepository
	usageRepo repository.UsageRepository
	scoreRepo repository.ScoreRepository
	logger    *zap.Logger
}

// NewExpansionScorer creates an expansion scorer.
func NewExpansionScorer(
	subRepo repository.SubscriptionRepository,
	usageRepo repository.UsageRepository,
	scoreRepo repository.ScoreRepository,
	logger *zap.Logger,
) *ExpansionScorer {
	return &ExpansionScorer{
		subRepo:   subRepo,
		usageRepo: usageRepo,
		scoreRepo: scoreRepo,
		logger:    logger,
	}
}

// ScoreCustomer recalculates and stores the expansion score for a
// customer with an active subscription.
func (s *ExpansionScorer) ScoreCustomer(ctx context.Context, customerID string) (*entity.CustomerScore, error) {
	sub, err := s.subRepo.GetActiveByCustomerID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tenureDays := sub.TenureDays(now)

	trendRecords, err := s.usageRepo.ListRecordedSince(ctx, sub.ID, now.AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}
	trend := usageTrendOf(trendRecords)

	boundedRecords, err := s.usageRepo.ListBounded(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	engagement := averageUtilization(boundedRecords)

	score := 0.0
	switch {
	case tenureDays > 365:
		score += 30
	case tenureDays > 180:
		score += 20
	case tenureDays > 90:
		score += 10
	}
	switch {
	case trend > 0.5:
		score += 40
	case trend > 0.2:
		score += 25
	case trend > 0:
		score += 10
	}
	score += min(30, engagement*30)

	var category string
	switch {
	case score >= 70:
		category = entity.CategorySafeToUpsell
	case score >= 40:
		category = entity.CategoryNeutral
	default:
		category = entity.CategoryDoNotTouch
	}
	if trend < -0.2 {
		category = entity.CategoryLikelyToChurn
		score = max(0, score-30)
	}

	result := &entity.CustomerScore{
		CustomerID:        customerID,
		SubscriptionID:    sub.ID,
		ExpansionScore:    score,
		ExpansionCategory: category,
		TenureDays:        tenureDays,
		UsageTrend:        trend,
		EngagementScore:   engagement,
		CalculatedAt:      now,
	}
	if err := s.scoreRepo.Upsert(ctx, result); err != nil {
		return nil, err
	}

	s.logger.Debug("customer scored",
		zap.String("customer_id", customerID),
		zap.Float64("score", score),
		zap.String("category", category),
	)
	return result, nil
}

// ScoreAllActive rescores every customer with an active subscription,
// returning how many were scored. Individual failures are logged and
// skipped.
func (s *ExpansionScorer) ScoreAllActive(ctx context.Context) (int, error) {
	subs, err := s.subRepo.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	scored := 0
	for _, sub := range subs {
		if _, err := s.ScoreCustomer(ctx, sub.CustomerID); err != nil {
			s.logger.Error("scoring failed",
				zap.String("customer_id", sub.CustomerID),
				zap.Error(err),
			)
			continue
		}
		scored++
	}
	return scored, nil
}

// averageUtilization is the mean quantity/limit ratio across records that
// carry a positive limit.
func averageUtilization(records []*entity.UsageRecord) float64 {
	sum := 0.0
	n := 0
	for _, r := range records {
		if r.Limit != nil && *r.Limit > 0 {
			sum += r.Quantity / *r.Limit
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
