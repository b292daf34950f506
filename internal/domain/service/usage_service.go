package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/moneyradar/backend/internal/domain/entity"
	"github.com/moneyradar/backend/internal/domain/repository"
)

// UsageImportRow is one row of a bulk usage import.
type UsageImportRow struct {
	CustomerID  string     `json:"customer_id"`
	MetricName  string     `json:"metric_name"`
	Quantity    float64    `json:"quantity"`
	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`
}

// MetricSummary aggregates a subscription's usage of one metric.
type MetricSummary struct {
	Total       float64  `json:"total"`
	Limit       *float64 `json:"limit"`
	Utilization float64  `json:"utilization"`
}

// UsageService records customer usage against plan limits.
type UsageService struct {
	subRepo   repository.SubscriptionRepository
	planRepo  repository.PlanRepository
	usageRepo repository.UsageRepository
	logger    *zap.Logger
}

// NewUsageService creates a usage service.
func NewUsageService(
	subRepo repository.SubscriptionRepository,
	planRepo repository.PlanRepository,
	usageRepo repository.UsageRepository,
	logger *zap.Logger,
) *UsageService {
	return &UsageService{
		subRepo:   subRepo,
		planRepo:  planRepo,
		usageRepo: usageRepo,
		logger:    logger,
	}
}

// Record stores one usage measurement for the customer's active
// subscription. The period defaults to the current billing period and the
// limit is resolved from the plan's limits map.
func (s *UsageService) Record(ctx context.Context, customerID, metricName string, quantity float64, periodStart, periodEnd *time.Time) (*entity.UsageRecord, error) {
	sub, err := s.subRepo.GetActiveByCustomerID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	start := sub.CurrentPeriodStart
	end := sub.CurrentPeriodEnd
	if periodStart != nil {
		start = *periodStart
	}
	if periodEnd != nil {
		end = *periodEnd
	}

	record := &entity.UsageRecord{
		SubscriptionID: sub.ID,
		MetricName:     metricName,
		Quantity:       quantity,
		PeriodStart:    start,
		PeriodEnd:      end,
		RecordedAt:     time.Now().UTC(),
	}

	plan, err := s.planRepo.GetByID(ctx, sub.PlanID)
	if err != nil {
		return nil, fmt.Errorf("resolve plan: %w", err)
	}
	if limit, ok := plan.LimitFor(metricName); ok {
		record.Limit = &limit
	}

	if err := s.usageRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("store usage record: %w", err)
	}
	return record, nil
}

// BulkImport records a batch of usage rows, skipping rows that fail.
// Returns the number imported.
func (s *UsageService) BulkImport(ctx context.Context, rows []UsageImportRow) (int, error) {
	imported := 0
	for _, row := range rows {
		if _, err := s.Record(ctx, row.CustomerID, row.MetricName, row.Quantity, row.PeriodStart, row.PeriodEnd); err != nil {
			s.logger.Error("usage import row failed",
				zap.String("customer_id", row.CustomerID),
				zap.String("metric", row.MetricName),
				zap.Error(err),
			)
			continue
		}
		imported++
	}
	return imported, nil
}

// Summary aggregates usage per metric for a subscription over a period.
func (s *UsageService) Summary(ctx context.Context, subscriptionID int64, periodStart, periodEnd time.Time) (map[string]*MetricSummary, error) {
	records, err := s.usageRepo.ListForPeriod(ctx, subscriptionID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	summary := make(map[string]*MetricSummary)
	for _, record := range records {
		m, ok := summary[record.MetricName]
		if !ok {
			m = &MetricSummary{Limit: record.Limit}
			summary[record.MetricName] = m
		}
		m.Total += record.Quantity
		if m.Limit != nil && *m.Limit > 0 {
			m.Utilization = m.Total / *m.Limit
		}
	}
	return summary, nil
}
