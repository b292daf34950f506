package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/moneyradar/backend/internal/domain/entity"
	domainErrors "github.com/moneyradar/backend/internal/domain/errors"
	"github.com/moneyradar/backend/internal/domain/repository"
)

// SnapshotService rolls per-subscription MRR into daily snapshots with
// new/expansion/contraction/churned buckets.
type SnapshotService struct {
	subRepo      repository.SubscriptionRepository
	eventRepo    repository.RevenueEventRepository
	snapshotRepo repository.SnapshotRepository
	logger       *zap.Logger
}

// NewSnapshotService creates a snapshot service.
func NewSnapshotService(
	subRepo repository.SubscriptionRepository,
	eventRepo repository.RevenueEventRepository,
	snapshotRepo repository.SnapshotRepository,
	logger *zap.Logger,
) *SnapshotService {
	return &SnapshotService{
		subRepo:      subRepo,
		eventRepo:    eventRepo,
		snapshotRepo: snapshotRepo,
		logger:       logger,
	}
}

// CalculateDaily computes and stores the snapshot for the given day.
// Idempotent: an existing snapshot for the date is returned unchanged.
func (s *SnapshotService) CalculateDaily(ctx context.Context, date time.Time) (*entity.MRRSnapshot, error) {
	day := entity.SnapshotDate(date)

	existing, err := s.snapshotRepo.GetByDate(ctx, day)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domainErrors.ErrSnapshotNotFound) {
		return nil, err
	}

	totalMRR, err := s.subRepo.TotalActiveMRR(ctx)
	if err != nil {
		return nil, fmt.Errorf("sum active mrr: %w", err)
	}

	events, err := s.eventRepo.ListBetween(ctx, day, day.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("list day events: %w", err)
	}

	snapshot := &entity.MRRSnapshot{
		Date:     day,
		TotalMRR: totalMRR,
	}
	for _, event := range events {
		switch event.EventType {
		case entity.EventSubscriptionCreated:
			snapshot.NewMRR += event.MRRDelta
		case entity.EventSubscriptionUpgraded:
			snapshot.ExpansionMRR += event.MRRDelta
		case entity.EventSubscriptionDowngraded:
			snapshot.ContractionMRR += abs(event.MRRDelta)
		case entity.EventSubscriptionCanceled:
			snapshot.ChurnedMRR += abs(event.MRRDelta)
		}
	}

	breakdown, err := s.subRepo.MRRByProduct(ctx)
	if err != nil {
		return nil, fmt.Errorf("mrr by product: %w", err)
	}
	snapshot.ProductBreakdown = breakdown

	if err := s.snapshotRepo.Create(ctx, snapshot); err != nil {
		if errors.Is(err, domainErrors.ErrSnapshotExists) {
			// Raced with another run; the stored row wins.
			return s.snapshotRepo.GetByDate(ctx, day)
		}
		return nil, fmt.Errorf("store snapshot: %w", err)
	}

	s.logger.Info("mrr snapshot calculated",
		zap.Time("date", day),
		zap.Float64("total_mrr", snapshot.TotalMRR),
		zap.Float64("net_movement", snapshot.NetMovement()),
	)
	return snapshot, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
