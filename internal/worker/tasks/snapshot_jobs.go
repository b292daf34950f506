package tasks

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/moneyradar/backend/internal/domain/service"
	"github.com/moneyradar/backend/internal/infrastructure/cache"
)

const (
	TypeDailySnapshot = "revenue:daily_snapshot"
)

// SnapshotJobHandler computes daily MRR snapshots.
type SnapshotJobHandler struct {
	snapshots    *service.SnapshotService
	metricsCache *cache.MetricsCache
	logger       *zap.Logger
}

// NewSnapshotJobHandler creates a new snapshot job handler
func NewSnapshotJobHandler(
	snapshots *service.SnapshotService,
	metricsCache *cache.MetricsCache,
	logger *zap.Logger,
) *SnapshotJobHandler {
	return &SnapshotJobHandler{
		snapshots:    snapshots,
		metricsCache: metricsCache,
		logger:       logger,
	}
}

// HandleDailySnapshot computes the previous day's snapshot. The job runs
// shortly after midnight UTC so the completed day is fully observable.
func (h *SnapshotJobHandler) HandleDailySnapshot(ctx context.Context, t *asynq.Task) error {
	day := time.Now().UTC().AddDate(0, 0, -1)

	snapshot, err := h.snapshots.CalculateDaily(ctx, day)
	if err != nil {
		return err
	}

	h.metricsCache.InvalidateMRR(ctx)

	h.logger.Info("Daily snapshot computed",
		zap.Time("date", snapshot.Date),
		zap.Float64("total_mrr", snapshot.TotalMRR),
	)
	return nil
}

// ScheduleSnapshotJobs registers the daily snapshot cron.
func ScheduleSnapshotJobs(scheduler *asynq.Scheduler) error {
	_, err := scheduler.Register("0 2 * * *", asynq.NewTask(TypeDailySnapshot, nil))
	return err
}
