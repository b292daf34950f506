package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moneyradar/backend/internal/domain/entity"
	domainErrors "github.com/moneyradar/backend/internal/domain/errors"
	"github.com/moneyradar/backend/internal/domain/repository"
	"github.com/moneyradar/backend/internal/infrastructure/cache"
	"github.com/moneyradar/backend/internal/infrastructure/logging"
	"github.com/moneyradar/backend/internal/interfaces/http/response"
)

// RevenueHandler serves MRR metrics and snapshot history.
type RevenueHandler struct {
	subRepo      repository.SubscriptionRepository
	snapshotRepo repository.SnapshotRepository
	metricsCache *cache.MetricsCache
	logger       *zap.Logger
}

// NewRevenueHandler creates a new revenue handler
func NewRevenueHandler(
	subRepo repository.SubscriptionRepository,
	snapshotRepo repository.SnapshotRepository,
	metricsCache *cache.MetricsCache,
) *RevenueHandler {
	return &RevenueHandler{
		subRepo:      subRepo,
		snapshotRepo: snapshotRepo,
		metricsCache: metricsCache,
		logger:       logging.Logger,
	}
}

// SnapshotDTO is the wire form of an MRR snapshot.
type SnapshotDTO struct {
	Date             string             `json:"date"`
	TotalMRR         float64            `json:"total_mrr"`
	NewMRR           float64            `json:"new_mrr"`
	ExpansionMRR     float64            `json:"expansion_mrr"`
	ContractionMRR   float64            `json:"contraction_mrr"`
	ChurnedMRR       float64            `json:"churned_mrr"`
	NetMovement      float64            `json:"net_movement"`
	ProductBreakdown map[string]float64 `json:"product_breakdown"`
}

func snapshotDTO(s *entity.MRRSnapshot) *SnapshotDTO {
	return &SnapshotDTO{
		Date:             s.Date.Format("2006-01-02"),
		TotalMRR:         s.TotalMRR,
		NewMRR:           s.NewMRR,
		ExpansionMRR:     s.ExpansionMRR,
		ContractionMRR:   s.ContractionMRR,
		ChurnedMRR:       s.ChurnedMRR,
		NetMovement:      s.NetMovement(),
		ProductBreakdown: s.ProductBreakdown,
	}
}

// GetMRR handles GET /api/revenue/mrr. The live total and per-product
// breakdown are cached briefly; the latest snapshot always comes from the
// database.
func (h *RevenueHandler) GetMRR(c *gin.Context) {
	ctx := c.Request.Context()

	currentMRR, cacheErr := h.metricsCache.GetCurrentMRR(ctx)
	breakdown, breakdownErr := h.metricsCache.GetMRRBreakdown(ctx)
	if cacheErr != nil || breakdownErr != nil {
		var err error
		currentMRR, err = h.subRepo.TotalActiveMRR(ctx)
		if err != nil {
			h.logger.Error("Failed to compute current MRR", zap.Error(err))
			response.InternalError(c, "Failed to compute MRR")
			return
		}
		breakdown, err = h.subRepo.MRRByProduct(ctx)
		if err != nil {
			h.logger.Error("Failed to compute MRR breakdown", zap.Error(err))
			response.InternalError(c, "Failed to compute MRR")
			return
		}
		if err := h.metricsCache.SetCurrentMRR(ctx, currentMRR); err != nil {
			h.logger.Warn("Failed to cache current MRR", zap.Error(err))
		}
		if err := h.metricsCache.SetMRRBreakdown(ctx, breakdown); err != nil {
			h.logger.Warn("Failed to cache MRR breakdown", zap.Error(err))
		}
	}

	result := gin.H{
		"current_mrr": currentMRR,
		"breakdown":   breakdown,
	}

	latest, err := h.snapshotRepo.Latest(ctx)
	switch {
	case err == nil:
		result["latest_snapshot"] = snapshotDTO(latest)
	case errors.Is(err, domainErrors.ErrSnapshotNotFound):
		result["latest_snapshot"] = nil
	default:
		h.logger.Error("Failed to load latest snapshot", zap.Error(err))
		response.InternalError(c, "Failed to load snapshot")
		return
	}

	response.OK(c, result)
}

// ListSnapshots handles GET /api/revenue/snapshots?days=30.
func (h *RevenueHandler) ListSnapshots(c *gin.Context) {
	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.BadRequest(c, "days must be a positive integer")
			return
		}
		days = parsed
	}

	cutoff := entity.SnapshotDate(time.Now().UTC().AddDate(0, 0, -days))
	snapshots, err := h.snapshotRepo.ListSince(c.Request.Context(), cutoff)
	if err != nil {
		h.logger.Error("Failed to list snapshots", zap.Error(err))
		response.InternalError(c, "Failed to list snapshots")
		return
	}

	dtos := make([]*SnapshotDTO, 0, len(snapshots))
	for _, s := range snapshots {
		dtos = append(dtos, snapshotDTO(s))
	}
	response.OK(c, gin.H{"days": days, "snapshots": dtos})
}
