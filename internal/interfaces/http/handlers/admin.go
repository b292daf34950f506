package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moneyradar/backend/internal/domain/service"
	"github.com/moneyradar/backend/internal/infrastructure/cache"
	"github.com/moneyradar/backend/internal/infrastructure/external/stripe"
	"github.com/moneyradar/backend/internal/infrastructure/logging"
	"github.com/moneyradar/backend/internal/interfaces/http/response"
)

// AdminHandler serves JWT-protected operational endpoints.
type AdminHandler struct {
	syncer       *stripe.CatalogSyncer
	snapshots    *service.SnapshotService
	metricsCache *cache.MetricsCache
	logger       *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	syncer *stripe.CatalogSyncer,
	snapshots *service.SnapshotService,
	metricsCache *cache.MetricsCache,
) *AdminHandler {
	return &AdminHandler{
		syncer:       syncer,
		snapshots:    snapshots,
		metricsCache: metricsCache,
		logger:       logging.Logger,
	}
}

// SyncStripe handles POST /api/admin/sync-stripe, mirroring the provider
// catalog into local products and plans.
func (h *AdminHandler) SyncStripe(c *gin.Context) {
	result, err := h.syncer.Sync(c.Request.Context())
	if err != nil {
		h.logger.Error("Catalog sync failed", zap.Error(err))
		response.InternalError(c, "Catalog sync failed")
		return
	}
	response.OK(c, result)
}

// Snapshot handles POST /api/admin/snapshot. An optional date=YYYY-MM-DD
// body-less query selects the day; the default is yesterday.
func (h *AdminHandler) Snapshot(c *gin.Context) {
	day := time.Now().UTC().AddDate(0, 0, -1)
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.BadRequest(c, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	snapshot, err := h.snapshots.CalculateDaily(c.Request.Context(), day)
	if err != nil {
		h.logger.Error("Snapshot calculation failed",
			zap.Time("date", day),
			zap.Error(err),
		)
		response.InternalError(c, "Snapshot calculation failed")
		return
	}

	h.metricsCache.InvalidateMRR(c.Request.Context())
	response.OK(c, snapshotDTO(snapshot))
}
