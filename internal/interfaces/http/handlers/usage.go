package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/moneyradar/backend/internal/domain/errors"
	"github.com/moneyradar/backend/internal/domain/service"
	"github.com/moneyradar/backend/internal/infrastructure/logging"
	"github.com/moneyradar/backend/internal/interfaces/http/response"
)

// UsageHandler serves usage recording and summaries.
type UsageHandler struct {
	usage  *service.UsageService
	logger *zap.Logger
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(usage *service.UsageService) *UsageHandler {
	return &UsageHandler{
		usage:  usage,
		logger: logging.Logger,
	}
}

type recordUsageRequest struct {
	CustomerID  string     `json:"customer_id" binding:"required"`
	MetricName  string     `json:"metric_name" binding:"required"`
	Quantity    float64    `json:"quantity" binding:"required"`
	PeriodStart *time.Time `json:"period_start"`
	PeriodEnd   *time.Time `json:"period_end"`
}

// Record handles POST /api/usage.
func (h *UsageHandler) Record(c *gin.Context) {
	var req recordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "customer_id, metric_name and quantity are required")
		return
	}

	record, err := h.usage.Record(
		c.Request.Context(),
		req.CustomerID,
		req.MetricName,
		req.Quantity,
		req.PeriodStart,
		req.PeriodEnd,
	)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNoActiveSubscription) {
			response.UnprocessableEntity(c, "Customer has no active subscription")
			return
		}
		h.logger.Error("Failed to record usage",
			zap.String("customer_id", req.CustomerID),
			zap.Error(err),
		)
		response.InternalError(c, "Failed to record usage")
		return
	}

	response.Created(c, gin.H{
		"id":              record.ID,
		"subscription_id": record.SubscriptionID,
		"metric_name":     record.MetricName,
		"quantity":        record.Quantity,
		"utilization":     record.Utilization(),
	})
}

type importUsageRequest struct {
	Rows []service.UsageImportRow `json:"rows" binding:"required"`
}

// Import handles POST /api/usage/import. Rows that fail to resolve are
// skipped; the response reports both counts.
func (h *UsageHandler) Import(c *gin.Context) {
	var req importUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Rows) == 0 {
		response.BadRequest(c, "rows is required")
		return
	}

	imported, err := h.usage.BulkImport(c.Request.Context(), req.Rows)
	if err != nil {
		h.logger.Error("Usage import failed", zap.Error(err))
		response.InternalError(c, "Usage import failed")
		return
	}

	response.OK(c, gin.H{
		"imported": imported,
		"skipped":  len(req.Rows) - imported,
	})
}

// Summary handles GET /api/usage/:subscription_id/summary with optional
// period_start/period_end query params (RFC 3339); defaults to the last
// 30 days.
func (h *UsageHandler) Summary(c *gin.Context) {
	subscriptionID, err := strconv.ParseInt(c.Param("subscription_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid subscription ID")
		return
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)
	if raw := c.Query("period_start"); raw != "" {
		if start, err = time.Parse(time.RFC3339, raw); err != nil {
			response.BadRequest(c, "period_start must be RFC 3339")
			return
		}
	}
	if raw := c.Query("period_end"); raw != "" {
		if end, err = time.Parse(time.RFC3339, raw); err != nil {
			response.BadRequest(c, "period_end must be RFC 3339")
			return
		}
	}

	summary, err := h.usage.Summary(c.Request.Context(), subscriptionID, start, end)
	if err != nil {
		h.logger.Error("Failed to summarize usage",
			zap.Int64("subscription_id", subscriptionID),
			zap.Error(err),
		)
		response.InternalError(c, "Failed to summarize usage")
		return
	}

	response.OK(c, gin.H{
		"subscription_id": subscriptionID,
		"period_start":    start,
		"period_end":      end,
		"metrics":         summary,
	})
}
