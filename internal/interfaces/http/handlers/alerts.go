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
	"github.com/moneyradar/backend/internal/domain/service"
	"github.com/moneyradar/backend/internal/infrastructure/logging"
	"github.com/moneyradar/backend/internal/interfaces/http/response"
)

const defaultAlertLimit = 100

// AlertHandler serves alert listing, manual scans and resolution.
type AlertHandler struct {
	alertRepo repository.AlertRepository
	risks     *service.RiskDetector
	logger    *zap.Logger
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(alertRepo repository.AlertRepository, risks *service.RiskDetector) *AlertHandler {
	return &AlertHandler{
		alertRepo: alertRepo,
		risks:     risks,
		logger:    logging.Logger,
	}
}

// AlertDTO is the wire form of an alert.
type AlertDTO struct {
	ID                int64          `json:"id"`
	AlertType         string         `json:"alert_type"`
	Severity          string         `json:"severity"`
	SubscriptionID    *int64         `json:"subscription_id,omitempty"`
	CustomerID        string         `json:"customer_id"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	Data              map[string]any `json:"data,omitempty"`
	RecommendedAction string         `json:"recommended_action,omitempty"`
	IsResolved        bool           `json:"is_resolved"`
	ResolvedAt        *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

func alertDTO(a *entity.Alert) *AlertDTO {
	return &AlertDTO{
		ID:                a.ID,
		AlertType:         string(a.AlertType),
		Severity:          string(a.Severity),
		SubscriptionID:    a.SubscriptionID,
		CustomerID:        a.CustomerID,
		Title:             a.Title,
		Description:       a.Description,
		Data:              a.Data,
		RecommendedAction: a.RecommendedAction,
		IsResolved:        a.IsResolved,
		ResolvedAt:        a.ResolvedAt,
		CreatedAt:         a.CreatedAt,
	}
}

func alertDTOs(alerts []*entity.Alert) []*AlertDTO {
	dtos := make([]*AlertDTO, 0, len(alerts))
	for _, a := range alerts {
		dtos = append(dtos, alertDTO(a))
	}
	return dtos
}

// List handles GET /api/alerts?status=active|resolved|all.
func (h *AlertHandler) List(c *gin.Context) {
	filter := repository.AlertFilter(c.DefaultQuery("status", "active"))
	switch filter {
	case repository.AlertsActive, repository.AlertsResolved, repository.AlertsAll:
	default:
		response.BadRequest(c, "status must be active, resolved or all")
		return
	}

	limit := defaultAlertLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	alerts, err := h.alertRepo.List(c.Request.Context(), filter, limit)
	if err != nil {
		h.logger.Error("Failed to list alerts", zap.Error(err))
		response.InternalError(c, "Failed to list alerts")
		return
	}
	response.OK(c, gin.H{"alerts": alertDTOs(alerts)})
}

// Scan handles POST /api/alerts/scan, running all risk detectors now.
func (h *AlertHandler) Scan(c *gin.Context) {
	report, err := h.risks.ScanAll(c.Request.Context())
	if err != nil {
		h.logger.Error("Risk scan failed", zap.Error(err))
		response.InternalError(c, "Risk scan failed")
		return
	}
	response.OK(c, gin.H{
		"critical":      alertDTOs(report.Critical),
		"warning":       alertDTOs(report.Warning),
		"informational": alertDTOs(report.Informational),
	})
}

// Resolve handles POST /api/alerts/:id/resolve.
func (h *AlertHandler) Resolve(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid alert ID")
		return
	}

	ctx := c.Request.Context()
	alert, err := h.alertRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainErrors.ErrAlertNotFound) {
			response.NotFound(c, "Alert not found")
			return
		}
		h.logger.Error("Failed to load alert", zap.Int64("id", id), zap.Error(err))
		response.InternalError(c, "Failed to load alert")
		return
	}

	if alert.IsResolved {
		response.OK(c, alertDTO(alert))
		return
	}

	alert.Resolve(time.Now().UTC())
	if err := h.alertRepo.Update(ctx, alert); err != nil {
		h.logger.Error("Failed to resolve alert", zap.Int64("id", id), zap.Error(err))
		response.InternalError(c, "Failed to resolve alert")
		return
	}
	response.OK(c, alertDTO(alert))
}
