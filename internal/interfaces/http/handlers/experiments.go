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

// ExperimentHandler serves the pricing-experiment lifecycle and reporting.
type ExperimentHandler struct {
	tracker        *service.ExperimentTracker
	reporter       *service.ExperimentReporter
	experimentRepo repository.ExperimentRepository
	logger         *zap.Logger
}

// NewExperimentHandler creates a new experiment handler
func NewExperimentHandler(
	tracker *service.ExperimentTracker,
	reporter *service.ExperimentReporter,
	experimentRepo repository.ExperimentRepository,
) *ExperimentHandler {
	return &ExperimentHandler{
		tracker:        tracker,
		reporter:       reporter,
		experimentRepo: experimentRepo,
		logger:         logging.Logger,
	}
}

// ExperimentDTO is the wire form of a pricing experiment.
type ExperimentDTO struct {
	ID                int64          `json:"id"`
	Name              string         `json:"name"`
	Hypothesis        string         `json:"hypothesis"`
	AffectedSegment   map[string]any `json:"affected_segment,omitempty"`
	ControlGroupSize  int            `json:"control_group_size"`
	VariantGroupSize  int            `json:"variant_group_size"`
	ChangeDescription string         `json:"change_description"`
	MetricTracked     string         `json:"metric_tracked"`
	BaselineValue     *float64       `json:"baseline_value,omitempty"`
	TargetValue       *float64       `json:"target_value,omitempty"`
	ActualValue       *float64       `json:"actual_value,omitempty"`
	Outcome           string         `json:"outcome,omitempty"`
	Status            string         `json:"status"`
	StartedAt         *time.Time     `json:"started_at,omitempty"`
	EndedAt           *time.Time     `json:"ended_at,omitempty"`
}

func experimentDTO(e *entity.Experiment) *ExperimentDTO {
	return &ExperimentDTO{
		ID:                e.ID,
		Name:              e.Name,
		Hypothesis:        e.Hypothesis,
		AffectedSegment:   e.AffectedSegment,
		ControlGroupSize:  e.ControlGroupSize,
		VariantGroupSize:  e.VariantGroupSize,
		ChangeDescription: e.ChangeDescription,
		MetricTracked:     e.MetricTracked,
		BaselineValue:     e.BaselineValue,
		TargetValue:       e.TargetValue,
		ActualValue:       e.ActualValue,
		Outcome:           e.Outcome,
		Status:            string(e.Status),
		StartedAt:         e.StartedAt,
		EndedAt:           e.EndedAt,
	}
}

func experimentDTOs(experiments []*entity.Experiment) []*ExperimentDTO {
	dtos := make([]*ExperimentDTO, 0, len(experiments))
	for _, e := range experiments {
		dtos = append(dtos, experimentDTO(e))
	}
	return dtos
}

// List handles GET /api/experiments?status=.
func (h *ExperimentHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		experiments []*entity.Experiment
		err         error
	)
	switch status := c.DefaultQuery("status", "all"); status {
	case "all":
		experiments, err = h.experimentRepo.ListAll(ctx)
	case string(entity.ExperimentCompleted):
		experiments, err = h.experimentRepo.ListCompleted(ctx, c.Query("metric"), 0)
	case string(entity.ExperimentDraft), string(entity.ExperimentRunning):
		experiments, err = h.experimentRepo.ListByStatus(ctx, entity.ExperimentStatus(status))
	default:
		response.BadRequest(c, "status must be draft, running, completed or all")
		return
	}
	if err != nil {
		h.logger.Error("Failed to list experiments", zap.Error(err))
		response.InternalError(c, "Failed to list experiments")
		return
	}
	response.OK(c, gin.H{"experiments": experimentDTOs(experiments)})
}

// Get handles GET /api/experiments/:id.
func (h *ExperimentHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid experiment ID")
		return
	}

	experiment, err := h.experimentRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domainErrors.ErrExperimentNotFound) {
			response.NotFound(c, "Experiment not found")
			return
		}
		h.logger.Error("Failed to load experiment", zap.Int64("id", id), zap.Error(err))
		response.InternalError(c, "Failed to load experiment")
		return
	}
	response.OK(c, experimentDTO(experiment))
}

type createExperimentRequest struct {
	Name              string         `json:"name" binding:"required"`
	Hypothesis        string         `json:"hypothesis" binding:"required"`
	ChangeDescription string         `json:"change_description" binding:"required"`
	MetricTracked     string         `json:"metric_tracked" binding:"required"`
	AffectedSegment   map[string]any `json:"affected_segment"`
	BaselineValue     *float64       `json:"baseline_value"`
	TargetValue       *float64       `json:"target_value"`
}

// Create handles POST /api/experiments.
func (h *ExperimentHandler) Create(c *gin.Context) {
	var req createExperimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name, hypothesis, change_description and metric_tracked are required")
		return
	}

	experiment, err := h.tracker.Create(
		c.Request.Context(),
		req.Name,
		req.Hypothesis,
		req.ChangeDescription,
		req.MetricTracked,
		req.AffectedSegment,
		req.BaselineValue,
		req.TargetValue,
	)
	if err != nil {
		h.logger.Error("Failed to create experiment", zap.Error(err))
		response.InternalError(c, "Failed to create experiment")
		return
	}
	response.Created(c, experimentDTO(experiment))
}

// Start handles POST /api/experiments/:id/start.
func (h *ExperimentHandler) Start(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid experiment ID")
		return
	}

	experiment, err := h.tracker.Start(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrExperimentNotFound):
			response.NotFound(c, "Experiment not found")
		case errors.Is(err, domainErrors.ErrExperimentNotDraft):
			response.Conflict(c, "Experiment is not in draft status")
		default:
			h.logger.Error("Failed to start experiment", zap.Int64("id", id), zap.Error(err))
			response.InternalError(c, "Failed to start experiment")
		}
		return
	}
	response.OK(c, experimentDTO(experiment))
}

type completeExperimentRequest struct {
	ActualValue *float64 `json:"actual_value" binding:"required"`
	Outcome     string   `json:"outcome" binding:"required"`
}

// Complete handles POST /api/experiments/:id/complete.
func (h *ExperimentHandler) Complete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid experiment ID")
		return
	}

	var req completeExperimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "actual_value and outcome are required")
		return
	}

	experiment, err := h.tracker.Complete(c.Request.Context(), id, *req.ActualValue, req.Outcome)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrExperimentNotFound):
			response.NotFound(c, "Experiment not found")
		case errors.Is(err, domainErrors.ErrExperimentNotRunning):
			response.Conflict(c, "Experiment is not running")
		default:
			h.logger.Error("Failed to complete experiment", zap.Int64("id", id), zap.Error(err))
			response.InternalError(c, "Failed to complete experiment")
		}
		return
	}
	response.OK(c, experimentDTO(experiment))
}

// Report handles GET /api/experiments/report.
func (h *ExperimentHandler) Report(c *gin.Context) {
	summary, err := h.reporter.Summary(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to build experiment report", zap.Error(err))
		response.InternalError(c, "Failed to build report")
		return
	}
	response.OK(c, summary)
}

// Learnings handles GET /api/experiments/learnings?metric=.
func (h *ExperimentHandler) Learnings(c *gin.Context) {
	metric := c.Query("metric")
	learnings, err := h.reporter.Learnings(c.Request.Context(), metric)
	if err != nil {
		h.logger.Error("Failed to collect learnings", zap.Error(err))
		response.InternalError(c, "Failed to collect learnings")
		return
	}
	response.OK(c, gin.H{"metric": metric, "learnings": learnings})
}
