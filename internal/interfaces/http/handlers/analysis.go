package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moneyradar/backend/internal/domain/service"
	"github.com/moneyradar/backend/internal/infrastructure/logging"
	"github.com/moneyradar/backend/internal/interfaces/http/response"
)

// AnalysisHandler serves pricing analysis built on the mismatch detector.
type AnalysisHandler struct {
	mismatches *service.MismatchDetector
	logger     *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(mismatches *service.MismatchDetector) *AnalysisHandler {
	return &AnalysisHandler{
		mismatches: mismatches,
		logger:     logging.Logger,
	}
}

// GetMismatches handles GET /api/analysis/mismatches.
func (h *AnalysisHandler) GetMismatches(c *gin.Context) {
	report, err := h.mismatches.AnalyzeAll(c.Request.Context())
	if err != nil {
		h.logger.Error("Mismatch analysis failed", zap.Error(err))
		response.InternalError(c, "Mismatch analysis failed")
		return
	}
	response.OK(c, report)
}

// GetFeaturePricing handles GET /api/analysis/feature-pricing.
func (h *AnalysisHandler) GetFeaturePricing(c *gin.Context) {
	plans, err := h.mismatches.DetectFeatureMispricing(c.Request.Context())
	if err != nil {
		h.logger.Error("Feature pricing analysis failed", zap.Error(err))
		response.InternalError(c, "Feature pricing analysis failed")
		return
	}
	response.OK(c, gin.H{"mispriced_plans": plans})
}
