package handlers

import (
	"errors"
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

// CustomerHandler serves per-customer expansion scores.
type CustomerHandler struct {
	scoreRepo repository.ScoreRepository
	scorer    *service.ExpansionScorer
	logger    *zap.Logger
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(scoreRepo repository.ScoreRepository, scorer *service.ExpansionScorer) *CustomerHandler {
	return &CustomerHandler{
		scoreRepo: scoreRepo,
		scorer:    scorer,
		logger:    logging.Logger,
	}
}

// ScoreDTO is the wire form of a customer expansion score.
type ScoreDTO struct {
	CustomerID        string    `json:"customer_id"`
	SubscriptionID    int64     `json:"subscription_id"`
	ExpansionScore    float64   `json:"expansion_score"`
	ExpansionCategory string    `json:"expansion_category"`
	TenureDays        int       `json:"tenure_days"`
	UsageTrend        float64   `json:"usage_trend"`
	EngagementScore   float64   `json:"engagement_score"`
	CalculatedAt      time.Time `json:"calculated_at"`
}

func scoreDTO(s *entity.CustomerScore) *ScoreDTO {
	return &ScoreDTO{
		CustomerID:        s.CustomerID,
		SubscriptionID:    s.SubscriptionID,
		ExpansionScore:    s.ExpansionScore,
		ExpansionCategory: s.ExpansionCategory,
		TenureDays:        s.TenureDays,
		UsageTrend:        s.UsageTrend,
		EngagementScore:   s.EngagementScore,
		CalculatedAt:      s.CalculatedAt,
	}
}

// GetScore handles GET /api/customers/:customer_id/score. A customer without
// a stored score is scored on the spot.
func (h *CustomerHandler) GetScore(c *gin.Context) {
	customerID := c.Param("customer_id")
	ctx := c.Request.Context()

	score, err := h.scoreRepo.GetByCustomerID(ctx, customerID)
	if err != nil {
		var notFound *domainErrors.NotFoundError
		if !errors.As(err, &notFound) {
			h.logger.Error("Failed to load customer score",
				zap.String("customer_id", customerID),
				zap.Error(err),
			)
			response.InternalError(c, "Failed to load score")
			return
		}

		score, err = h.scorer.ScoreCustomer(ctx, customerID)
		if err != nil {
			if errors.Is(err, domainErrors.ErrNoActiveSubscription) {
				response.NotFound(c, "Customer has no active subscription")
				return
			}
			h.logger.Error("Failed to score customer",
				zap.String("customer_id", customerID),
				zap.Error(err),
			)
			response.InternalError(c, "Failed to score customer")
			return
		}
	}

	response.OK(c, scoreDTO(score))
}
