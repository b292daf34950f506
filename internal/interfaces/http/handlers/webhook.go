package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/moneyradar/backend/internal/domain/entity"
	domainErrors "github.com/moneyradar/backend/internal/domain/errors"
	"github.com/moneyradar/backend/internal/domain/repository"
	"github.com/moneyradar/backend/internal/infrastructure/external/stripe"
	"github.com/moneyradar/backend/internal/infrastructure/logging"
	"github.com/moneyradar/backend/internal/interfaces/http/response"
	"github.com/moneyradar/backend/internal/worker/tasks"
)

// maxWebhookBody caps the accepted webhook payload size.
const maxWebhookBody = 1 << 20

// WebhookHandler receives billing provider webhooks, persists the raw event
// and hands processing off to the worker.
type WebhookHandler struct {
	verifier    stripe.WebhookVerifier
	webhookRepo repository.WebhookRepository
	asynqClient *asynq.Client
	logger      *zap.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(
	verifier stripe.WebhookVerifier,
	webhookRepo repository.WebhookRepository,
	asynqClient *asynq.Client,
) *WebhookHandler {
	return &WebhookHandler{
		verifier:    verifier,
		webhookRepo: webhookRepo,
		asynqClient: asynqClient,
		logger:      logging.Logger,
	}
}

// StripeWebhook handles POST /webhook/stripe. The raw event is stored before
// any processing so a worker crash never loses provider data; duplicates are
// acknowledged without reprocessing.
func (h *WebhookHandler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(c, "Failed to read request body")
		return
	}

	if err := h.verifier.Verify(payload, c.GetHeader("Stripe-Signature")); err != nil {
		h.logger.Warn("Webhook signature verification failed",
			zap.String("remote_addr", c.ClientIP()),
			zap.Error(err),
		)
		response.Unauthorized(c, "Invalid webhook signature")
		return
	}

	var envelope struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil || envelope.ID == "" {
		response.BadRequest(c, "Malformed webhook payload")
		return
	}

	event := &entity.WebhookEvent{
		Provider:   "stripe",
		EventID:    envelope.ID,
		EventType:  envelope.Type,
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}
	if err := h.webhookRepo.Insert(c.Request.Context(), event); err != nil {
		if errors.Is(err, domainErrors.ErrDuplicateEvent) {
			c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
			return
		}
		h.logger.Error("Failed to store webhook event",
			zap.String("event_id", envelope.ID),
			zap.Error(err),
		)
		response.InternalError(c, "Failed to store event")
		return
	}

	task, err := tasks.NewWebhookProcessTask("stripe", envelope.ID)
	if err != nil {
		response.InternalError(c, "Failed to enqueue event")
		return
	}
	if _, err := h.asynqClient.EnqueueContext(c.Request.Context(), task); err != nil {
		h.logger.Error("Failed to enqueue webhook task",
			zap.String("event_id", envelope.ID),
			zap.Error(err),
		)
		response.InternalError(c, "Failed to enqueue event")
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
