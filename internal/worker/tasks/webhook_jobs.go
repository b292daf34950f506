package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/moneyradar/backend/internal/domain/repository"
	"github.com/moneyradar/backend/internal/domain/service"
)

const (
	TypeWebhookProcess = "webhook:process"
)

// WebhookProcessPayload identifies a stored raw webhook event to apply.
type WebhookProcessPayload struct {
	Provider string `json:"provider"`
	EventID  string `json:"event_id"`
}

// NewWebhookProcessTask creates a task to process a stored webhook event.
func NewWebhookProcessTask(provider, eventID string) (*asynq.Task, error) {
	payload, err := json.Marshal(WebhookProcessPayload{Provider: provider, EventID: eventID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeWebhookProcess, payload, asynq.MaxRetry(5)), nil
}

// WebhookJobHandler applies stored webhook events to the local model.
type WebhookJobHandler struct {
	webhookRepo repository.WebhookRepository
	ingestion   *service.IngestionService
	logger      *zap.Logger
}

// NewWebhookJobHandler creates a new webhook job handler
func NewWebhookJobHandler(
	webhookRepo repository.WebhookRepository,
	ingestion *service.IngestionService,
	logger *zap.Logger,
) *WebhookJobHandler {
	return &WebhookJobHandler{
		webhookRepo: webhookRepo,
		ingestion:   ingestion,
		logger:      logger,
	}
}

// HandleWebhookProcess loads the stored event and runs it through ingestion.
// Already-processed events are skipped so retries stay idempotent.
func (h *WebhookJobHandler) HandleWebhookProcess(ctx context.Context, t *asynq.Task) error {
	var p WebhookProcessPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode webhook task payload: %w", err)
	}

	event, err := h.webhookRepo.GetByEventID(ctx, p.Provider, p.EventID)
	if err != nil {
		return fmt.Errorf("load webhook event %s: %w", p.EventID, err)
	}
	if event.ProcessedAt != nil {
		h.logger.Debug("Webhook event already processed",
			zap.String("event_id", p.EventID),
		)
		return nil
	}

	var envelope struct {
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return fmt.Errorf("decode webhook event %s: %w", p.EventID, err)
	}

	if err := h.ingestion.ProcessEvent(ctx, event.EventType, envelope.Data.Object); err != nil {
		return fmt.Errorf("process webhook event %s: %w", p.EventID, err)
	}

	if err := h.webhookRepo.MarkProcessed(ctx, event.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark webhook event %s processed: %w", p.EventID, err)
	}

	h.logger.Info("Webhook event processed",
		zap.String("event_id", p.EventID),
		zap.String("event_type", event.EventType),
	)
	return nil
}
