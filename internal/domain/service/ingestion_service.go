package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/moneyradar/backend/internal/domain/entity"
	domainErrors "github.com/moneyradar/backend/internal/domain/errors"
	"github.com/moneyradar/backend/internal/domain/repository"
)

// Webhook event types the ingestion service understands. Anything else is
// acknowledged and skipped.
const (
	EventTypeSubscriptionCreated = "customer.subscription.created"
	EventTypeSubscriptionUpdated = "customer.subscription.updated"
	EventTypeSubscriptionDeleted = "customer.subscription.deleted"
	EventTypePaymentSucceeded    = "invoice.payment_succeeded"
	EventTypePaymentFailed       = "invoice.payment_failed"
)

// SubscriptionPayload is the slice of a provider subscription object the
// ingestion rules need.
type SubscriptionPayload struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	Items              struct {
		Data []SubscriptionItem `json:"data"`
	} `json:"items"`
}

// SubscriptionItem is a priced line item on a subscription.
type SubscriptionItem struct {
	Quantity int64        `json:"quantity"`
	Price    PricePayload `json:"price"`
}

// PricePayload is the slice of a provider price object used for MRR math.
type PricePayload struct {
	ID         string `json:"id"`
	UnitAmount int64  `json:"unit_amount"`
	Currency   string `json:"currency"`
	Recurring  *struct {
		Interval string `json:"interval"`
	} `json:"recurring"`
}

// InvoicePayload is the slice of a provider invoice object used for
// payment events.
type InvoicePayload struct {
	ID           string `json:"id"`
	Subscription string `json:"subscription"`
	Currency     string `json:"currency"`
	AmountPaid   int64  `json:"amount_paid"`
	AmountDue    int64  `json:"amount_due"`
	AttemptCount int    `json:"attempt_count"`
}

// IngestionService maps provider billing events onto local subscription and
// revenue-event rows, recomputing per-subscription MRR deltas as it goes.
type IngestionService struct {
	subRepo   repository.SubscriptionRepository
	planRepo  repository.PlanRepository
	eventRepo repository.RevenueEventRepository
	logger    *zap.Logger
}

// NewIngestionService creates an ingestion service.
func NewIngestionService(
	subRepo repository.SubscriptionRepository,
	planRepo repository.PlanRepository,
	eventRepo repository.RevenueEventRepository,
	logger *zap.Logger,
) *IngestionService {
	return &IngestionService{
		subRepo:   subRepo,
		planRepo:  planRepo,
		eventRepo: eventRepo,
		logger:    logger,
	}
}

// ProcessEvent applies a stored webhook event. Unknown event types are
// skipped without error so the provider is not retried for them.
func (s *IngestionService) ProcessEvent(ctx context.Context, eventType string, object json.RawMessage) error {
	switch eventType {
	case EventTypeSubscriptionCreated:
		var payload SubscriptionPayload
		if err := json.Unmarshal(object, &payload); err != nil {
			return fmt.Errorf("decode subscription payload: %w", err)
		}
		return s.handleSubscriptionCreated(ctx, &payload)

	case EventTypeSubscriptionUpdated:
		var payload SubscriptionPayload
		if err := json.Unmarshal(object, &payload); err != nil {
			return fmt.Errorf("decode subscription payload: %w", err)
		}
		return s.handleSubscriptionUpdated(ctx, &payload)

	case EventTypeSubscriptionDeleted:
		var payload SubscriptionPayload
		if err := json.Unmarshal(object, &payload); err != nil {
			return fmt.Errorf("decode subscription payload: %w", err)
		}
		return s.handleSubscriptionDeleted(ctx, &payload)

	case EventTypePaymentSucceeded, EventTypePaymentFailed:
		var payload InvoicePayload
		if err := json.Unmarshal(object, &payload); err != nil {
			return fmt.Errorf("decode invoice payload: %w", err)
		}
		return s.handlePayment(ctx, eventType, &payload)

	default:
		s.logger.Debug("skipping unhandled event type", zap.String("event_type", eventType))
		return nil
	}
}

func (s *IngestionService) handleSubscriptionCreated(ctx context.Context, payload *SubscriptionPayload) error {
	if len(payload.Items.Data) == 0 {
		return fmt.Errorf("subscription %s has no items", payload.ID)
	}

	plan, err := s.planRepo.GetByStripePriceID(ctx, payload.Items.Data[0].Price.ID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrPlanNotFound) {
			s.logger.Warn("plan not found for price, skipping subscription",
				zap.String("price_id", payload.Items.Data[0].Price.ID),
				zap.String("subscription_id", payload.ID),
			)
			return nil
		}
		return err
	}

	mrr := ComputeMRR(payload)
	sub := entity.NewSubscription(
		payload.ID,
		payload.Customer,
		plan.ID,
		entity.SubscriptionStatus(payload.Status),
		time.Unix(payload.CurrentPeriodStart, 0).UTC(),
		time.Unix(payload.CurrentPeriodEnd, 0).UTC(),
		mrr,
	)
	if err := s.subRepo.Create(ctx, sub); err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}

	event := entity.NewRevenueEvent(sub.ID, entity.EventSubscriptionCreated, payload.ID)
	event.Amount = mrr
	event.MRRDelta = mrr
	event.Metadata = map[string]any{"plan_name": plan.Name}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("create revenue event: %w", err)
	}

	s.logger.Info("subscription ingested",
		zap.String("customer_id", sub.CustomerID),
		zap.Float64("mrr", mrr),
	)
	return nil
}

func (s *IngestionService) handleSubscriptionUpdated(ctx context.Context, payload *SubscriptionPayload) error {
	sub, err := s.subRepo.GetByStripeID(ctx, payload.ID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrSubscriptionNotFound) {
			// First sighting of this subscription; treat as creation.
			return s.handleSubscriptionCreated(ctx, payload)
		}
		return err
	}

	newMRR := ComputeMRR(payload)
	oldMRR := sub.MRR
	delta := newMRR - oldMRR

	sub.Status = entity.SubscriptionStatus(payload.Status)
	sub.MRR = newMRR
	sub.CurrentPeriodStart = time.Unix(payload.CurrentPeriodStart, 0).UTC()
	sub.CurrentPeriodEnd = time.Unix(payload.CurrentPeriodEnd, 0).UTC()
	if err := s.subRepo.Update(ctx, sub); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	if delta == 0 {
		return nil
	}

	eventType := entity.EventSubscriptionUpgraded
	if delta < 0 {
		eventType = entity.EventSubscriptionDowngraded
	}
	event := entity.NewRevenueEvent(sub.ID, eventType, payload.ID)
	event.MRRDelta = delta
	event.Metadata = map[string]any{"old_mrr": oldMRR, "new_mrr": newMRR}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("create revenue event: %w", err)
	}
	return nil
}

func (s *IngestionService) handleSubscriptionDeleted(ctx context.Context, payload *SubscriptionPayload) error {
	sub, err := s.subRepo.GetByStripeID(ctx, payload.ID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrSubscriptionNotFound) {
			return nil
		}
		return err
	}

	lost := sub.Cancel(time.Now().UTC())
	if err := s.subRepo.Update(ctx, sub); err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}

	event := entity.NewRevenueEvent(sub.ID, entity.EventSubscriptionCanceled, payload.ID)
	event.MRRDelta = -lost
	event.Metadata = map[string]any{"canceled_mrr": lost}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("create revenue event: %w", err)
	}

	s.logger.Info("subscription churned",
		zap.String("customer_id", sub.CustomerID),
		zap.Float64("churned_mrr", lost),
	)
	return nil
}

func (s *IngestionService) handlePayment(ctx context.Context, eventType string, payload *InvoicePayload) error {
	if payload.Subscription == "" {
		return nil
	}

	sub, err := s.subRepo.GetByStripeID(ctx, payload.Subscription)
	if err != nil {
		if errors.Is(err, domainErrors.ErrSubscriptionNotFound) {
			return nil
		}
		return err
	}

	var event *entity.RevenueEvent
	if eventType == EventTypePaymentSucceeded {
		event = entity.NewRevenueEvent(sub.ID, entity.EventPaymentSucceeded, payload.ID)
		event.Amount = float64(payload.AmountPaid) / 100
	} else {
		event = entity.NewRevenueEvent(sub.ID, entity.EventPaymentFailed, payload.ID)
		event.Amount = float64(payload.AmountDue) / 100
		attempts := payload.AttemptCount
		if attempts == 0 {
			attempts = 1
		}
		event.Metadata = map[string]any{"attempt_count": attempts}
	}
	event.Currency = strings.ToUpper(payload.Currency)

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("create revenue event: %w", err)
	}
	return nil
}

// ComputeMRR normalizes a subscription payload to monthly recurring
// revenue: unit amounts are in cents, yearly prices are divided by 12,
// and non-recurring or other intervals contribute nothing.
func ComputeMRR(payload *SubscriptionPayload) float64 {
	total := 0.0
	for _, item := range payload.Items.Data {
		if item.Price.Recurring == nil {
			continue
		}
		amount := float64(item.Price.UnitAmount) / 100 * float64(item.Quantity)
		switch item.Price.Recurring.Interval {
		case "month":
			total += amount
		case "year":
			total += amount / 12
		}
	}
	return total
}
