package stripe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/moneyradar/backend/internal/domain/entity"
	domainErrors "github.com/moneyradar/backend/internal/domain/errors"
	"github.com/moneyradar/backend/internal/domain/repository"
)

// CatalogSyncer mirrors the Stripe product and price catalog into local
// products and plans. Plans are keyed by stripe_price_id and never mutated
// after creation; a price change in Stripe shows up as a new price, and so
// as a new plan row here.
type CatalogSyncer struct {
	client      *Client
	productRepo repository.ProductRepository
	planRepo    repository.PlanRepository
	logger      *zap.Logger
}

// NewCatalogSyncer creates a catalog syncer.
func NewCatalogSyncer(
	client *Client,
	productRepo repository.ProductRepository,
	planRepo repository.PlanRepository,
	logger *zap.Logger,
) *CatalogSyncer {
	return &CatalogSyncer{
		client:      client,
		productRepo: productRepo,
		planRepo:    planRepo,
		logger:      logger,
	}
}

// SyncResult summarizes one catalog sync run.
type SyncResult struct {
	Products      int `json:"products"`
	PlansCreated  int `json:"plans_created"`
	PlansExisting int `json:"plans_existing"`
	PricesSkipped int `json:"prices_skipped"`
}

// Sync pulls active products and prices from Stripe and upserts them locally.
// Prices without a product mirrored in this run are counted as skipped.
func (s *CatalogSyncer) Sync(ctx context.Context) (*SyncResult, error) {
	products, err := s.client.ListActiveProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stripe products: %w", err)
	}

	productIDs := make(map[string]int64, len(products))
	for _, p := range products {
		product := &entity.Product{
			Name:            p.Name,
			Description:     p.Description,
			StripeProductID: p.ID,
		}
		if err := s.productRepo.Upsert(ctx, product); err != nil {
			return nil, fmt.Errorf("upsert product %s: %w", p.ID, err)
		}
		productIDs[p.ID] = product.ID
	}

	prices, err := s.client.ListActivePrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stripe prices: %w", err)
	}

	result := &SyncResult{Products: len(products)}
	for _, price := range prices {
		productID, ok := productIDs[price.Product]
		if !ok {
			s.logger.Warn("Skipping price with unknown product",
				zap.String("price_id", price.ID),
				zap.String("product_id", price.Product),
			)
			result.PricesSkipped++
			continue
		}

		if _, err := s.planRepo.GetByStripePriceID(ctx, price.ID); err == nil {
			result.PlansExisting++
			continue
		} else if !errors.Is(err, domainErrors.ErrPlanNotFound) {
			return nil, fmt.Errorf("look up plan for price %s: %w", price.ID, err)
		}

		plan := s.planFromPrice(price, productID)
		if err := s.planRepo.Create(ctx, plan); err != nil {
			return nil, fmt.Errorf("create plan for price %s: %w", price.ID, err)
		}
		result.PlansCreated++
	}

	s.logger.Info("Catalog sync completed",
		zap.Int("products", result.Products),
		zap.Int("plans_created", result.PlansCreated),
		zap.Int("plans_existing", result.PlansExisting),
		zap.Int("prices_skipped", result.PricesSkipped),
	)
	return result, nil
}

func (s *CatalogSyncer) planFromPrice(price Price, productID int64) *entity.Plan {
	plan := &entity.Plan{
		ProductID:     productID,
		Name:          price.Nickname,
		Version:       1,
		PriceMonthly:  price.MonthlyAmount(),
		Currency:      price.Currency,
		Limits:        price.Limits(),
		Features:      price.Features(),
		EffectiveFrom: time.Now().UTC(),
		StripePriceID: price.ID,
		IsActive:      true,
	}
	if plan.Name == "" {
		plan.Name = price.ID
	}
	if annual, ok := price.AnnualAmount(); ok {
		plan.PriceAnnual = &annual
	}
	return plan
}
