package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/moneyradar/backend/internal/domain/entity"
)

// CatalogFactory creates test products and plans
type CatalogFactory struct{}

func NewCatalogFactory() *CatalogFactory {
	return &CatalogFactory{}
}

func (f *CatalogFactory) CreateProduct(name string) *entity.Product {
	return &entity.Product{
		Name:            name,
		StripeProductID: "prod_" + uuid.New().String()[:8],
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
}

func (f *CatalogFactory) CreatePlan(productID int64, priceMonthly float64, limits map[string]float64) *entity.Plan {
	return &entity.Plan{
		ProductID:     productID,
		Name:          "Plan " + uuid.New().String()[:8],
		Version:       1,
		PriceMonthly:  priceMonthly,
		Currency:      "usd",
		Limits:        limits,
		Features:      []string{"api_access"},
		EffectiveFrom: time.Now().UTC().AddDate(0, -6, 0),
		StripePriceID: "price_" + uuid.New().String()[:8],
		IsActive:      true,
	}
}

// SubscriptionFactory creates test subscription entities
type SubscriptionFactory struct{}

func NewSubscriptionFactory() *SubscriptionFactory {
	return &SubscriptionFactory{}
}

func (f *SubscriptionFactory) CreateActive(planID int64, mrr float64) *entity.Subscription {
	now := time.Now().UTC()
	return entity.NewSubscription(
		"sub_"+uuid.New().String()[:8],
		"cus_"+uuid.New().String()[:8],
		planID,
		entity.SubscriptionActive,
		now.AddDate(0, 0, -15),
		now.AddDate(0, 0, 15),
		mrr,
	)
}

func (f *SubscriptionFactory) CreateCanceled(planID int64, mrr float64) *entity.Subscription {
	now := time.Now().UTC()
	sub := entity.NewSubscription(
		"sub_"+uuid.New().String()[:8],
		"cus_"+uuid.New().String()[:8],
		planID,
		entity.SubscriptionCanceled,
		now.AddDate(0, -1, 0),
		now,
		mrr,
	)
	canceled := now.AddDate(0, 0, -1)
	sub.CanceledAt = &canceled
	return sub
}

// UsageFactory creates test usage records
type UsageFactory struct{}

func NewUsageFactory() *UsageFactory {
	return &UsageFactory{}
}

func (f *UsageFactory) Create(subscriptionID int64, metric string, quantity float64, limit *float64) *entity.UsageRecord {
	now := time.Now().UTC()
	return &entity.UsageRecord{
		SubscriptionID: subscriptionID,
		MetricName:     metric,
		Quantity:       quantity,
		Limit:          limit,
		PeriodStart:    now.AddDate(0, 0, -30),
		PeriodEnd:      now,
		RecordedAt:     now,
	}
}
