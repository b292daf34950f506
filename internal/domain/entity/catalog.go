package entity

import "time"

// Product is an entry in the product catalog, mirrored from the billing provider.
type Product struct {
	ID              int64
	Name            string
	Description     string
	StripeProductID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Plan is a versioned pricing plan for a product.
type Plan struct {
	ID           int64
	ProductID    int64
	Name         string
	Version      int
	PriceMonthly float64
	PriceAnnual  *float64
	Currency     string

	// Limits maps a usage metric name to the plan's allowance,
	// e.g. {"api_calls": 10000, "storage_gb": 100}.
	Limits   map[string]float64
	Features []string

	EffectiveFrom  time.Time
	EffectiveUntil *time.Time

	StripePriceID string
	IsActive      bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LimitFor returns the plan limit for a metric, or false if the plan
// does not bound that metric.
func (p *Plan) LimitFor(metric string) (float64, bool) {
	if p.Limits == nil {
		return 0, false
	}
	limit, ok := p.Limits[metric]
	return limit, ok
}
