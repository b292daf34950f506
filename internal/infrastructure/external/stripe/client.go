package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the production Stripe API endpoint.
	DefaultBaseURL = "https://api.stripe.com"
	// DefaultTimeout for HTTP requests
	DefaultTimeout = 20 * time.Second
	// pageLimit is the Stripe list page size.
	pageLimit = 100
)

// Config represents Stripe client configuration.
type Config struct {
	APIKey  string
	BaseURL string // overridable in tests; defaults to DefaultBaseURL
	Timeout time.Duration
}

// Client is a thin HTTP client for the Stripe REST API. It covers only the
// catalog endpoints the sync needs; webhook payloads arrive pushed, not pulled.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Stripe HTTP client.
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

// Product is a Stripe product object, reduced to the fields the catalog uses.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

// Price is a Stripe price object, reduced to the fields the catalog uses.
type Price struct {
	ID         string            `json:"id"`
	Product    string            `json:"product"`
	Nickname   string            `json:"nickname"`
	Currency   string            `json:"currency"`
	UnitAmount int64             `json:"unit_amount"`
	Active     bool              `json:"active"`
	Metadata   map[string]string `json:"metadata"`
	Recurring  *Recurring        `json:"recurring"`
}

// Recurring holds the billing interval of a recurring price.
type Recurring struct {
	Interval string `json:"interval"`
}

// MonthlyAmount normalizes the price to a monthly figure in major currency
// units. Yearly prices are divided by 12; non-recurring prices are zero.
func (p *Price) MonthlyAmount() float64 {
	if p.Recurring == nil {
		return 0
	}
	amount := float64(p.UnitAmount) / 100
	switch p.Recurring.Interval {
	case "month":
		return amount
	case "year":
		return amount / 12
	default:
		return 0
	}
}

// AnnualAmount returns the yearly amount in major currency units for yearly
// prices, or false otherwise.
func (p *Price) AnnualAmount() (float64, bool) {
	if p.Recurring == nil || p.Recurring.Interval != "year" {
		return 0, false
	}
	return float64(p.UnitAmount) / 100, true
}

// Limits parses plan limits out of the price metadata. Keys prefixed with
// "limit_" become metric limits, e.g. limit_api_calls=10000.
func (p *Price) Limits() map[string]float64 {
	limits := make(map[string]float64)
	for key, value := range p.Metadata {
		metric := strings.TrimPrefix(key, "limit_")
		if metric == key {
			continue
		}
		var limit float64
		if _, err := fmt.Sscanf(value, "%f", &limit); err != nil {
			continue
		}
		limits[metric] = limit
	}
	return limits
}

// Features parses the comma-separated "features" metadata key.
func (p *Price) Features() []string {
	raw, ok := p.Metadata["features"]
	if !ok || raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	features := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			features = append(features, trimmed)
		}
	}
	return features
}

type listPage[T any] struct {
	Data    []T  `json:"data"`
	HasMore bool `json:"has_more"`
}

// ListActiveProducts retrieves all active products, following pagination.
func (c *Client) ListActiveProducts(ctx context.Context) ([]Product, error) {
	return listAll[Product](ctx, c, "/v1/products", func(p Product) string { return p.ID })
}

// ListActivePrices retrieves all active prices, following pagination.
func (c *Client) ListActivePrices(ctx context.Context) ([]Price, error) {
	return listAll[Price](ctx, c, "/v1/prices", func(p Price) string { return p.ID })
}

func listAll[T any](ctx context.Context, c *Client, path string, id func(T) string) ([]T, error) {
	var all []T
	startingAfter := ""

	for {
		params := url.Values{}
		params.Set("active", "true")
		params.Set("limit", fmt.Sprintf("%d", pageLimit))
		if startingAfter != "" {
			params.Set("starting_after", startingAfter)
		}

		var page listPage[T]
		if err := c.doGet(ctx, path, params, &page); err != nil {
			return nil, err
		}

		all = append(all, page.Data...)
		if !page.HasMore || len(page.Data) == 0 {
			return all, nil
		}
		startingAfter = id(page.Data[len(page.Data)-1])
	}
}

// doGet performs an authenticated GET request and decodes the JSON response.
func (c *Client) doGet(ctx context.Context, path string, params url.Values, result any) error {
	fullURL := c.config.BaseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read stripe response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Stripe API returned error status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("stripe returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to parse stripe response: %w", err)
	}
	return nil
}
