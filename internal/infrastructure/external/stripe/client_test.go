package stripe_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/moneyradar/backend/internal/domain/entity"
	domainErrors "github.com/moneyradar/backend/internal/domain/errors"
	"github.com/moneyradar/backend/internal/infrastructure/external/stripe"
	"github.com/moneyradar/backend/tests/mocks"
)

func newTestClient(t *testing.T, handler http.Handler) (*stripe.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := stripe.NewClient(stripe.Config{
		APIKey:  "sk_test_123",
		BaseURL: server.URL,
	}, zap.NewNop())
	return client, server
}

func TestClientListActiveProducts(t *testing.T) {
	t.Run("follows pagination", func(t *testing.T) {
		calls := 0
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/products", r.URL.Path)
			require.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
			require.Equal(t, "true", r.URL.Query().Get("active"))

			calls++
			w.Header().Set("Content-Type", "application/json")
			switch calls {
			case 1:
				require.Empty(t, r.URL.Query().Get("starting_after"))
				w.Write([]byte(`{"data":[{"id":"prod_a","name":"Starter","active":true}],"has_more":true}`))
			default:
				require.Equal(t, "prod_a", r.URL.Query().Get("starting_after"))
				w.Write([]byte(`{"data":[{"id":"prod_b","name":"Pro","active":true}],"has_more":false}`))
			}
		}))

		products, err := client.ListActiveProducts(context.Background())

		require.NoError(t, err)
		require.Len(t, products, 2)
		assert.Equal(t, "prod_a", products[0].ID)
		assert.Equal(t, "Pro", products[1].Name)
		assert.Equal(t, 2, calls)
	})

	t.Run("surfaces API errors", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"Invalid API Key"}}`))
		}))

		_, err := client.ListActiveProducts(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 401")
	})
}

func TestPriceMonthlyAmount(t *testing.T) {
	monthly := stripe.Price{UnitAmount: 9900, Recurring: &stripe.Recurring{Interval: "month"}}
	assert.Equal(t, 99.0, monthly.MonthlyAmount())

	yearly := stripe.Price{UnitAmount: 120000, Recurring: &stripe.Recurring{Interval: "year"}}
	assert.Equal(t, 100.0, yearly.MonthlyAmount())
	annual, ok := yearly.AnnualAmount()
	require.True(t, ok)
	assert.Equal(t, 1200.0, annual)

	oneTime := stripe.Price{UnitAmount: 5000}
	assert.Equal(t, 0.0, oneTime.MonthlyAmount())
}

func TestPriceMetadata(t *testing.T) {
	price := stripe.Price{Metadata: map[string]string{
		"limit_api_calls":  "10000",
		"limit_storage_gb": "100",
		"limit_bogus":      "not-a-number",
		"features":         "sso, audit_log,priority_support",
		"internal_note":    "ignored",
	}}

	limits := price.Limits()
	assert.Equal(t, map[string]float64{"api_calls": 10000, "storage_gb": 100}, limits)
	assert.Equal(t, []string{"sso", "audit_log", "priority_support"}, price.Features())
}

func TestCatalogSyncerSync(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/products":
			w.Write([]byte(`{"data":[{"id":"prod_a","name":"Starter","description":"Entry plan","active":true}],"has_more":false}`))
		case "/v1/prices":
			w.Write([]byte(`{"data":[
				{"id":"price_new","product":"prod_a","nickname":"Starter Monthly","currency":"usd","unit_amount":4900,"active":true,"recurring":{"interval":"month"},"metadata":{"limit_api_calls":"5000"}},
				{"id":"price_known","product":"prod_a","currency":"usd","unit_amount":49000,"active":true,"recurring":{"interval":"year"}},
				{"id":"price_orphan","product":"prod_gone","currency":"usd","unit_amount":100,"active":true,"recurring":{"interval":"month"}}
			],"has_more":false}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})
	client, _ := newTestClient(t, handler)

	productRepo := mocks.NewMockProductRepository()
	planRepo := mocks.NewMockPlanRepository()

	productRepo.On("Upsert", mock.Anything, mock.AnythingOfType("*entity.Product")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*entity.Product).ID = 7
		}).Return(nil)

	planRepo.On("GetByStripePriceID", mock.Anything, "price_new").Return(nil, domainErrors.ErrPlanNotFound)
	planRepo.On("GetByStripePriceID", mock.Anything, "price_known").Return(&entity.Plan{ID: 3}, nil)
	planRepo.On("Create", mock.Anything, mock.AnythingOfType("*entity.Plan")).Return(nil)

	syncer := stripe.NewCatalogSyncer(client, productRepo, planRepo, zap.NewNop())
	result, err := syncer.Sync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Products)
	assert.Equal(t, 1, result.PlansCreated)
	assert.Equal(t, 1, result.PlansExisting)
	assert.Equal(t, 1, result.PricesSkipped)

	var created *entity.Plan
	for _, call := range planRepo.Calls {
		if call.Method == "Create" {
			created = call.Arguments.Get(1).(*entity.Plan)
		}
	}
	require.NotNil(t, created)
	assert.Equal(t, int64(7), created.ProductID)
	assert.Equal(t, "Starter Monthly", created.Name)
	assert.Equal(t, 49.0, created.PriceMonthly)
	assert.Nil(t, created.PriceAnnual)
	assert.Equal(t, map[string]float64{"api_calls": 5000}, created.Limits)
	assert.Equal(t, "price_new", created.StripePriceID)
	assert.True(t, created.IsActive)
}
