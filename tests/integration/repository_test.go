//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneyradar/backend/internal/domain/entity"
	domainErrors "github.com/moneyradar/backend/internal/domain/errors"
	infrarepo "github.com/moneyradar/backend/internal/infrastructure/persistence/repository"
	"github.com/moneyradar/backend/tests/testutil"
)

func TestCatalogRepositoryIntegration(t *testing.T) {
	ctx := context.Background()

	dbContainer, err := testutil.SetupTestDBContainer(ctx, t)
	require.NoError(t, err)
	defer dbContainer.Teardown(ctx, t)

	err = testutil.RunMigrations(ctx, dbContainer)
	require.NoError(t, err)

	productRepo := infrarepo.NewProductRepository(dbContainer.Pool)
	planRepo := infrarepo.NewPlanRepository(dbContainer.Pool)
	catalog := testutil.NewCatalogFactory()

	t.Run("UpsertProductIsIdempotent", func(t *testing.T) {
		product := catalog.CreateProduct("Analytics")

		err := productRepo.Upsert(ctx, product)
		require.NoError(t, err)
		require.NotZero(t, product.ID)
		firstID := product.ID

		product.Name = "Analytics Pro"
		err = productRepo.Upsert(ctx, product)
		require.NoError(t, err)
		assert.Equal(t, firstID, product.ID)

		retrieved, err := productRepo.GetByStripeID(ctx, product.StripeProductID)
		require.NoError(t, err)
		assert.Equal(t, "Analytics Pro", retrieved.Name)
	})

	t.Run("CreatePlanAndGetByStripePriceID", func(t *testing.T) {
		product := catalog.CreateProduct("Platform")
		require.NoError(t, productRepo.Upsert(ctx, product))

		plan := catalog.CreatePlan(product.ID, 49, map[string]float64{"api_calls": 10000})
		err := planRepo.Create(ctx, plan)
		require.NoError(t, err)
		require.NotZero(t, plan.ID)

		retrieved, err := planRepo.GetByStripePriceID(ctx, plan.StripePriceID)
		require.NoError(t, err)
		assert.Equal(t, plan.Name, retrieved.Name)
		assert.Equal(t, 49.0, retrieved.PriceMonthly)
		assert.Equal(t, map[string]float64{"api_calls": 10000}, retrieved.Limits)
	})

	t.Run("GetByStripePriceIDNotFound", func(t *testing.T) {
		_, err := planRepo.GetByStripePriceID(ctx, "price_missing")
		assert.ErrorIs(t, err, domainErrors.ErrPlanNotFound)
	})

	t.Run("ListUpgradesReturnsPricierPlansOnly", func(t *testing.T) {
		product := catalog.CreateProduct("Tiers")
		require.NoError(t, productRepo.Upsert(ctx, product))

		starter := catalog.CreatePlan(product.ID, 29, nil)
		growth := catalog.CreatePlan(product.ID, 99, nil)
		scale := catalog.CreatePlan(product.ID, 299, nil)
		for _, p := range []*entity.Plan{starter, growth, scale} {
			require.NoError(t, planRepo.Create(ctx, p))
		}

		upgrades, err := planRepo.ListUpgrades(ctx, product.ID, 29)
		require.NoError(t, err)
		require.Len(t, upgrades, 2)
		assert.Equal(t, growth.ID, upgrades[0].ID)
		assert.Equal(t, scale.ID, upgrades[1].ID)
	})
}

func TestSubscriptionRepositoryIntegration(t *testing.T) {
	ctx := context.Background()

	dbContainer, err := testutil.SetupTestDBContainer(ctx, t)
	require.NoError(t, err)
	defer dbContainer.Teardown(ctx, t)

	err = testutil.RunMigrations(ctx, dbContainer)
	require.NoError(t, err)

	productRepo := infrarepo.NewProductRepository(dbContainer.Pool)
	planRepo := infrarepo.NewPlanRepository(dbContainer.Pool)
	subRepo := infrarepo.NewSubscriptionRepository(dbContainer.Pool)

	catalog := testutil.NewCatalogFactory()
	subs := testutil.NewSubscriptionFactory()

	product := catalog.CreateProduct("Radar")
	require.NoError(t, productRepo.Upsert(ctx, product))
	plan := catalog.CreatePlan(product.ID, 99, nil)
	require.NoError(t, planRepo.Create(ctx, plan))

	t.Run("CreateAndGetActiveByCustomerID", func(t *testing.T) {
		sub := subs.CreateActive(plan.ID, 99)
		err := subRepo.Create(ctx, sub)
		require.NoError(t, err)
		require.NotZero(t, sub.ID)

		retrieved, err := subRepo.GetActiveByCustomerID(ctx, sub.CustomerID)
		require.NoError(t, err)
		assert.Equal(t, sub.ID, retrieved.ID)
		assert.Equal(t, entity.SubscriptionActive, retrieved.Status)
	})

	t.Run("TotalActiveMRRExcludesCanceled", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, dbContainer))

		product = catalog.CreateProduct("Radar")
		require.NoError(t, productRepo.Upsert(ctx, product))
		plan = catalog.CreatePlan(product.ID, 99, nil)
		require.NoError(t, planRepo.Create(ctx, plan))

		require.NoError(t, subRepo.Create(ctx, subs.CreateActive(plan.ID, 100)))
		require.NoError(t, subRepo.Create(ctx, subs.CreateActive(plan.ID, 250)))
		require.NoError(t, subRepo.Create(ctx, subs.CreateCanceled(plan.ID, 500)))

		total, err := subRepo.TotalActiveMRR(ctx)
		require.NoError(t, err)
		assert.InDelta(t, 350, total, 0.001)
	})

	t.Run("MRRByProductGroupsByProductName", func(t *testing.T) {
		byProduct, err := subRepo.MRRByProduct(ctx)
		require.NoError(t, err)
		assert.InDelta(t, 350, byProduct["Radar"], 0.001)
	})

	t.Run("CountCanceledSince", func(t *testing.T) {
		count, err := subRepo.CountCanceledSince(ctx, time.Now().UTC().AddDate(0, 0, -7))
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("UpdatePersistsStatusChange", func(t *testing.T) {
		sub := subs.CreateActive(plan.ID, 79)
		require.NoError(t, subRepo.Create(ctx, sub))

		now := time.Now().UTC()
		sub.Status = entity.SubscriptionCanceled
		sub.CanceledAt = &now
		require.NoError(t, subRepo.Update(ctx, sub))

		retrieved, err := subRepo.GetByID(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.SubscriptionCanceled, retrieved.Status)
		require.NotNil(t, retrieved.CanceledAt)
	})
}

func TestUsageRepositoryIntegration(t *testing.T) {
	ctx := context.Background()

	dbContainer, cleanup, err := testutil.SetupTestDB(ctx)
	require.NoError(t, err)
	defer cleanup()

	err = testutil.RunMigrations(ctx, dbContainer)
	require.NoError(t, err)

	productRepo := infrarepo.NewProductRepository(dbContainer.Pool)
	planRepo := infrarepo.NewPlanRepository(dbContainer.Pool)
	subRepo := infrarepo.NewSubscriptionRepository(dbContainer.Pool)
	usageRepo := infrarepo.NewUsageRepository(dbContainer.Pool)

	catalog := testutil.NewCatalogFactory()
	product := catalog.CreateProduct("Usage")
	require.NoError(t, productRepo.Upsert(ctx, product))
	plan := catalog.CreatePlan(product.ID, 49, map[string]float64{"api_calls": 1000})
	require.NoError(t, planRepo.Create(ctx, plan))

	sub := testutil.NewSubscriptionFactory().CreateActive(plan.ID, 49)
	require.NoError(t, subRepo.Create(ctx, sub))

	usage := testutil.NewUsageFactory()
	limit := 1000.0

	t.Run("CreateAndListForPeriod", func(t *testing.T) {
		record := usage.Create(sub.ID, "api_calls", 850, &limit)
		err := usageRepo.Create(ctx, record)
		require.NoError(t, err)
		require.NotZero(t, record.ID)

		records, err := usageRepo.ListForPeriod(ctx, sub.ID, record.PeriodStart, record.PeriodEnd)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "api_calls", records[0].MetricName)
		require.NotNil(t, records[0].Limit)
		assert.Equal(t, 1000.0, *records[0].Limit)
	})

	t.Run("ListBoundedSkipsUnlimitedMetrics", func(t *testing.T) {
		unbounded := usage.Create(sub.ID, "webhook_deliveries", 12000, nil)
		require.NoError(t, usageRepo.Create(ctx, unbounded))

		records, err := usageRepo.ListBounded(ctx, sub.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "api_calls", records[0].MetricName)
	})

	t.Run("ListRecordedSinceOrdersByRecordedAt", func(t *testing.T) {
		records, err := usageRepo.ListRecordedSince(ctx, sub.ID, time.Now().UTC().AddDate(0, 0, -1))
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})
}
