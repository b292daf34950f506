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
	"github.com/moneyradar/backend/internal/domain/repository"
	infrarepo "github.com/moneyradar/backend/internal/infrastructure/persistence/repository"
	"github.com/moneyradar/backend/tests/testutil"
)

func TestSnapshotRepositoryIntegration(t *testing.T) {
	ctx := context.Background()

	dbContainer, err := testutil.SetupTestDBContainer(ctx, t)
	require.NoError(t, err)
	defer dbContainer.Teardown(ctx, t)

	err = testutil.RunMigrations(ctx, dbContainer)
	require.NoError(t, err)

	snapshotRepo := infrarepo.NewSnapshotRepository(dbContainer.Pool)
	today := entity.SnapshotDate(time.Now().UTC())

	t.Run("CreateAndGetByDate", func(t *testing.T) {
		snapshot := &entity.MRRSnapshot{
			Date:             today,
			TotalMRR:         12500,
			NewMRR:           400,
			ChurnedMRR:       150,
			ProductBreakdown: map[string]float64{"Radar": 12500},
		}
		err := snapshotRepo.Create(ctx, snapshot)
		require.NoError(t, err)
		require.NotZero(t, snapshot.ID)

		retrieved, err := snapshotRepo.GetByDate(ctx, today)
		require.NoError(t, err)
		assert.InDelta(t, 12500, retrieved.TotalMRR, 0.001)
		assert.Equal(t, map[string]float64{"Radar": 12500}, retrieved.ProductBreakdown)
	})

	t.Run("DuplicateDateReturnsErrSnapshotExists", func(t *testing.T) {
		err := snapshotRepo.Create(ctx, &entity.MRRSnapshot{Date: today, TotalMRR: 1})
		assert.ErrorIs(t, err, domainErrors.ErrSnapshotExists)
	})

	t.Run("LatestReturnsNewestSnapshot", func(t *testing.T) {
		yesterday := today.AddDate(0, 0, -1)
		err := snapshotRepo.Create(ctx, &entity.MRRSnapshot{Date: yesterday, TotalMRR: 12100})
		require.NoError(t, err)

		latest, err := snapshotRepo.Latest(ctx)
		require.NoError(t, err)
		assert.True(t, latest.Date.Equal(today))
	})

	t.Run("ListSinceFiltersByCutoff", func(t *testing.T) {
		snapshots, err := snapshotRepo.ListSince(ctx, today)
		require.NoError(t, err)
		require.Len(t, snapshots, 1)

		snapshots, err = snapshotRepo.ListSince(ctx, today.AddDate(0, 0, -7))
		require.NoError(t, err)
		assert.Len(t, snapshots, 2)
	})

	t.Run("LatestOnEmptyTableReturnsNotFound", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, dbContainer))
		_, err := snapshotRepo.Latest(ctx)
		assert.ErrorIs(t, err, domainErrors.ErrSnapshotNotFound)
	})
}

func TestAlertRepositoryIntegration(t *testing.T) {
	ctx := context.Background()

	dbContainer, err := testutil.SetupTestDBContainer(ctx, t)
	require.NoError(t, err)
	defer dbContainer.Teardown(ctx, t)

	err = testutil.RunMigrations(ctx, dbContainer)
	require.NoError(t, err)

	alertRepo := infrarepo.NewAlertRepository(dbContainer.Pool)

	newAlert := func(customerID string, alertType entity.AlertType) *entity.Alert {
		alert := entity.NewAlert(alertType, entity.SeverityWarning, customerID)
		alert.Title = "usage approaching plan limit"
		alert.Data = map[string]any{"utilization": 0.92}
		alert.RecommendedAction = "suggest upgrade"
		return alert
	}

	t.Run("CreateAndGetByID", func(t *testing.T) {
		alert := newAlert("cus_alpha", entity.AlertUsageMismatchHigh)
		err := alertRepo.Create(ctx, alert)
		require.NoError(t, err)
		require.NotZero(t, alert.ID)

		retrieved, err := alertRepo.GetByID(ctx, alert.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.AlertUsageMismatchHigh, retrieved.AlertType)
		assert.Equal(t, 0.92, retrieved.Data["utilization"])
		assert.False(t, retrieved.IsResolved)
	})

	t.Run("HasUnresolvedMatchesTypeAndCustomer", func(t *testing.T) {
		exists, err := alertRepo.HasUnresolved(ctx, "cus_alpha", entity.AlertUsageMismatchHigh)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = alertRepo.HasUnresolved(ctx, "cus_alpha", entity.AlertChurnRisk)
		require.NoError(t, err)
		assert.False(t, exists)

		exists, err = alertRepo.HasUnresolved(ctx, "cus_other", entity.AlertUsageMismatchHigh)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("ResolveClearsUnresolvedFlag", func(t *testing.T) {
		alert := newAlert("cus_beta", entity.AlertChurnRisk)
		require.NoError(t, alertRepo.Create(ctx, alert))

		alert.Resolve(time.Now().UTC())
		require.NoError(t, alertRepo.Update(ctx, alert))

		retrieved, err := alertRepo.GetByID(ctx, alert.ID)
		require.NoError(t, err)
		assert.True(t, retrieved.IsResolved)
		require.NotNil(t, retrieved.ResolvedAt)

		exists, err := alertRepo.HasUnresolved(ctx, "cus_beta", entity.AlertChurnRisk)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("ListFiltersOnResolutionState", func(t *testing.T) {
		active, err := alertRepo.List(ctx, repository.AlertsActive, 100)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "cus_alpha", active[0].CustomerID)

		resolved, err := alertRepo.List(ctx, repository.AlertsResolved, 100)
		require.NoError(t, err)
		require.Len(t, resolved, 1)
		assert.Equal(t, "cus_beta", resolved[0].CustomerID)

		all, err := alertRepo.List(ctx, repository.AlertsAll, 100)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("GetByIDNotFound", func(t *testing.T) {
		_, err := alertRepo.GetByID(ctx, 999999)
		assert.ErrorIs(t, err, domainErrors.ErrAlertNotFound)
	})
}

func TestWebhookRepositoryIntegration(t *testing.T) {
	ctx := context.Background()

	dbContainer, err := testutil.SetupTestDBContainer(ctx, t)
	require.NoError(t, err)
	defer dbContainer.Teardown(ctx, t)

	err = testutil.RunMigrations(ctx, dbContainer)
	require.NoError(t, err)

	webhookRepo := infrarepo.NewWebhookRepository(dbContainer.Pool)

	event := &entity.WebhookEvent{
		Provider:   "stripe",
		EventID:    "evt_001",
		EventType:  "invoice.paid",
		Payload:    []byte(`{"id":"evt_001","type":"invoice.paid"}`),
		ReceivedAt: time.Now().UTC(),
	}

	t.Run("InsertAndGetByEventID", func(t *testing.T) {
		err := webhookRepo.Insert(ctx, event)
		require.NoError(t, err)
		require.NotZero(t, event.ID)

		retrieved, err := webhookRepo.GetByEventID(ctx, "stripe", "evt_001")
		require.NoError(t, err)
		assert.Equal(t, "invoice.paid", retrieved.EventType)
		assert.Nil(t, retrieved.ProcessedAt)
	})

	t.Run("ReplayReturnsErrDuplicateEvent", func(t *testing.T) {
		replay := &entity.WebhookEvent{
			Provider:   "stripe",
			EventID:    "evt_001",
			EventType:  "invoice.paid",
			Payload:    []byte(`{"id":"evt_001"}`),
			ReceivedAt: time.Now().UTC(),
		}
		err := webhookRepo.Insert(ctx, replay)
		assert.ErrorIs(t, err, domainErrors.ErrDuplicateEvent)
	})

	t.Run("MarkProcessedSetsTimestamp", func(t *testing.T) {
		err := webhookRepo.MarkProcessed(ctx, event.ID, time.Now().UTC())
		require.NoError(t, err)

		retrieved, err := webhookRepo.GetByEventID(ctx, "stripe", "evt_001")
		require.NoError(t, err)
		require.NotNil(t, retrieved.ProcessedAt)
	})

	t.Run("GetByEventIDNotFound", func(t *testing.T) {
		_, err := webhookRepo.GetByEventID(ctx, "stripe", "evt_missing")
		assert.ErrorIs(t, err, domainErrors.ErrWebhookEventNotFound)
	})
}
