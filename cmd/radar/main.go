package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/moneyradar/backend/internal/domain/repository"
	"github.com/moneyradar/backend/internal/domain/service"
	"github.com/moneyradar/backend/internal/infrastructure/config"
	stripeClient "github.com/moneyradar/backend/internal/infrastructure/external/stripe"
	"github.com/moneyradar/backend/internal/infrastructure/persistence/pool"
	pgrepo "github.com/moneyradar/backend/internal/infrastructure/persistence/repository"
)

var rootCmd = &cobra.Command{
	Use:   "radar",
	Short: "Revenue intelligence from billing data",
	Long: `radar inspects subscription revenue: MRR snapshots, usage-to-price
mismatches, churn-risk alerts, expansion scores and pricing experiments.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the repositories and services the CLI commands work with.
// Commands talk straight to the database; the API server is not required.
type app struct {
	cfg  *config.Config
	pool *pgxpool.Pool

	productRepo    repository.ProductRepository
	planRepo       repository.PlanRepository
	subRepo        repository.SubscriptionRepository
	alertRepo      repository.AlertRepository
	experimentRepo repository.ExperimentRepository

	snapshots  *service.SnapshotService
	mismatches *service.MismatchDetector
	risks      *service.RiskDetector
	scorer     *service.ExpansionScorer
	tracker    *service.ExperimentTracker
	reporter   *service.ExperimentReporter
	syncer     *stripeClient.CatalogSyncer
}

// newApp loads config and wires services over a database pool. Service logs
// are discarded so command output stays clean.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	dbPool, err := pool.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	logger := zap.NewNop()

	productRepo := pgrepo.NewProductRepository(dbPool)
	planRepo := pgrepo.NewPlanRepository(dbPool)
	subRepo := pgrepo.NewSubscriptionRepository(dbPool)
	eventRepo := pgrepo.NewRevenueEventRepository(dbPool)
	snapshotRepo := pgrepo.NewSnapshotRepository(dbPool)
	usageRepo := pgrepo.NewUsageRepository(dbPool)
	alertRepo := pgrepo.NewAlertRepository(dbPool)
	scoreRepo := pgrepo.NewScoreRepository(dbPool)
	experimentRepo := pgrepo.NewExperimentRepository(dbPool)

	catalogClient := stripeClient.NewClient(stripeClient.Config{APIKey: cfg.Stripe.APIKey}, logger)

	return &app{
		cfg:            cfg,
		pool:           dbPool,
		productRepo:    productRepo,
		planRepo:       planRepo,
		subRepo:        subRepo,
		alertRepo:      alertRepo,
		experimentRepo: experimentRepo,
		snapshots:      service.NewSnapshotService(subRepo, eventRepo, snapshotRepo, logger),
		mismatches: service.NewMismatchDetector(
			subRepo, planRepo, usageRepo, alertRepo,
			cfg.Detection.UsageMismatchThreshold,
			logger,
		),
		risks: service.NewRiskDetector(
			subRepo, eventRepo, snapshotRepo, usageRepo, alertRepo,
			service.RiskThresholds{
				MRRDeclineWarningPercent:  cfg.Detection.MRRDeclineWarningPercent,
				MRRDeclineCriticalPercent: cfg.Detection.MRRDeclineCriticalPercent,
			},
			logger,
		),
		scorer:   service.NewExpansionScorer(subRepo, usageRepo, scoreRepo, logger),
		tracker:  service.NewExperimentTracker(experimentRepo, subRepo, logger),
		reporter: service.NewExperimentReporter(experimentRepo),
		syncer:   stripeClient.NewCatalogSyncer(catalogClient, productRepo, planRepo, logger),
	}, nil
}

func (a *app) Close() {
	pool.Close(a.pool)
}
