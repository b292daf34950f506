package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/moneyradar/backend/internal/application/middleware"
	"github.com/moneyradar/backend/internal/domain/service"
	"github.com/moneyradar/backend/internal/infrastructure/cache"
	"github.com/moneyradar/backend/internal/infrastructure/config"
	stripeClient "github.com/moneyradar/backend/internal/infrastructure/external/stripe"
	"github.com/moneyradar/backend/internal/infrastructure/logging"
	"github.com/moneyradar/backend/internal/infrastructure/persistence/pool"
	"github.com/moneyradar/backend/internal/infrastructure/persistence/repository"
	"github.com/moneyradar/backend/internal/interfaces/http/handlers"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logging.Init(&cfg.Sentry); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Sync()

	logging.Logger.Info("Starting revenue API server",
		zap.Int("port", cfg.Server.Port),
		zap.String("environment", cfg.Sentry.Environment),
	)

	// Initialize database connection
	ctx := context.Background()
	dbPool, err := pool.NewPool(ctx, cfg.Database)
	if err != nil {
		logging.Logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close(dbPool)

	if err := pool.Ping(ctx, dbPool); err != nil {
		logging.Logger.Fatal("Failed to ping database", zap.Error(err))
	}

	// Initialize Redis
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logging.Logger.Fatal("Failed to parse Redis URL", zap.Error(err))
	}
	opts.PoolSize = cfg.Redis.PoolSize
	redisClient := redis.NewClient(opts)
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logging.Logger.Fatal("Failed to ping Redis", zap.Error(err))
	}

	// Initialize asynq client for webhook processing
	asynqClient := asynq.NewClientFromRedisClient(redisClient)

	// Initialize repositories
	productRepo := repository.NewProductRepository(dbPool)
	planRepo := repository.NewPlanRepository(dbPool)
	subRepo := repository.NewSubscriptionRepository(dbPool)
	eventRepo := repository.NewRevenueEventRepository(dbPool)
	snapshotRepo := repository.NewSnapshotRepository(dbPool)
	usageRepo := repository.NewUsageRepository(dbPool)
	alertRepo := repository.NewAlertRepository(dbPool)
	scoreRepo := repository.NewScoreRepository(dbPool)
	experimentRepo := repository.NewExperimentRepository(dbPool)
	webhookRepo := repository.NewWebhookRepository(dbPool)

	// Initialize services
	snapshots := service.NewSnapshotService(subRepo, eventRepo, snapshotRepo, logging.Logger)
	usage := service.NewUsageService(subRepo, planRepo, usageRepo, logging.Logger)
	mismatches := service.NewMismatchDetector(
		subRepo, planRepo, usageRepo, alertRepo,
		cfg.Detection.UsageMismatchThreshold,
		logging.Logger,
	)
	risks := service.NewRiskDetector(
		subRepo, eventRepo, snapshotRepo, usageRepo, alertRepo,
		service.RiskThresholds{
			MRRDeclineWarningPercent:  cfg.Detection.MRRDeclineWarningPercent,
			MRRDeclineCriticalPercent: cfg.Detection.MRRDeclineCriticalPercent,
		},
		logging.Logger,
	)
	scorer := service.NewExpansionScorer(subRepo, usageRepo, scoreRepo, logging.Logger)
	tracker := service.NewExperimentTracker(experimentRepo, subRepo, logging.Logger)
	reporter := service.NewExperimentReporter(experimentRepo)

	metricsCache := cache.NewMetricsCache(redisClient, logging.Logger)
	catalogClient := stripeClient.NewClient(stripeClient.Config{APIKey: cfg.Stripe.APIKey}, logging.Logger)
	syncer := stripeClient.NewCatalogSyncer(catalogClient, productRepo, planRepo, logging.Logger)
	verifier := stripeClient.NewSignatureVerifier(cfg.Stripe.WebhookSecret)

	// Initialize middleware
	jwtMiddleware := middleware.NewJWTMiddleware(cfg.JWT)
	rateLimiter := middleware.NewRateLimiter(redisClient, true) // fail open

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(verifier, webhookRepo, asynqClient)
	revenueHandler := handlers.NewRevenueHandler(subRepo, snapshotRepo, metricsCache)
	alertHandler := handlers.NewAlertHandler(alertRepo, risks)
	analysisHandler := handlers.NewAnalysisHandler(mismatches)
	customerHandler := handlers.NewCustomerHandler(scoreRepo, scorer)
	usageHandler := handlers.NewUsageHandler(usage)
	experimentHandler := handlers.NewExperimentHandler(tracker, reporter, experimentRepo)
	adminHandler := handlers.NewAdminHandler(syncer, snapshots, metricsCache)

	// Setup Gin router
	if cfg.Sentry.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		logging.RequestMiddleware(logging.Logger),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Webhook routes (no auth, verified by signature)
	webhooks := router.Group("/webhook")
	{
		webhooks.POST("/stripe",
			rateLimiter.Middleware(middleware.ByIP, middleware.WebhookConfig),
			webhookHandler.StripeWebhook,
		)
	}

	api := router.Group("/api")
	api.Use(rateLimiter.Middleware(middleware.ByIP, middleware.DefaultConfig))
	{
		revenue := api.Group("/revenue")
		{
			revenue.GET("/mrr", revenueHandler.GetMRR)
			revenue.GET("/snapshots", revenueHandler.ListSnapshots)
		}

		alerts := api.Group("/alerts")
		{
			alerts.GET("", alertHandler.List)
			alerts.POST("/scan", alertHandler.Scan)
			alerts.POST("/:id/resolve", alertHandler.Resolve)
		}

		analysis := api.Group("/analysis")
		{
			analysis.GET("/mismatches", analysisHandler.GetMismatches)
			analysis.GET("/feature-pricing", analysisHandler.GetFeaturePricing)
		}

		api.GET("/customers/:customer_id/score", customerHandler.GetScore)

		usageRoutes := api.Group("/usage")
		{
			usageRoutes.POST("", usageHandler.Record)
			usageRoutes.POST("/import", usageHandler.Import)
			usageRoutes.GET("/:subscription_id/summary", usageHandler.Summary)
		}

		experiments := api.Group("/experiments")
		{
			experiments.GET("", experimentHandler.List)
			experiments.POST("", experimentHandler.Create)
			experiments.GET("/report", experimentHandler.Report)
			experiments.GET("/learnings", experimentHandler.Learnings)
			experiments.GET("/:id", experimentHandler.Get)
			experiments.POST("/:id/start", experimentHandler.Start)
			experiments.POST("/:id/complete", experimentHandler.Complete)
		}

		admin := api.Group("/admin")
		admin.Use(jwtMiddleware.Authenticate())
		admin.Use(rateLimiter.Middleware(middleware.ByUserID, middleware.AdminConfig))
		{
			admin.POST("/sync-stripe", adminHandler.SyncStripe)
			admin.POST("/snapshot", adminHandler.Snapshot)
		}
	}

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logging.Logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logging.Logger.Info("Server exited")
}
