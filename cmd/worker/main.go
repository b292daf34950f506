package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/moneyradar/backend/internal/domain/service"
	"github.com/moneyradar/backend/internal/infrastructure/cache"
	"github.com/moneyradar/backend/internal/infrastructure/config"
	"github.com/moneyradar/backend/internal/infrastructure/logging"
	"github.com/moneyradar/backend/internal/infrastructure/persistence/pool"
	"github.com/moneyradar/backend/internal/infrastructure/persistence/repository"
	"github.com/moneyradar/backend/internal/worker/tasks"
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

	logging.Logger.Info("Starting revenue worker")

	// Initialize database
	ctx := context.Background()
	dbPool, err := pool.NewPool(ctx, cfg.Database)
	if err != nil {
		logging.Logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close(dbPool)

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

	// Initialize repositories
	planRepo := repository.NewPlanRepository(dbPool)
	subRepo := repository.NewSubscriptionRepository(dbPool)
	eventRepo := repository.NewRevenueEventRepository(dbPool)
	snapshotRepo := repository.NewSnapshotRepository(dbPool)
	usageRepo := repository.NewUsageRepository(dbPool)
	alertRepo := repository.NewAlertRepository(dbPool)
	scoreRepo := repository.NewScoreRepository(dbPool)
	webhookRepo := repository.NewWebhookRepository(dbPool)

	// Initialize services
	ingestion := service.NewIngestionService(subRepo, planRepo, eventRepo, logging.Logger)
	snapshots := service.NewSnapshotService(subRepo, eventRepo, snapshotRepo, logging.Logger)
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
	metricsCache := cache.NewMetricsCache(redisClient, logging.Logger)

	// Initialize job handlers
	webhookJobs := tasks.NewWebhookJobHandler(webhookRepo, ingestion, logging.Logger)
	snapshotJobs := tasks.NewSnapshotJobHandler(snapshots, metricsCache, logging.Logger)
	detectionJobs := tasks.NewDetectionJobHandler(risks, mismatches, scorer, logging.Logger)

	// Initialize asynq server
	server := asynq.NewServerFromRedisClient(redisClient, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
		RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
			// Exponential backoff: 2^n seconds
			return time.Duration(1<<uint(n)) * time.Second
		},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeWebhookProcess, webhookJobs.HandleWebhookProcess)
	mux.HandleFunc(tasks.TypeDailySnapshot, snapshotJobs.HandleDailySnapshot)
	mux.HandleFunc(tasks.TypeRiskScan, detectionJobs.HandleRiskScan)
	mux.HandleFunc(tasks.TypeMismatchScan, detectionJobs.HandleMismatchScan)
	mux.HandleFunc(tasks.TypeScoreRefresh, detectionJobs.HandleScoreRefresh)

	if err := server.Start(mux); err != nil {
		logging.Logger.Fatal("Failed to start worker", zap.Error(err))
	}

	// Register recurring jobs
	scheduler := asynq.NewSchedulerFromRedisClient(redisClient, nil)
	if err := tasks.ScheduleSnapshotJobs(scheduler); err != nil {
		logging.Logger.Fatal("Failed to schedule snapshot jobs", zap.Error(err))
	}
	if err := tasks.ScheduleDetectionJobs(scheduler); err != nil {
		logging.Logger.Fatal("Failed to schedule detection jobs", zap.Error(err))
	}

	if err := scheduler.Start(); err != nil {
		logging.Logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	logging.Logger.Info("Worker started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Logger.Info("Shutting down worker...")

	scheduler.Shutdown()
	server.Shutdown()

	logging.Logger.Info("Worker exited")
}
