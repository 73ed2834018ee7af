package main

import (
	"context"
	"log"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/velorek/notiq/internal/config"
	"github.com/velorek/notiq/internal/handler"
	"github.com/velorek/notiq/internal/idempotency"
	"github.com/velorek/notiq/internal/infra/postgresql"
	"github.com/velorek/notiq/internal/infra/postgresql/migrations"
	infraredis "github.com/velorek/notiq/internal/infra/redis"
	"github.com/velorek/notiq/internal/ledger"
	"github.com/velorek/notiq/internal/observability"
	"github.com/velorek/notiq/internal/provider"
	"github.com/velorek/notiq/internal/repository"
	"github.com/velorek/notiq/internal/service"
	"github.com/velorek/notiq/internal/transport"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	metrics := observability.NewMetrics()

	jobs := repository.NewGormJobRepo(db)
	audits := repository.NewGormAuditRepo(db)
	keys := repository.NewGormIdempotencyRepo(db)

	auditLedger, err := ledger.NewLedger(audits, logger)
	if err != nil {
		logger.Fatal("ledger initialization failed", zap.Error(err))
	}

	emailProvider, err := provider.NewEmailAPIProvider(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFrom)
	if err != nil {
		logger.Fatal("email provider initialization failed", zap.Error(err))
	}
	primary := provider.NewRetryingSender(emailProvider, 3)

	var secondary provider.Provider
	if cfg.WebhookFallbackURL != "" {
		webhookProvider, err := provider.NewWebhookProvider(cfg.WebhookFallbackURL)
		if err != nil {
			logger.Fatal("webhook provider initialization failed", zap.Error(err))
		}
		secondary = webhookProvider
	} else {
		logger.Warn("no webhook fallback configured, failover disabled")
	}

	dispatcher, err := service.NewDispatcher(primary, secondary, metrics, logger)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	processor, err := service.NewQueueProcessor(
		jobs,
		auditLedger,
		dispatcher,
		limiter,
		cfg.OperatorEmail,
		time.Duration(cfg.PollIntervalSec)*time.Second,
		cfg.PollBatchSize,
		logger,
	)
	if err != nil {
		logger.Fatal("queue processor initialization failed", zap.Error(err))
	}
	processor.SetMetrics(metrics)

	monitor, err := service.NewMonitor(
		jobs,
		dispatcher,
		cfg.OperatorEmail,
		time.Duration(cfg.MonitorIntervalSec)*time.Second,
		cfg.StrugglingAttemptsMin,
		cfg.DegradedThreshold,
		logger,
	)
	if err != nil {
		logger.Fatal("monitor initialization failed", zap.Error(err))
	}
	monitor.SetMetrics(metrics)

	sweeper, err := service.NewSweeper(keys, time.Duration(cfg.SweepIntervalSec)*time.Second, logger)
	if err != nil {
		logger.Fatal("sweeper initialization failed", zap.Error(err))
	}
	sweeper.SetMetrics(metrics)

	enqueueGuard, err := idempotency.NewGuard(db, "enqueue_notification",
		func(ctx context.Context, tx *gorm.DB, input service.EnqueueInput) (int64, error) {
			job, err := processor.EnqueueTx(ctx, repository.NewGormJobRepo(tx), input)
			if err != nil {
				return 0, err
			}
			return job.ID, nil
		},
		logger,
	)
	if err != nil {
		logger.Fatal("idempotency guard initialization failed", zap.Error(err))
	}
	enqueueGuard.SetMetrics(metrics)

	supervisor, err := service.NewSupervisor(logger, processor, monitor, sweeper)
	if err != nil {
		logger.Fatal("supervisor initialization failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	supervisorDone := make(chan error, 1)
	go func() {
		supervisorDone <- supervisor.Start(ctx)
	}()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	if err := handler.RegisterJobRoutes(app, enqueueGuard, jobs); err != nil {
		logger.Fatal("job route registration failed", zap.Error(err))
	}
	if err := handler.RegisterAuditRoutes(app, auditLedger); err != nil {
		logger.Fatal("audit route registration failed", zap.Error(err))
	}

	go func() {
		if err := app.Listen(":" + strconv.Itoa(cfg.APIPort)); err != nil {
			logger.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()

	logger.Info("notiq api started", zap.Int("port", cfg.APIPort))

	<-ctx.Done()
	logger.Info("shutdown signal received")

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}

	if err := <-supervisorDone; err != nil {
		logger.Error("background loops stopped with error", zap.Error(err))
	}

	logger.Info("notiq api stopped")
}
