package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/curamedis/caresupply-backend/internal/cron"
	"github.com/curamedis/caresupply-backend/internal/orders"
	"github.com/curamedis/caresupply-backend/internal/patients"
	"github.com/curamedis/caresupply-backend/internal/recurring"
	"github.com/curamedis/caresupply-backend/internal/stock"
	"github.com/curamedis/caresupply-backend/pkg/config"
	"github.com/curamedis/caresupply-backend/pkg/db"
	"github.com/curamedis/caresupply-backend/pkg/logger"
	"github.com/curamedis/caresupply-backend/pkg/metrics"
	"github.com/curamedis/caresupply-backend/pkg/migrate"
	"github.com/curamedis/caresupply-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ordersSvc, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient, stock.NewLedger())
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	notices, cleanup, err := buildNoticePublisher(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notice publisher", err)
		os.Exit(1)
	}
	defer cleanup()

	recurringSvc, err := recurring.NewService(recurring.ServiceParams{
		Repo:     recurring.NewRepository(dbClient.DB()),
		Orders:   ordersSvc,
		Patients: patients.NewRepository(dbClient.DB()),
		Notices:  notices,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create recurring service", err)
		os.Exit(1)
	}

	notificationJob, err := cron.NewAdvanceNotificationJob(logg, recurringSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification job", err)
		os.Exit(1)
	}
	recurringJob, err := cron.NewRecurringOrderJob(logg, recurringSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create recurring order job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+cfg.App.Env), cfg.Scheduler.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	// Notifications run before executions so a template whose notice day
	// and execution day coincide still notifies first.
	registry := cron.NewRegistry(notificationJob, recurringJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Scheduler.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
