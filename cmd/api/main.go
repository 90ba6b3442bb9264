package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/curamedis/caresupply-backend/api/routes"
	"github.com/curamedis/caresupply-backend/internal/orders"
	"github.com/curamedis/caresupply-backend/internal/patients"
	"github.com/curamedis/caresupply-backend/internal/recurring"
	"github.com/curamedis/caresupply-backend/internal/stock"
	"github.com/curamedis/caresupply-backend/pkg/config"
	"github.com/curamedis/caresupply-backend/pkg/db"
	"github.com/curamedis/caresupply-backend/pkg/logger"
	"github.com/curamedis/caresupply-backend/pkg/migrate"
	"github.com/curamedis/caresupply-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	stockSvc, err := stock.NewService(stock.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock service", err)
		os.Exit(1)
	}

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

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, ordersSvc, stockSvc, recurringSvc),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
