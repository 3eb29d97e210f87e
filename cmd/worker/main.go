package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/plotvista/plotvista-backend/internal/notifications"
	"github.com/plotvista/plotvista-backend/internal/users"
	"github.com/plotvista/plotvista-backend/pkg/config"
	"github.com/plotvista/plotvista-backend/pkg/db"
	"github.com/plotvista/plotvista-backend/pkg/logger"
	"github.com/plotvista/plotvista-backend/pkg/metrics"
	"github.com/plotvista/plotvista-backend/pkg/migrate"
	"github.com/plotvista/plotvista-backend/pkg/outbox"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
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

	lifecycle := metrics.NewLifecycleMetrics(prometheus.DefaultRegisterer)
	outboxRepo := outbox.NewRepository(dbClient.DB())
	userRepo := users.NewRepository(dbClient.DB())
	notificationRepo := notifications.NewRepository(dbClient.DB())

	router, err := notifications.NewRouter(notificationRepo, userRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build notification router", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:    cfg,
		Logger:    logg,
		DB:        dbClient,
		Repo:      outboxRepo,
		Handler:   router,
		Lifecycle: lifecycle,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox drain service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "worker",
	})
	logg.Info(ctx, "starting outbox drain worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox drain worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "outbox drain worker shutting down gracefully")
}
