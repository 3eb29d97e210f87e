package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/plotvista/plotvista-backend/api/routes"
	"github.com/plotvista/plotvista-backend/internal/cameras"
	"github.com/plotvista/plotvista-backend/internal/leaverequests"
	"github.com/plotvista/plotvista-backend/internal/notifications"
	"github.com/plotvista/plotvista-backend/internal/plots"
	"github.com/plotvista/plotvista-backend/internal/projects"
	"github.com/plotvista/plotvista-backend/internal/users"
	"github.com/plotvista/plotvista-backend/internal/visitrequests"
	"github.com/plotvista/plotvista-backend/pkg/config"
	"github.com/plotvista/plotvista-backend/pkg/db"
	"github.com/plotvista/plotvista-backend/pkg/logger"
	"github.com/plotvista/plotvista-backend/pkg/metrics"
	"github.com/plotvista/plotvista-backend/pkg/migrate"
	"github.com/plotvista/plotvista-backend/pkg/outbox"
	"github.com/plotvista/plotvista-backend/pkg/qr"
	"github.com/plotvista/plotvista-backend/pkg/redis"
	"github.com/plotvista/plotvista-backend/pkg/retry"
)

const shutdownGrace = 15 * time.Second

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

	lifecycle := metrics.NewLifecycleMetrics(prometheus.DefaultRegisterer)
	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)
	retryPolicy := retry.NewPolicy(cfg.Retry, logg)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	userService, err := users.NewService(users.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	projectService, err := projects.NewService(projects.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create project service", err)
		os.Exit(1)
	}

	plotService, err := plots.NewService(plots.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create plot service", err)
		os.Exit(1)
	}

	visitService, err := visitrequests.NewService(visitrequests.Deps{
		Repo:      visitrequests.NewRepository(dbClient.DB()),
		Users:     users.NewRepository(dbClient.DB()),
		Plots:     plots.NewRepository(dbClient.DB()),
		Outbox:    outboxService,
		Encoder:   qr.NewPNGEncoder(),
		Tx:        dbClient,
		Retry:     retryPolicy,
		Visit:     cfg.Visit,
		Logger:    logg,
		Lifecycle: lifecycle,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create visit request service", err)
		os.Exit(1)
	}

	leaveService, err := leaverequests.NewService(leaverequests.Deps{
		Repo:   leaverequests.NewRepository(dbClient.DB()),
		Users:  users.NewRepository(dbClient.DB()),
		Outbox: outboxService,
		Tx:     dbClient,
		Retry:  retryPolicy,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create leave request service", err)
		os.Exit(1)
	}

	cameraService, err := cameras.NewService(cameras.NewRepository(dbClient.DB()), plots.NewRepository(dbClient.DB()), qr.NewPNGEncoder(), retryPolicy, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create camera service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
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
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			httpMetrics,
			userService,
			projectService,
			plotService,
			visitService,
			leaveService,
			cameraService,
			notificationService,
		),
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stopCtx.Done():
		logg.Info(ctx, "shutdown signal received, draining connections")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "error during server shutdown", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}
