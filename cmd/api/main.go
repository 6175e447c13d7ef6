package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bottlespin/bottlespin-backend/api/routes"
	"github.com/bottlespin/bottlespin-backend/internal/ledger"
	"github.com/bottlespin/bottlespin-backend/internal/notify"
	"github.com/bottlespin/bottlespin-backend/internal/scans"
	"github.com/bottlespin/bottlespin-backend/internal/stats"
	"github.com/bottlespin/bottlespin-backend/pkg/config"
	"github.com/bottlespin/bottlespin-backend/pkg/db"
	"github.com/bottlespin/bottlespin-backend/pkg/logger"
	"github.com/bottlespin/bottlespin-backend/pkg/metrics"
	"github.com/bottlespin/bottlespin-backend/pkg/migrate"
	"github.com/bottlespin/bottlespin-backend/pkg/redis"
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

	registry := prometheus.NewRegistry()
	scanMetrics := metrics.NewScanMetrics(registry)

	ledgerRepo := ledger.NewRepository(dbClient.DB())
	statsRepo := stats.NewRepository(dbClient.DB())

	statsService, err := stats.NewService(statsRepo, ledgerRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stats service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledgerRepo, dbClient, statsService)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	dispatcher, err := notify.NewRedisDispatcher(redisClient, cfg.Notify, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}

	scanService, err := scans.NewService(scans.NewRepository(dbClient.DB()), dbClient, ledgerService, dispatcher, logg, scanMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create scans service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, registry, scanService, ledgerService, statsService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
