package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sarana-io/lending-backend/api/routes"
	"github.com/sarana-io/lending-backend/internal/auth"
	"github.com/sarana-io/lending-backend/internal/borrowing"
	"github.com/sarana-io/lending-backend/internal/catalog"
	"github.com/sarana-io/lending-backend/internal/finance"
	"github.com/sarana-io/lending-backend/internal/ledger"
	"github.com/sarana-io/lending-backend/internal/reports"
	"github.com/sarana-io/lending-backend/internal/users"
	"github.com/sarana-io/lending-backend/pkg/config"
	"github.com/sarana-io/lending-backend/pkg/db"
	"github.com/sarana-io/lending-backend/pkg/logger"
	"github.com/sarana-io/lending-backend/pkg/metrics"
	"github.com/sarana-io/lending-backend/pkg/migrate"
	"github.com/sarana-io/lending-backend/pkg/redis"
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
	engineMetrics := metrics.NewEngineMetrics(registry)

	conn := dbClient.DB()

	ledgerService, err := ledger.NewService(dbClient, ledger.NewRepository(conn), cfg.Engine.TxAttempts, engineMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	borrowService, err := borrowing.NewService(dbClient, borrowing.NewRepository(conn), cfg.Engine.TxAttempts, engineMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create borrowing service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(dbClient, catalog.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	financeService, err := finance.NewService(finance.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create finance service", err)
		os.Exit(1)
	}

	reportsService, err := reports.NewService(reports.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create reports service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Tx:             dbClient,
		UserRepo:       users.NewRepository(conn),
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
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
		Handler: routes.NewRouter(routes.Params{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Registry: registry,
			Auth:     authService,
			Ledger:   ledgerService,
			Catalog:  catalogService,
			Borrow:   borrowService,
			Finance:  financeService,
			Reports:  reportsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
