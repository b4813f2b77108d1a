package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/praxisworks/accounts-backend/api/controllers"
	"github.com/praxisworks/accounts-backend/api/routes"
	"github.com/praxisworks/accounts-backend/internal/identity"
	"github.com/praxisworks/accounts-backend/internal/provisioning"
	"github.com/praxisworks/accounts-backend/internal/userroles"
	"github.com/praxisworks/accounts-backend/internal/users"
	"github.com/praxisworks/accounts-backend/pkg/config"
	"github.com/praxisworks/accounts-backend/pkg/db"
	"github.com/praxisworks/accounts-backend/pkg/logger"
	"github.com/praxisworks/accounts-backend/pkg/metrics"
	"github.com/praxisworks/accounts-backend/pkg/migrate"
	"github.com/praxisworks/accounts-backend/pkg/outbox"
	"github.com/praxisworks/accounts-backend/pkg/redis"
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

	verifier, err := identity.NewFromConfig(context.Background(), cfg.OIDC)
	if err != nil {
		logg.Error(context.Background(), "failed to create token verifier", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	guardMetrics := metrics.NewGuardMetrics(registry)

	usersRepo := users.NewRepository(dbClient.DB())
	rolesRepo := userroles.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	usersService, err := users.NewService(usersRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	rolesService, err := userroles.NewService(rolesRepo, usersRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create roles service", err)
		os.Exit(1)
	}

	provisioner, err := provisioning.NewService(usersRepo, rolesRepo, dbClient, outboxService, guardMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create provisioning service", err)
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
		Handler: routes.NewRouter(routes.RouterParams{
			Config:       cfg,
			Logger:       logg,
			Verifier:     verifier,
			Provisioner:  provisioner,
			UsersService: usersService,
			RolesService: rolesService,
			Redis:        redisClient,
			Metrics:      guardMetrics,
			Gatherer:     registry,
			ReadyChecks: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
