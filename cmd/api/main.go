package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tilldesk/tilldesk-backend/api/middleware"
	"github.com/tilldesk/tilldesk-backend/api/routes"
	"github.com/tilldesk/tilldesk-backend/internal/access"
	"github.com/tilldesk/tilldesk-backend/internal/audit"
	"github.com/tilldesk/tilldesk-backend/internal/auth"
	"github.com/tilldesk/tilldesk-backend/internal/brands"
	"github.com/tilldesk/tilldesk-backend/internal/companies"
	"github.com/tilldesk/tilldesk-backend/internal/grants"
	"github.com/tilldesk/tilldesk-backend/internal/shops"
	"github.com/tilldesk/tilldesk-backend/internal/teams"
	"github.com/tilldesk/tilldesk-backend/internal/users"
	"github.com/tilldesk/tilldesk-backend/pkg/auth/session"
	"github.com/tilldesk/tilldesk-backend/pkg/config"
	"github.com/tilldesk/tilldesk-backend/pkg/db"
	"github.com/tilldesk/tilldesk-backend/pkg/logger"
	"github.com/tilldesk/tilldesk-backend/pkg/metrics"
	"github.com/tilldesk/tilldesk-backend/pkg/migrate"
	"github.com/tilldesk/tilldesk-backend/pkg/redis"
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	usersRepo := users.NewRepository(gormDB)
	grantsRepo := grants.NewRepository(gormDB)
	teamsRepo := teams.NewRepository(gormDB)
	companiesRepo := companies.NewRepository(gormDB)
	brandsRepo := brands.NewRepository(gormDB)
	shopsRepo := shops.NewRepository(gormDB)
	auditRepo := audit.NewRepository(gormDB)

	membershipStore := grants.NewCachedStore(grantsRepo, redisClient, cfg.AccessCache.TTL, cfg.AccessCache.Enabled, logg)

	resolver, err := access.NewResolver(membershipStore)
	if err != nil {
		logg.Error(context.Background(), "failed to create access resolver", err)
		os.Exit(1)
	}

	recorder, err := audit.NewRecorder(auditRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit recorder", err)
		os.Exit(1)
	}

	accessMetrics := metrics.NewAccessMetrics(prometheus.DefaultRegisterer)

	gate, err := middleware.NewScopeGate(resolver, recorder, accessMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create scope gate", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		GrantsRepo:     grantsRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	grantsService, err := grants.NewService(grantsRepo, usersRepo, membershipStore)
	if err != nil {
		logg.Error(context.Background(), "failed to create grants service", err)
		os.Exit(1)
	}

	companiesService, err := companies.NewService(companiesRepo, grantsService)
	if err != nil {
		logg.Error(context.Background(), "failed to create companies service", err)
		os.Exit(1)
	}

	brandsService, err := brands.NewService(brandsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create brands service", err)
		os.Exit(1)
	}

	shopsService, err := shops.NewService(shopsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create shops service", err)
		os.Exit(1)
	}

	teamsService, err := teams.NewService(teams.ServiceParams{
		Repo:        teamsRepo,
		Users:       usersRepo,
		Grants:      grantsService,
		Invalidator: membershipStore,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create teams service", err)
		os.Exit(1)
	}

	auditService, err := audit.NewService(auditRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
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
		Handler: routes.NewRouter(routes.Deps{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			Sessions:       sessionManager,
			Gate:           gate,
			AuthService:    authService,
			Companies:      companiesService,
			Brands:         brandsService,
			Shops:          shopsService,
			Teams:          teamsService,
			Grants:         grantsService,
			Audit:          auditService,
			MetricsHandler: promhttp.Handler(),
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
