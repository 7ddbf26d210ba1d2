package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tilldesk/tilldesk-backend/internal/teams"
	"github.com/tilldesk/tilldesk-backend/pkg/config"
	"github.com/tilldesk/tilldesk-backend/pkg/db"
	"github.com/tilldesk/tilldesk-backend/pkg/logger"
	"github.com/tilldesk/tilldesk-backend/pkg/migrate"
	"github.com/tilldesk/tilldesk-backend/pkg/redis"
)

const (
	lockKey      = "td:maintenance:lock:invitations"
	sweepEvery   = 15 * time.Minute
	lockDuration = 5 * time.Minute
)

// The maintenance worker sweeps overdue pending invitations into the
// expired state so stale tokens stop being redeemable. A redis lock
// keeps concurrent instances from double-sweeping.
func main() {
	logg := logger.New(logger.Options{ServiceName: "maintenance"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "maintenance",
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

	teamsRepo := teams.NewRepository(dbClient.DB())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg.Info(logg.WithField(ctx, "interval", sweepEvery.String()), "starting maintenance worker")

	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()

	sweep(ctx, logg, redisClient, teamsRepo)
	for {
		select {
		case <-ctx.Done():
			logg.Info(context.Background(), "maintenance worker stopping")
			return
		case <-ticker.C:
			sweep(ctx, logg, redisClient, teamsRepo)
		}
	}
}

func sweep(ctx context.Context, logg *logger.Logger, redisClient *redis.Client, repo *teams.Repository) {
	acquired, err := redisClient.SetNX(ctx, lockKey, "1", lockDuration)
	if err != nil {
		logg.Error(ctx, "maintenance lock unavailable", err)
		return
	}
	if !acquired {
		return
	}

	expired, err := repo.ExpireStaleInvitations(ctx, time.Now())
	if err != nil {
		logg.Error(ctx, "invitation sweep failed", err)
		return
	}
	if expired > 0 {
		logg.Info(logg.WithField(ctx, "expired", expired), "invitation sweep complete")
	}
}
