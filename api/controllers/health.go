package controllers

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/tilldesk/tilldesk-backend/api/responses"
	"github.com/tilldesk/tilldesk-backend/pkg/config"
	"github.com/tilldesk/tilldesk-backend/pkg/db"
	pkgerrors "github.com/tilldesk/tilldesk-backend/pkg/errors"
	"github.com/tilldesk/tilldesk-backend/pkg/logger"
	"github.com/tilldesk/tilldesk-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-TillDesk-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness by pinging the backing stores in
// parallel. A nil pinger is skipped so partial wiring stays probeable.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-TillDesk-Env", cfg.App.Env)

		g, ctx := errgroup.WithContext(r.Context())
		if dbP != nil {
			g.Go(func() error {
				if err := dbP.Ping(ctx); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable")
				}
				return nil
			})
		}
		if redisP != nil {
			g.Go(func() error {
				if err := redisP.Ping(ctx); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable")
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
