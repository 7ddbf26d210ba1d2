package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/tilldesk/tilldesk-backend/api/responses"
	pkgAuth "github.com/tilldesk/tilldesk-backend/pkg/auth"
	"github.com/tilldesk/tilldesk-backend/pkg/auth/session"
	"github.com/tilldesk/tilldesk-backend/pkg/config"
	pkgerrors "github.com/tilldesk/tilldesk-backend/pkg/errors"
	"github.com/tilldesk/tilldesk-backend/pkg/logger"
)

// bearerToken strips an optional Bearer prefix; an empty result means
// no usable credentials were presented.
func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[len("bearer "):])
	}
	return raw
}

// Auth authenticates the request: the JWT must verify and its jti must
// still have a live session. A session-store outage is a 503, not a
// denial, so redis trouble never reads as "logged out" to the client.
// On success the context carries the user id, access id, and the active
// company claim for downstream handlers.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.ID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			}

			if verifier != nil {
				live, err := verifier.HasSession(r.Context(), claims.ID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !live {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
			ctx = context.WithValue(ctx, ctxAccessID, claims.ID)

			fields := map[string]any{"user_id": claims.UserID.String()}
			if claims.ActiveCompanyID != nil {
				ctx = context.WithValue(ctx, ctxActiveCompanyID, *claims.ActiveCompanyID)
				fields["active_company_id"] = *claims.ActiveCompanyID
			}
			if logg != nil {
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
