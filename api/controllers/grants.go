package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tilldesk/tilldesk-backend/api/middleware"
	"github.com/tilldesk/tilldesk-backend/api/responses"
	"github.com/tilldesk/tilldesk-backend/api/validators"
	"github.com/tilldesk/tilldesk-backend/internal/access"
	"github.com/tilldesk/tilldesk-backend/internal/grants"
	"github.com/tilldesk/tilldesk-backend/pkg/enums"
	pkgerrors "github.com/tilldesk/tilldesk-backend/pkg/errors"
	"github.com/tilldesk/tilldesk-backend/pkg/logger"
)

type grantCreateRequest struct {
	UserID    uuid.UUID  `json:"user_id" validate:"required"`
	Role      enums.Role `json:"role" validate:"required"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// GrantCreate assigns a role at the gated scope. The scope identity
// comes from the route, never from the body.
func GrantCreate(svc grants.Service, scope enums.Scope, param string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "grant service unavailable"))
			return
		}

		scopeID, err := validators.ParsePathID(r, param)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body grantCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID := middleware.UserIDFromContext(r.Context())
		grant, err := svc.Create(r.Context(), actorID, grants.CreateGrantInput{
			UserID:    body.UserID,
			Scope:     scope,
			ScopeID:   scopeID,
			Role:      body.Role,
			ExpiresAt: body.ExpiresAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, grant)
	}
}

// GrantList lists the active grants held at the gated scope.
func GrantList(svc grants.Service, scope enums.Scope, param string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "grant service unavailable"))
			return
		}

		scopeID, err := validators.ParsePathID(r, param)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForScope(r.Context(), access.ScopeRef{Scope: scope, ID: scopeID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// GrantRevoke revokes a grant belonging to the gated scope.
func GrantRevoke(svc grants.Service, scope enums.Scope, param string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "grant service unavailable"))
			return
		}

		scopeID, err := validators.ParsePathID(r, param)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		grantID, err := validators.ParsePathUUID(r, "grantID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RevokeInScope(r.Context(), access.ScopeRef{Scope: scope, ID: scopeID}, grantID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "revoked"})
	}
}

// MyGrants returns the caller's own active grants.
func MyGrants(svc grants.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "grant service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		list, err := svc.ListForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// EffectiveAccess reports how the caller's role at the gated scope was
// resolved: the role, whether it is direct or inherited, and the origin
// scope. The route gate performs the resolution.
func EffectiveAccess(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		effective := middleware.EffectiveAccessFromContext(r.Context())
		if effective == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "effective access missing from context"))
			return
		}
		responses.WriteSuccess(w, effective)
	}
}
