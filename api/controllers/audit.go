package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tilldesk/tilldesk-backend/api/middleware"
	"github.com/tilldesk/tilldesk-backend/api/responses"
	"github.com/tilldesk/tilldesk-backend/api/validators"
	"github.com/tilldesk/tilldesk-backend/internal/access"
	"github.com/tilldesk/tilldesk-backend/internal/audit"
	"github.com/tilldesk/tilldesk-backend/pkg/enums"
	pkgerrors "github.com/tilldesk/tilldesk-backend/pkg/errors"
	"github.com/tilldesk/tilldesk-backend/pkg/logger"
	"github.com/tilldesk/tilldesk-backend/pkg/pagination"
)

func auditParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: validators.ParseQueryString(r, "cursor", ""),
	}, nil
}

// AuditListForScope pages through the decision trail at the gated scope.
func AuditListForScope(svc audit.Service, scope enums.Scope, param string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		scopeID, err := validators.ParsePathID(r, param)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := auditParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListForScope(r.Context(), access.ScopeRef{Scope: scope, ID: scopeID}, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// AuditListForUser pages through the caller's own decision trail.
func AuditListForUser(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		params, err := auditParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListForUser(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}
