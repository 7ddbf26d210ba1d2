package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tilldesk/tilldesk-backend/api/middleware"
	"github.com/tilldesk/tilldesk-backend/api/responses"
	"github.com/tilldesk/tilldesk-backend/api/validators"
	"github.com/tilldesk/tilldesk-backend/internal/teams"
	"github.com/tilldesk/tilldesk-backend/pkg/enums"
	pkgerrors "github.com/tilldesk/tilldesk-backend/pkg/errors"
	"github.com/tilldesk/tilldesk-backend/pkg/logger"
)

func requireUser(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return uuid.Nil, false
	}
	return userID, true
}

// TeamCreate opens a new team with the caller as its first leader.
func TeamCreate(svc teams.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "team service unavailable"))
			return
		}

		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		var body teams.CreateTeamInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		team, err := svc.Create(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, team)
	}
}

// TeamGet returns team details to the team's own members.
func TeamGet(svc teams.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "team service unavailable"))
			return
		}

		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		teamID, err := validators.ParsePathUUID(r, "teamID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		team, err := svc.Get(r.Context(), userID, teamID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, team)
	}
}

// TeamMembersList lists the roster to the team's own members.
func TeamMembersList(svc teams.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "team service unavailable"))
			return
		}

		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		teamID, err := validators.ParsePathUUID(r, "teamID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		members, err := svc.ListMembers(r.Context(), userID, teamID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, members)
	}
}

// TeamMemberAdd adds a user to the team; only leaders may do this.
func TeamMemberAdd(svc teams.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "team service unavailable"))
			return
		}

		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		teamID, err := validators.ParsePathUUID(r, "teamID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body teams.AddMemberInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		member, err := svc.AddMember(r.Context(), userID, teamID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, member)
	}
}

// TeamMemberRemove deactivates a team membership.
func TeamMemberRemove(svc teams.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "team service unavailable"))
			return
		}

		actorID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		teamID, err := validators.ParsePathUUID(r, "teamID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		memberID, err := validators.ParsePathUUID(r, "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveMember(r.Context(), actorID, teamID, memberID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

type invitationCreateRequest struct {
	Email string     `json:"email" validate:"required,email"`
	Role  enums.Role `json:"role" validate:"required"`
}

// InvitationCreate issues a role invitation for an email address at the
// gated scope. The scope identity comes from the route, not the body.
func InvitationCreate(svc teams.Service, scope enums.Scope, param string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "team service unavailable"))
			return
		}

		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		scopeID, err := validators.ParsePathID(r, param)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body invitationCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invitation, err := svc.Invite(r.Context(), userID, teams.InviteInput{
			Email:   body.Email,
			Scope:   scope,
			ScopeID: scopeID,
			Role:    body.Role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, invitation)
	}
}

type invitationTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// InvitationAccept redeems an invitation token into a live grant.
func InvitationAccept(svc teams.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "team service unavailable"))
			return
		}

		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		var body invitationTokenRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		grant, err := svc.AcceptInvitation(r.Context(), userID, body.Token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, grant)
	}
}

// InvitationRevoke cancels a pending invitation.
func InvitationRevoke(svc teams.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "team service unavailable"))
			return
		}

		var body invitationTokenRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RevokeInvitation(r.Context(), body.Token); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "revoked"})
	}
}
