package grants

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tilldesk/tilldesk-backend/internal/access"
	"github.com/tilldesk/tilldesk-backend/pkg/db/models"
	pkgerrors "github.com/tilldesk/tilldesk-backend/pkg/errors"
)

type grantsRepository interface {
	CreateGrant(ctx context.Context, input CreateGrantInput) (*models.UserGrant, error)
	DeactivateGrant(ctx context.Context, grantID uuid.UUID) (*models.UserGrant, error)
	GetGrant(ctx context.Context, grantID uuid.UUID) (*models.UserGrant, error)
	ListUserGrants(ctx context.Context, userID uuid.UUID) ([]models.UserGrant, error)
	ListScopeGrants(ctx context.Context, ref access.ScopeRef) ([]models.UserGrant, error)
	ScopeExists(ctx context.Context, ref access.ScopeRef) (bool, error)
}

type usersRepository interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type grantInvalidator interface {
	InvalidateGrant(ctx context.Context, userID uuid.UUID, ref access.ScopeRef)
}

// Service exposes grant management. Whether the caller is allowed to
// manage grants at the target scope is decided by the route gate before
// the service runs.
type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, input CreateGrantInput) (*GrantDTO, error)
	Revoke(ctx context.Context, grantID uuid.UUID) error
	RevokeInScope(ctx context.Context, ref access.ScopeRef, grantID uuid.UUID) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]GrantDTO, error)
	ListForScope(ctx context.Context, ref access.ScopeRef) ([]GrantDTO, error)
}

type service struct {
	repo  grantsRepository
	users usersRepository
	inval grantInvalidator
}

// NewService builds a grant service with the provided dependencies.
func NewService(repo grantsRepository, users usersRepository, inval grantInvalidator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("grants repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if inval == nil {
		return nil, fmt.Errorf("grant invalidator required")
	}
	return &service{repo: repo, users: users, inval: inval}, nil
}

// Create assigns a role grant, replacing any active grant the user
// already holds at the scope.
func (s *service) Create(ctx context.Context, actorID uuid.UUID, input CreateGrantInput) (*GrantDTO, error) {
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if !input.Scope.IsValid() || input.ScopeID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid scope")
	}
	if input.ExpiresAt != nil && !input.ExpiresAt.After(time.Now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiry must be in the future")
	}

	ref := access.ScopeRef{Scope: input.Scope, ID: input.ScopeID}
	exists, err := s.repo.ScopeExists(ctx, ref)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "scope lookup failed")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "scope not found")
	}

	exists, err = s.users.Exists(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "user lookup failed")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	if actorID != uuid.Nil {
		input.GrantedByUserID = &actorID
	}
	grant, err := s.repo.CreateGrant(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create grant")
	}

	s.inval.InvalidateGrant(ctx, grant.UserID, ref)
	dto := grantToDTO(grant)
	return &dto, nil
}

// Revoke deactivates a grant. Revoking an already revoked grant reports
// not found.
func (s *service) Revoke(ctx context.Context, grantID uuid.UUID) error {
	grant, err := s.repo.DeactivateGrant(ctx, grantID)
	if err != nil {
		return err
	}
	s.inval.InvalidateGrant(ctx, grant.UserID, access.ScopeRef{Scope: grant.Scope, ID: grant.ScopeID})
	return nil
}

// RevokeInScope revokes a grant only when it belongs to the given
// scope, so a scope admin cannot reach grants outside their gate.
func (s *service) RevokeInScope(ctx context.Context, ref access.ScopeRef, grantID uuid.UUID) error {
	grant, err := s.repo.GetGrant(ctx, grantID)
	if err != nil {
		return err
	}
	if grant == nil || grant.Scope != ref.Scope || grant.ScopeID != ref.ID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "grant not found")
	}
	return s.Revoke(ctx, grantID)
}

// ListForUser returns the user's active grants.
func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]GrantDTO, error) {
	rows, err := s.repo.ListUserGrants(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list grants")
	}
	return grantsToDTO(rows), nil
}

// ListForScope returns the active grants held at one scope.
func (s *service) ListForScope(ctx context.Context, ref access.ScopeRef) ([]GrantDTO, error) {
	if !ref.Scope.IsValid() || ref.ID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid scope")
	}
	rows, err := s.repo.ListScopeGrants(ctx, ref)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list grants")
	}
	return grantsToDTO(rows), nil
}
