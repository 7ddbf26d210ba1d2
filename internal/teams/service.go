package teams

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tilldesk/tilldesk-backend/internal/grants"
	"github.com/tilldesk/tilldesk-backend/pkg/db/models"
	"github.com/tilldesk/tilldesk-backend/pkg/enums"
	pkgerrors "github.com/tilldesk/tilldesk-backend/pkg/errors"
)

const invitationTTL = 7 * 24 * time.Hour

type teamsRepository interface {
	CreateTeam(ctx context.Context, name string, leaderID uuid.UUID) (*models.Team, error)
	FindTeam(ctx context.Context, id uuid.UUID) (*models.Team, error)
	GetMember(ctx context.Context, teamID, userID uuid.UUID) (*models.TeamMember, error)
	AddMember(ctx context.Context, teamID, userID uuid.UUID, role enums.TeamRole) (*models.TeamMember, error)
	UpdateMemberRole(ctx context.Context, teamID, userID uuid.UUID, role enums.TeamRole) error
	RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error
	ListMembers(ctx context.Context, teamID uuid.UUID) ([]models.TeamMember, error)
	CountLeaders(ctx context.Context, teamID uuid.UUID) (int64, error)
	ListOwnedCompanyIDs(ctx context.Context, teamID uuid.UUID) ([]int64, error)
	CreateInvitation(ctx context.Context, invitation *models.TeamInvitation) error
	FindInvitationByToken(ctx context.Context, token string) (*models.TeamInvitation, error)
	UpdateInvitationStatus(ctx context.Context, id uuid.UUID, status enums.InvitationStatus) error
}

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type grantsService interface {
	Create(ctx context.Context, actorID uuid.UUID, input grants.CreateGrantInput) (*grants.GrantDTO, error)
}

type ownershipInvalidator interface {
	InvalidateTeamOwnership(ctx context.Context, userID uuid.UUID, companyID int64)
}

// Service exposes team management and the invitation flow that turns an
// emailed token into a role grant.
type Service interface {
	Create(ctx context.Context, creatorID uuid.UUID, input CreateTeamInput) (*TeamDTO, error)
	Get(ctx context.Context, actorID, teamID uuid.UUID) (*TeamDTO, error)
	ListMembers(ctx context.Context, actorID, teamID uuid.UUID) ([]MemberDTO, error)
	AddMember(ctx context.Context, actorID, teamID uuid.UUID, input AddMemberInput) (*MemberDTO, error)
	RemoveMember(ctx context.Context, actorID, teamID, userID uuid.UUID) error
	Invite(ctx context.Context, actorID uuid.UUID, input InviteInput) (*InvitationDTO, error)
	AcceptInvitation(ctx context.Context, userID uuid.UUID, token string) (*grants.GrantDTO, error)
	RevokeInvitation(ctx context.Context, token string) error
}

type service struct {
	repo   teamsRepository
	users  userLookup
	grants grantsService
	inval  ownershipInvalidator
}

// ServiceParams bundles the dependencies for a team service.
type ServiceParams struct {
	Repo        teamsRepository
	Users       userLookup
	Grants      grantsService
	Invalidator ownershipInvalidator
}

// NewService builds the team service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("teams repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Grants == nil {
		return nil, fmt.Errorf("grants service required")
	}
	if params.Invalidator == nil {
		return nil, fmt.Errorf("ownership invalidator required")
	}
	return &service{
		repo:   params.Repo,
		users:  params.Users,
		grants: params.Grants,
		inval:  params.Invalidator,
	}, nil
}

func (s *service) Create(ctx context.Context, creatorID uuid.UUID, input CreateTeamInput) (*TeamDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "team name is required")
	}
	if creatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "creator is required")
	}
	team, err := s.repo.CreateTeam(ctx, name, creatorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create team")
	}
	return teamToDTO(team), nil
}

// Get returns the team to its own members. Outsiders holding the UUID
// get the same opaque denial as any other access refusal.
func (s *service) Get(ctx context.Context, actorID, teamID uuid.UUID) (*TeamDTO, error) {
	if err := s.requireMember(ctx, actorID, teamID); err != nil {
		return nil, err
	}
	team, err := s.repo.FindTeam(ctx, teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "team not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load team")
	}
	return teamToDTO(team), nil
}

// ListMembers exposes the roster to team members only.
func (s *service) ListMembers(ctx context.Context, actorID, teamID uuid.UUID) ([]MemberDTO, error) {
	if err := s.requireMember(ctx, actorID, teamID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListMembers(ctx, teamID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list members")
	}
	return membersToDTO(rows), nil
}

// AddMember puts a user on the team. Only active leaders can change the
// roster; a leader role here flips implicit company ownership, so the
// cached ownership checks are invalidated for every company the team owns.
func (s *service) AddMember(ctx context.Context, actorID, teamID uuid.UUID, input AddMemberInput) (*MemberDTO, error) {
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid team role")
	}
	if err := s.requireLeader(ctx, actorID, teamID); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "user lookup failed")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user is deactivated")
	}

	existing, err := s.repo.GetMember(ctx, teamID, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "membership lookup failed")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "user is already on the team")
	}

	member, err := s.repo.AddMember(ctx, teamID, input.UserID, input.Role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to add member")
	}

	if input.Role == enums.TeamRoleLeader {
		s.invalidateOwnership(ctx, teamID, input.UserID)
	}
	return &MemberDTO{UserID: member.UserID, Role: member.Role, CreatedAt: member.CreatedAt}, nil
}

// RemoveMember takes a user off the team. The last leader cannot leave:
// a leaderless team would strand every company it owns.
func (s *service) RemoveMember(ctx context.Context, actorID, teamID, userID uuid.UUID) error {
	if err := s.requireLeader(ctx, actorID, teamID); err != nil {
		return err
	}

	member, err := s.repo.GetMember(ctx, teamID, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "membership lookup failed")
	}
	if member == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user is not on the team")
	}

	if member.Role == enums.TeamRoleLeader {
		leaders, err := s.repo.CountLeaders(ctx, teamID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "leader count failed")
		}
		if leaders <= 1 {
			return pkgerrors.New(pkgerrors.CodeConflict, "cannot remove the last leader")
		}
	}

	if err := s.repo.RemoveMember(ctx, teamID, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to remove member")
	}
	if member.Role == enums.TeamRoleLeader {
		s.invalidateOwnership(ctx, teamID, userID)
	}
	return nil
}

// Invite issues a pending, expiring token that carries a scope and role.
func (s *service) Invite(ctx context.Context, actorID uuid.UUID, input InviteInput) (*InvitationDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if !input.Scope.IsValid() || input.ScopeID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid scope")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	token, err := newInvitationToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate token")
	}

	invitation := &models.TeamInvitation{
		Token:           token,
		Email:           email,
		Scope:           input.Scope,
		ScopeID:         input.ScopeID,
		Role:            input.Role,
		Status:          enums.InvitationStatusPending,
		InvitedByUserID: actorID,
		ExpiresAt:       time.Now().UTC().Add(invitationTTL),
	}
	if err := s.repo.CreateInvitation(ctx, invitation); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create invitation")
	}
	return invitationToDTO(invitation, true), nil
}

// AcceptInvitation redeems a pending token for the grant it carries. The
// accepting account's email must match the invited address.
func (s *service) AcceptInvitation(ctx context.Context, userID uuid.UUID, token string) (*grants.GrantDTO, error) {
	invitation, err := s.repo.FindInvitationByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invitation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "invitation lookup failed")
	}

	if invitation.Status != enums.InvitationStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "invitation is no longer open")
	}
	if !invitation.ExpiresAt.After(time.Now().UTC()) {
		_ = s.repo.UpdateInvitationStatus(ctx, invitation.ID, enums.InvitationStatusExpired)
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "invitation has expired")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "user lookup failed")
	}
	if !strings.EqualFold(user.Email, invitation.Email) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "invitation was issued to a different address")
	}

	grant, err := s.grants.Create(ctx, invitation.InvitedByUserID, grants.CreateGrantInput{
		UserID:  userID,
		Scope:   invitation.Scope,
		ScopeID: invitation.ScopeID,
		Role:    invitation.Role,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateInvitationStatus(ctx, invitation.ID, enums.InvitationStatusAccepted); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to close invitation")
	}
	return grant, nil
}

func (s *service) RevokeInvitation(ctx context.Context, token string) error {
	invitation, err := s.repo.FindInvitationByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "invitation not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "invitation lookup failed")
	}
	if invitation.Status != enums.InvitationStatusPending {
		return pkgerrors.New(pkgerrors.CodeConflict, "invitation is no longer open")
	}
	if err := s.repo.UpdateInvitationStatus(ctx, invitation.ID, enums.InvitationStatusRevoked); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to revoke invitation")
	}
	return nil
}

func (s *service) requireMember(ctx context.Context, actorID, teamID uuid.UUID) error {
	member, err := s.repo.GetMember(ctx, teamID, actorID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "membership lookup failed")
	}
	if member == nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "team membership required")
	}
	return nil
}

func (s *service) requireLeader(ctx context.Context, actorID, teamID uuid.UUID) error {
	member, err := s.repo.GetMember(ctx, teamID, actorID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "membership lookup failed")
	}
	if member == nil || member.Role != enums.TeamRoleLeader {
		return pkgerrors.New(pkgerrors.CodeForbidden, "leader role required")
	}
	return nil
}

func (s *service) invalidateOwnership(ctx context.Context, teamID, userID uuid.UUID) {
	companyIDs, err := s.repo.ListOwnedCompanyIDs(ctx, teamID)
	if err != nil {
		return
	}
	for _, companyID := range companyIDs {
		s.inval.InvalidateTeamOwnership(ctx, userID, companyID)
	}
}

func newInvitationToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
