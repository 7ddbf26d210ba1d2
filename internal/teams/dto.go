package teams

import (
	"time"

	"github.com/google/uuid"

	"github.com/tilldesk/tilldesk-backend/pkg/db/models"
	"github.com/tilldesk/tilldesk-backend/pkg/enums"
)

// CreateTeamInput names the team; the creator becomes its first leader.
type CreateTeamInput struct {
	Name string `json:"name" validate:"required,min=2,max=120"`
}

// AddMemberInput adds a user to a team.
type AddMemberInput struct {
	UserID uuid.UUID      `json:"user_id" validate:"required"`
	Role   enums.TeamRole `json:"role" validate:"required"`
}

// InviteInput creates a role invitation for an email address.
type InviteInput struct {
	Email   string      `json:"email" validate:"required,email"`
	Scope   enums.Scope `json:"scope" validate:"required"`
	ScopeID int64       `json:"scope_id" validate:"required,gt=0"`
	Role    enums.Role  `json:"role" validate:"required"`
}

// TeamDTO is the transport shape of a team.
type TeamDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// MemberDTO is the transport shape of a team member.
type MemberDTO struct {
	UserID    uuid.UUID      `json:"user_id"`
	Role      enums.TeamRole `json:"role"`
	CreatedAt time.Time      `json:"created_at"`
}

// InvitationDTO is the transport shape of an invitation. The token is
// only surfaced at creation time.
type InvitationDTO struct {
	ID        uuid.UUID              `json:"id"`
	Token     string                 `json:"token,omitempty"`
	Email     string                 `json:"email"`
	Scope     enums.Scope            `json:"scope"`
	ScopeID   int64                  `json:"scope_id"`
	Role      enums.Role             `json:"role"`
	Status    enums.InvitationStatus `json:"status"`
	ExpiresAt time.Time              `json:"expires_at"`
}

func teamToDTO(t *models.Team) *TeamDTO {
	if t == nil {
		return nil
	}
	return &TeamDTO{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt}
}

func membersToDTO(rows []models.TeamMember) []MemberDTO {
	out := make([]MemberDTO, 0, len(rows))
	for _, m := range rows {
		out = append(out, MemberDTO{UserID: m.UserID, Role: m.Role, CreatedAt: m.CreatedAt})
	}
	return out
}

func invitationToDTO(inv *models.TeamInvitation, includeToken bool) *InvitationDTO {
	if inv == nil {
		return nil
	}
	dto := &InvitationDTO{
		ID:        inv.ID,
		Email:     inv.Email,
		Scope:     inv.Scope,
		ScopeID:   inv.ScopeID,
		Role:      inv.Role,
		Status:    inv.Status,
		ExpiresAt: inv.ExpiresAt,
	}
	if includeToken {
		dto.Token = inv.Token
	}
	return dto
}
