package grants

import (
	"time"

	"github.com/google/uuid"

	"github.com/tilldesk/tilldesk-backend/pkg/db/models"
	"github.com/tilldesk/tilldesk-backend/pkg/enums"
)

// CreateGrantInput carries everything needed to assign a role at a scope.
type CreateGrantInput struct {
	UserID          uuid.UUID
	Scope           enums.Scope
	ScopeID         int64
	Role            enums.Role
	GrantedByUserID *uuid.UUID
	ExpiresAt       *time.Time
}

// GrantDTO is the API shape of a grant row.
type GrantDTO struct {
	ID              uuid.UUID   `json:"id"`
	UserID          uuid.UUID   `json:"user_id"`
	Scope           enums.Scope `json:"scope"`
	ScopeID         int64       `json:"scope_id"`
	Role            enums.Role  `json:"role"`
	IsActive        bool        `json:"is_active"`
	GrantedByUserID *uuid.UUID  `json:"granted_by_user_id,omitempty"`
	ExpiresAt       *time.Time  `json:"expires_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

func grantToDTO(g *models.UserGrant) GrantDTO {
	return GrantDTO{
		ID:              g.ID,
		UserID:          g.UserID,
		Scope:           g.Scope,
		ScopeID:         g.ScopeID,
		Role:            g.Role,
		IsActive:        g.IsActive,
		GrantedByUserID: g.GrantedByUserID,
		ExpiresAt:       g.ExpiresAt,
		CreatedAt:       g.CreatedAt,
	}
}

func grantsToDTO(rows []models.UserGrant) []GrantDTO {
	out := make([]GrantDTO, 0, len(rows))
	for i := range rows {
		out = append(out, grantToDTO(&rows[i]))
	}
	return out
}
