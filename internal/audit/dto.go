package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/tilldesk/tilldesk-backend/pkg/db/models"
	"github.com/tilldesk/tilldesk-backend/pkg/enums"
)

// EventDTO is the API shape of one recorded access decision.
type EventDTO struct {
	ID            uuid.UUID             `json:"id"`
	UserID        uuid.UUID             `json:"user_id"`
	Scope         enums.Scope           `json:"scope"`
	ScopeID       int64                 `json:"scope_id"`
	CompanyID     *int64                `json:"company_id,omitempty"`
	RequiredRole  enums.Role            `json:"required_role"`
	Outcome       enums.DecisionOutcome `json:"outcome"`
	Modify        bool                  `json:"modify"`
	EffectiveRole *enums.Role           `json:"effective_role,omitempty"`
	Source        *enums.GrantSource    `json:"source,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

func eventToDTO(e *models.AuditEvent) EventDTO {
	return EventDTO{
		ID:            e.ID,
		UserID:        e.UserID,
		Scope:         e.Scope,
		ScopeID:       e.ScopeID,
		CompanyID:     e.CompanyID,
		RequiredRole:  e.RequiredRole,
		Outcome:       e.Outcome,
		Modify:        e.Modify,
		EffectiveRole: e.EffectiveRole,
		Source:        e.Source,
		CreatedAt:     e.CreatedAt,
	}
}

func eventsToDTO(rows []models.AuditEvent) []EventDTO {
	out := make([]EventDTO, 0, len(rows))
	for i := range rows {
		out = append(out, eventToDTO(&rows[i]))
	}
	return out
}
