package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tilldesk/tilldesk-backend/pkg/enums"
)

// AuditEvent is one recorded access decision. Denials and granted modify
// operations are persisted with full provenance; the HTTP response stays
// opaque.
type AuditEvent struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Scope         enums.Scope           `gorm:"column:scope;type:text;not null"`
	ScopeID       int64                 `gorm:"column:scope_id;not null"`
	CompanyID     *int64                `gorm:"column:company_id;index"`
	RequiredRole  enums.Role            `gorm:"column:required_role;type:text;not null"`
	Outcome       enums.DecisionOutcome `gorm:"column:outcome;type:text;not null"`
	Modify        bool                  `gorm:"column:modify;not null;default:false"`
	EffectiveRole *enums.Role           `gorm:"column:effective_role;type:text"`
	Source        *enums.GrantSource    `gorm:"column:source;type:text"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime;index"`
}
