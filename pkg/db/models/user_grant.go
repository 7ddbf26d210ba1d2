package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tilldesk/tilldesk-backend/pkg/enums"
)

// UserGrant is a direct role assignment at exactly one scope. Grants are
// deactivated, never deleted, so historical rows remain for audit. A
// partial unique index keeps at most one active grant per
// (user, scope, scope_id); inherited access is computed at read time and
// never stored.
type UserGrant struct {
	ID              uuid.UUID   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID   `gorm:"column:user_id;type:uuid;not null;index"`
	Scope           enums.Scope `gorm:"column:scope;type:text;not null"`
	ScopeID         int64       `gorm:"column:scope_id;not null"`
	Role            enums.Role  `gorm:"column:role;type:text;not null"`
	IsActive        bool        `gorm:"column:is_active;not null;default:true"`
	GrantedByUserID *uuid.UUID  `gorm:"column:granted_by_user_id;type:uuid"`
	ExpiresAt       *time.Time  `gorm:"column:expires_at"`
	DeactivatedAt   *time.Time  `gorm:"column:deactivated_at"`
	CreatedAt       time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}
