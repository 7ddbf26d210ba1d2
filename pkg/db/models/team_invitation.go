package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tilldesk/tilldesk-backend/pkg/enums"
)

// TeamInvitation is the assignment flow that produces a direct grant.
// Accepting a pending, unexpired invitation creates the UserGrant row for
// the invited email's account.
type TeamInvitation struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Token           string                 `gorm:"column:token;uniqueIndex;not null"`
	Email           string                 `gorm:"column:email;not null;index"`
	Scope           enums.Scope            `gorm:"column:scope;type:text;not null"`
	ScopeID         int64                  `gorm:"column:scope_id;not null"`
	Role            enums.Role             `gorm:"column:role;type:text;not null"`
	Status          enums.InvitationStatus `gorm:"column:status;type:text;not null"`
	InvitedByUserID uuid.UUID              `gorm:"column:invited_by_user_id;type:uuid;not null"`
	ExpiresAt       time.Time              `gorm:"column:expires_at;not null"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
