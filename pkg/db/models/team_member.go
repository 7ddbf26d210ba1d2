package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tilldesk/tilldesk-backend/pkg/enums"
)

// TeamMember links a user to a team. A leader on a company's owning team
// resolves to an implicit owner grant on that company.
type TeamMember struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TeamID    uuid.UUID      `gorm:"column:team_id;type:uuid;not null;index"`
	UserID    uuid.UUID      `gorm:"column:user_id;type:uuid;not null;index"`
	Role      enums.TeamRole `gorm:"column:role;type:text;not null"`
	IsActive  bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
