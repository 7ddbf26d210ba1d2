package models

import (
	"time"

	"github.com/google/uuid"
)

// Team groups internal users. A company records the team that created it
// via Company.OwningTeamID.
type Team struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
