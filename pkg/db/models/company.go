package models

import (
	"time"

	"github.com/google/uuid"
)

// Company is the top-level tenant. Companies own brands, brands own shops.
// OwningTeamID records the internal team that stood the company up; that
// team's leaders administer the company without an explicit grant row.
type Company struct {
	ID           int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Name         string     `gorm:"column:name;not null"`
	LegalName    string     `gorm:"column:legal_name"`
	TaxNumber    string     `gorm:"column:tax_number"`
	OwningTeamID *uuid.UUID `gorm:"column:owning_team_id;type:uuid"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
