package models

import "time"

// Brand is a named sub-organization of a company. Every brand belongs to
// exactly one company.
type Brand struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	CompanyID int64     `gorm:"column:company_id;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
