package models

import "time"

// Shop is a physical location under a brand. Every shop belongs to
// exactly one brand.
type Shop struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	BrandID   int64     `gorm:"column:brand_id;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	Address   string    `gorm:"column:address"`
	Phone     string    `gorm:"column:phone"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
