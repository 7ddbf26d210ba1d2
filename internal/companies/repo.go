package companies

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tilldesk/tilldesk-backend/pkg/db/models"
)

// Repository exposes company persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new company.
func (r *Repository) Create(ctx context.Context, company *models.Company) error {
	return r.db.WithContext(ctx).Create(company).Error
}

// FindByID loads a company by id.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Company, error) {
	var company models.Company
	if err := r.db.WithContext(ctx).First(&company, id).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

// Update persists changed fields of the company.
func (r *Repository) Update(ctx context.Context, company *models.Company) error {
	return r.db.WithContext(ctx).Save(company).Error
}

// Deactivate turns the company off without deleting it. Resolution at a
// deactivated company and everything under it keeps working; listings
// hide it.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Company{}).
		Where("id = ?", id).
		UpdateColumn("is_active", false).Error
}

// ListForUser returns active companies where the user holds an active
// company-scope grant, plus those owned by teams the user leads.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Company, error) {
	var rows []models.Company
	err := r.db.WithContext(ctx).
		Distinct("companies.*").
		Joins(`LEFT JOIN user_grants ON user_grants.scope = 'company'
			AND user_grants.scope_id = companies.id
			AND user_grants.user_id = ?
			AND user_grants.is_active`, userID).
		Joins(`LEFT JOIN team_members ON team_members.team_id = companies.owning_team_id
			AND team_members.user_id = ?
			AND team_members.role = 'leader'
			AND team_members.is_active`, userID).
		Where("companies.is_active").
		Where("user_grants.id IS NOT NULL OR team_members.id IS NOT NULL").
		Order("companies.name").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
