package brands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tilldesk/tilldesk-backend/pkg/db/models"
	pkgerrors "github.com/tilldesk/tilldesk-backend/pkg/errors"
)

// CreateBrandInput is the payload for adding a brand under a company.
type CreateBrandInput struct {
	Name string `json:"name" validate:"required,min=2,max=120"`
}

// UpdateBrandInput carries the editable brand fields.
type UpdateBrandInput struct {
	Name *string `json:"name" validate:"omitempty,min=2,max=120"`
}

// BrandDTO is the transport shape of a brand.
type BrandDTO struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func brandToDTO(b *models.Brand) *BrandDTO {
	if b == nil {
		return nil
	}
	return &BrandDTO{
		ID:        b.ID,
		CompanyID: b.CompanyID,
		Name:      b.Name,
		IsActive:  b.IsActive,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// Repository exposes brand persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new brand.
func (r *Repository) Create(ctx context.Context, brand *models.Brand) error {
	return r.db.WithContext(ctx).Create(brand).Error
}

// FindByID loads a brand by id.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Brand, error) {
	var brand models.Brand
	if err := r.db.WithContext(ctx).First(&brand, id).Error; err != nil {
		return nil, err
	}
	return &brand, nil
}

// Update persists changed fields of the brand.
func (r *Repository) Update(ctx context.Context, brand *models.Brand) error {
	return r.db.WithContext(ctx).Save(brand).Error
}

// Deactivate turns the brand off without deleting it.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Brand{}).
		Where("id = ?", id).
		UpdateColumn("is_active", false).Error
}

// ListByCompany returns the company's active brands.
func (r *Repository) ListByCompany(ctx context.Context, companyID int64) ([]models.Brand, error) {
	var rows []models.Brand
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND is_active", companyID).
		Order("name").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CompanyExists reports whether an active company with the id is on record.
func (r *Repository) CompanyExists(ctx context.Context, companyID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Company{}).
		Where("id = ? AND is_active", companyID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

type brandRepository interface {
	Create(ctx context.Context, brand *models.Brand) error
	FindByID(ctx context.Context, id int64) (*models.Brand, error)
	Update(ctx context.Context, brand *models.Brand) error
	Deactivate(ctx context.Context, id int64) error
	ListByCompany(ctx context.Context, companyID int64) ([]models.Brand, error)
	CompanyExists(ctx context.Context, companyID int64) (bool, error)
}

// Service exposes brand operations.
type Service interface {
	Create(ctx context.Context, companyID int64, input CreateBrandInput) (*BrandDTO, error)
	GetByID(ctx context.Context, id int64) (*BrandDTO, error)
	Update(ctx context.Context, id int64, input UpdateBrandInput) (*BrandDTO, error)
	Deactivate(ctx context.Context, id int64) error
	ListByCompany(ctx context.Context, companyID int64) ([]BrandDTO, error)
}

type service struct {
	repo brandRepository
}

// NewService builds a brand service.
func NewService(repo brandRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("brand repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, companyID int64, input CreateBrandInput) (*BrandDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "brand name is required")
	}

	exists, err := s.repo.CompanyExists(ctx, companyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "company lookup failed")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "company not found")
	}

	brand := &models.Brand{CompanyID: companyID, Name: name, IsActive: true}
	if err := s.repo.Create(ctx, brand); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create brand")
	}
	return brandToDTO(brand), nil
}

func (s *service) GetByID(ctx context.Context, id int64) (*BrandDTO, error) {
	brand, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return brandToDTO(brand), nil
}

func (s *service) Update(ctx context.Context, id int64, input UpdateBrandInput) (*BrandDTO, error) {
	brand, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "brand name cannot be empty")
		}
		brand.Name = name
	}
	if err := s.repo.Update(ctx, brand); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update brand")
	}
	return brandToDTO(brand), nil
}

func (s *service) Deactivate(ctx context.Context, id int64) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to deactivate brand")
	}
	return nil
}

func (s *service) ListByCompany(ctx context.Context, companyID int64) ([]BrandDTO, error) {
	if companyID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid company id")
	}
	rows, err := s.repo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list brands")
	}
	out := make([]BrandDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *brandToDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) find(ctx context.Context, id int64) (*models.Brand, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid brand id")
	}
	brand, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "brand not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load brand")
	}
	return brand, nil
}
