package shops

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

// CreateShopInput is the payload for adding a shop under a brand.
type CreateShopInput struct {
	Name    string `json:"name" validate:"required,min=2,max=120"`
	Address string `json:"address" validate:"omitempty,max=300"`
	Phone   string `json:"phone" validate:"omitempty,max=40"`
}

// UpdateShopInput carries the editable shop fields.
type UpdateShopInput struct {
	Name    *string `json:"name" validate:"omitempty,min=2,max=120"`
	Address *string `json:"address" validate:"omitempty,max=300"`
	Phone   *string `json:"phone" validate:"omitempty,max=40"`
}

// ShopDTO is the transport shape of a shop.
type ShopDTO struct {
	ID        int64     `json:"id"`
	BrandID   int64     `json:"brand_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func shopToDTO(s *models.Shop) *ShopDTO {
	if s == nil {
		return nil
	}
	return &ShopDTO{
		ID:        s.ID,
		BrandID:   s.BrandID,
		Name:      s.Name,
		Address:   s.Address,
		Phone:     s.Phone,
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// Repository exposes shop persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new shop.
func (r *Repository) Create(ctx context.Context, shop *models.Shop) error {
	return r.db.WithContext(ctx).Create(shop).Error
}

// FindByID loads a shop by id.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).First(&shop, id).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

// Update persists changed fields of the shop.
func (r *Repository) Update(ctx context.Context, shop *models.Shop) error {
	return r.db.WithContext(ctx).Save(shop).Error
}

// Deactivate turns the shop off without deleting it.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Shop{}).
		Where("id = ?", id).
		UpdateColumn("is_active", false).Error
}

// ListByBrand returns the brand's active shops.
func (r *Repository) ListByBrand(ctx context.Context, brandID int64) ([]models.Shop, error) {
	var rows []models.Shop
	err := r.db.WithContext(ctx).
		Where("brand_id = ? AND is_active", brandID).
		Order("name").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// BrandExists reports whether an active brand with the id is on record.
func (r *Repository) BrandExists(ctx context.Context, brandID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Brand{}).
		Where("id = ? AND is_active", brandID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

type shopRepository interface {
	Create(ctx context.Context, shop *models.Shop) error
	FindByID(ctx context.Context, id int64) (*models.Shop, error)
	Update(ctx context.Context, shop *models.Shop) error
	Deactivate(ctx context.Context, id int64) error
	ListByBrand(ctx context.Context, brandID int64) ([]models.Shop, error)
	BrandExists(ctx context.Context, brandID int64) (bool, error)
}

// Service exposes shop operations.
type Service interface {
	Create(ctx context.Context, brandID int64, input CreateShopInput) (*ShopDTO, error)
	GetByID(ctx context.Context, id int64) (*ShopDTO, error)
	Update(ctx context.Context, id int64, input UpdateShopInput) (*ShopDTO, error)
	Deactivate(ctx context.Context, id int64) error
	ListByBrand(ctx context.Context, brandID int64) ([]ShopDTO, error)
}

type service struct {
	repo shopRepository
}

// NewService builds a shop service.
func NewService(repo shopRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shop repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, brandID int64, input CreateShopInput) (*ShopDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop name is required")
	}

	exists, err := s.repo.BrandExists(ctx, brandID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "brand lookup failed")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "brand not found")
	}

	shop := &models.Shop{
		BrandID: brandID,
		Name:    name,
		Address: strings.TrimSpace(input.Address),
		Phone:   strings.TrimSpace(input.Phone),
		IsActive: true,
	}
	if err := s.repo.Create(ctx, shop); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create shop")
	}
	return shopToDTO(shop), nil
}

func (s *service) GetByID(ctx context.Context, id int64) (*ShopDTO, error) {
	shop, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return shopToDTO(shop), nil
}

func (s *service) Update(ctx context.Context, id int64, input UpdateShopInput) (*ShopDTO, error) {
	shop, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop name cannot be empty")
		}
		shop.Name = name
	}
	if input.Address != nil {
		shop.Address = strings.TrimSpace(*input.Address)
	}
	if input.Phone != nil {
		shop.Phone = strings.TrimSpace(*input.Phone)
	}
	if err := s.repo.Update(ctx, shop); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update shop")
	}
	return shopToDTO(shop), nil
}

func (s *service) Deactivate(ctx context.Context, id int64) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to deactivate shop")
	}
	return nil
}

func (s *service) ListByBrand(ctx context.Context, brandID int64) ([]ShopDTO, error) {
	if brandID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid brand id")
	}
	rows, err := s.repo.ListByBrand(ctx, brandID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list shops")
	}
	out := make([]ShopDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *shopToDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) find(ctx context.Context, id int64) (*models.Shop, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid shop id")
	}
	shop, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load shop")
	}
	return shop, nil
}
