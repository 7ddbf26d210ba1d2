package grants

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tilldesk/tilldesk-backend/internal/access"
	"github.com/tilldesk/tilldesk-backend/pkg/db/models"
	"github.com/tilldesk/tilldesk-backend/pkg/enums"
	pkgerrors "github.com/tilldesk/tilldesk-backend/pkg/errors"
)

// Repository persists role grants and answers the hierarchy lookups the
// access resolver needs. It is the authoritative backend; the cached
// store wraps it in front of hot read paths.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetDirectGrant returns the active grant for the user at exactly the
// given scope, or nil when none exists. Expiry is left to the resolver.
func (r *Repository) GetDirectGrant(ctx context.Context, userID uuid.UUID, ref access.ScopeRef) (*access.DirectGrant, error) {
	var grant models.UserGrant
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND scope = ? AND scope_id = ? AND is_active", userID, ref.Scope, ref.ID).
		First(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &access.DirectGrant{Role: grant.Role, ExpiresAt: grant.ExpiresAt}, nil
}

// GetAncestor returns the parent scope of the given node, nil at the top
// of the tree or when the node does not exist.
func (r *Repository) GetAncestor(ctx context.Context, ref access.ScopeRef) (*access.ScopeRef, error) {
	switch ref.Scope {
	case enums.ScopeShop:
		var shop models.Shop
		err := r.db.WithContext(ctx).Select("brand_id").First(&shop, ref.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &access.ScopeRef{Scope: enums.ScopeBrand, ID: shop.BrandID}, nil
	case enums.ScopeBrand:
		var brand models.Brand
		err := r.db.WithContext(ctx).Select("company_id").First(&brand, ref.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &access.ScopeRef{Scope: enums.ScopeCompany, ID: brand.CompanyID}, nil
	default:
		return nil, nil
	}
}

// GetTeamOwnership reports whether the user is an active leader of the
// team that owns the company.
func (r *Repository) GetTeamOwnership(ctx context.Context, companyID int64, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TeamMember{}).
		Joins("JOIN companies ON companies.owning_team_id = team_members.team_id").
		Where("companies.id = ? AND team_members.user_id = ? AND team_members.role = ? AND team_members.is_active",
			companyID, userID, enums.TeamRoleLeader).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateGrant stores a new active grant, deactivating any existing
// active grant the user already holds at the same scope so the partial
// unique index never fires on a replace.
func (r *Repository) CreateGrant(ctx context.Context, input CreateGrantInput) (*models.UserGrant, error) {
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if !input.Scope.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid scope")
	}

	grant := &models.UserGrant{
		ID:              uuid.New(),
		UserID:          input.UserID,
		Scope:           input.Scope,
		ScopeID:         input.ScopeID,
		Role:            input.Role,
		IsActive:        true,
		GrantedByUserID: input.GrantedByUserID,
		ExpiresAt:       input.ExpiresAt,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := tx.Model(&models.UserGrant{}).
			Where("user_id = ? AND scope = ? AND scope_id = ? AND is_active", input.UserID, input.Scope, input.ScopeID).
			Updates(map[string]any{"is_active": false, "deactivated_at": now}).Error; err != nil {
			return err
		}
		return tx.Create(grant).Error
	})
	if err != nil {
		return nil, err
	}
	return grant, nil
}

// DeactivateGrant retires a grant by id. Deactivating an already
// inactive or unknown grant reports not found.
func (r *Repository) DeactivateGrant(ctx context.Context, grantID uuid.UUID) (*models.UserGrant, error) {
	var grant models.UserGrant
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active", grantID).
		First(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "grant not found")
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	grant.IsActive = false
	grant.DeactivatedAt = &now
	if err := r.db.WithContext(ctx).Model(&grant).
		Updates(map[string]any{"is_active": false, "deactivated_at": now}).Error; err != nil {
		return nil, err
	}
	return &grant, nil
}

// GetGrant fetches a grant row by id regardless of its active flag.
func (r *Repository) GetGrant(ctx context.Context, grantID uuid.UUID) (*models.UserGrant, error) {
	var grant models.UserGrant
	err := r.db.WithContext(ctx).First(&grant, "id = ?", grantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "grant not found")
	}
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// ListUserGrants returns the user's active grant rows, newest first.
func (r *Repository) ListUserGrants(ctx context.Context, userID uuid.UUID) ([]models.UserGrant, error) {
	var rows []models.UserGrant
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListScopeGrants returns active grants held at one scope, newest first.
func (r *Repository) ListScopeGrants(ctx context.Context, ref access.ScopeRef) ([]models.UserGrant, error) {
	var rows []models.UserGrant
	err := r.db.WithContext(ctx).
		Where("scope = ? AND scope_id = ? AND is_active", ref.Scope, ref.ID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ScopeExists reports whether the scope id names a live row of the
// given kind.
func (r *Repository) ScopeExists(ctx context.Context, ref access.ScopeRef) (bool, error) {
	var count int64
	var q *gorm.DB
	switch ref.Scope {
	case enums.ScopeCompany:
		q = r.db.WithContext(ctx).Model(&models.Company{})
	case enums.ScopeBrand:
		q = r.db.WithContext(ctx).Model(&models.Brand{})
	case enums.ScopeShop:
		q = r.db.WithContext(ctx).Model(&models.Shop{})
	default:
		return false, pkgerrors.New(pkgerrors.CodeValidation, "invalid scope")
	}
	if err := q.Where("id = ? AND is_active", ref.ID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
