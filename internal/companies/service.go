package companies

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tilldesk/tilldesk-backend/internal/grants"
	"github.com/tilldesk/tilldesk-backend/pkg/db/models"
	"github.com/tilldesk/tilldesk-backend/pkg/enums"
	pkgerrors "github.com/tilldesk/tilldesk-backend/pkg/errors"
)

type companyRepository interface {
	Create(ctx context.Context, company *models.Company) error
	FindByID(ctx context.Context, id int64) (*models.Company, error)
	Update(ctx context.Context, company *models.Company) error
	Deactivate(ctx context.Context, id int64) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Company, error)
}

type grantsService interface {
	Create(ctx context.Context, actorID uuid.UUID, input grants.CreateGrantInput) (*grants.GrantDTO, error)
}

// Service exposes company operations.
type Service interface {
	Create(ctx context.Context, creatorID uuid.UUID, input CreateCompanyInput) (*CompanyDTO, error)
	GetByID(ctx context.Context, id int64) (*CompanyDTO, error)
	Update(ctx context.Context, id int64, input UpdateCompanyInput) (*CompanyDTO, error)
	Deactivate(ctx context.Context, id int64) error
	ListMine(ctx context.Context, userID uuid.UUID) ([]CompanyDTO, error)
}

type service struct {
	repo   companyRepository
	grants grantsService
}

// NewService builds a company service with the provided dependencies.
func NewService(repo companyRepository, grantsSvc grantsService) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("company repository required")
	}
	if grantsSvc == nil {
		return nil, fmt.Errorf("grants service required")
	}
	return &service{repo: repo, grants: grantsSvc}, nil
}

// Create stands up a company and makes the creator its owner. Without
// that first grant nobody could administer the new tenant.
func (s *service) Create(ctx context.Context, creatorID uuid.UUID, input CreateCompanyInput) (*CompanyDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company name is required")
	}
	if creatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "creator is required")
	}

	company := &models.Company{
		Name:         name,
		LegalName:    strings.TrimSpace(input.LegalName),
		TaxNumber:    strings.TrimSpace(input.TaxNumber),
		OwningTeamID: input.OwningTeamID,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, company); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create company")
	}

	if _, err := s.grants.Create(ctx, creatorID, grants.CreateGrantInput{
		UserID:  creatorID,
		Scope:   enums.ScopeCompany,
		ScopeID: company.ID,
		Role:    enums.RoleOwner,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to grant ownership")
	}

	return companyToDTO(company), nil
}

func (s *service) GetByID(ctx context.Context, id int64) (*CompanyDTO, error) {
	company, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return companyToDTO(company), nil
}

func (s *service) Update(ctx context.Context, id int64, input UpdateCompanyInput) (*CompanyDTO, error) {
	company, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "company name cannot be empty")
		}
		company.Name = name
	}
	if input.LegalName != nil {
		company.LegalName = strings.TrimSpace(*input.LegalName)
	}
	if input.TaxNumber != nil {
		company.TaxNumber = strings.TrimSpace(*input.TaxNumber)
	}

	if err := s.repo.Update(ctx, company); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update company")
	}
	return companyToDTO(company), nil
}

func (s *service) Deactivate(ctx context.Context, id int64) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to deactivate company")
	}
	return nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]CompanyDTO, error) {
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list companies")
	}
	return companiesToDTO(rows), nil
}

func (s *service) find(ctx context.Context, id int64) (*models.Company, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid company id")
	}
	company, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "company not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load company")
	}
	return company, nil
}
