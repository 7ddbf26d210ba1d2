package companies

import (
	"time"

	"github.com/google/uuid"

	"github.com/tilldesk/tilldesk-backend/pkg/db/models"
)

// CreateCompanyInput is the payload for standing up a new company.
type CreateCompanyInput struct {
	Name         string     `json:"name" validate:"required,min=2,max=120"`
	LegalName    string     `json:"legal_name" validate:"omitempty,max=200"`
	TaxNumber    string     `json:"tax_number" validate:"omitempty,max=40"`
	OwningTeamID *uuid.UUID `json:"owning_team_id,omitempty"`
}

// UpdateCompanyInput carries the editable company fields.
type UpdateCompanyInput struct {
	Name      *string `json:"name" validate:"omitempty,min=2,max=120"`
	LegalName *string `json:"legal_name" validate:"omitempty,max=200"`
	TaxNumber *string `json:"tax_number" validate:"omitempty,max=40"`
}

// CompanyDTO is the transport shape of a company.
type CompanyDTO struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	LegalName    string     `json:"legal_name,omitempty"`
	TaxNumber    string     `json:"tax_number,omitempty"`
	OwningTeamID *uuid.UUID `json:"owning_team_id,omitempty"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func companyToDTO(c *models.Company) *CompanyDTO {
	if c == nil {
		return nil
	}
	return &CompanyDTO{
		ID:           c.ID,
		Name:         c.Name,
		LegalName:    c.LegalName,
		TaxNumber:    c.TaxNumber,
		OwningTeamID: c.OwningTeamID,
		IsActive:     c.IsActive,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func companiesToDTO(rows []models.Company) []CompanyDTO {
	out := make([]CompanyDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *companyToDTO(&rows[i]))
	}
	return out
}
