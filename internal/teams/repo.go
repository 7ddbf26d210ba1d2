package teams

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tilldesk/tilldesk-backend/pkg/db/models"
	"github.com/tilldesk/tilldesk-backend/pkg/enums"
)

// Repository exposes team and invitation persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateTeam inserts the team and its first leader in one transaction.
func (r *Repository) CreateTeam(ctx context.Context, name string, leaderID uuid.UUID) (*models.Team, error) {
	team := &models.Team{ID: uuid.New(), Name: name}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return err
		}
		member := &models.TeamMember{
			ID:       uuid.New(),
			TeamID:   team.ID,
			UserID:   leaderID,
			Role:     enums.TeamRoleLeader,
			IsActive: true,
		}
		return tx.Create(member).Error
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// FindTeam loads a team by id.
func (r *Repository) FindTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	var team models.Team
	if err := r.db.WithContext(ctx).First(&team, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

// GetMember returns the active membership row, nil when the user is not
// on the team.
func (r *Repository) GetMember(ctx context.Context, teamID, userID uuid.UUID) (*models.TeamMember, error) {
	var member models.TeamMember
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ? AND is_active", teamID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// AddMember inserts an active membership row.
func (r *Repository) AddMember(ctx context.Context, teamID, userID uuid.UUID, role enums.TeamRole) (*models.TeamMember, error) {
	member := &models.TeamMember{
		ID:       uuid.New(),
		TeamID:   teamID,
		UserID:   userID,
		Role:     role,
		IsActive: true,
	}
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		return nil, err
	}
	return member, nil
}

// UpdateMemberRole changes the member's role on the team.
func (r *Repository) UpdateMemberRole(ctx context.Context, teamID, userID uuid.UUID, role enums.TeamRole) error {
	return r.db.WithContext(ctx).
		Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ? AND is_active", teamID, userID).
		UpdateColumn("role", role).Error
}

// RemoveMember deactivates the membership row.
func (r *Repository) RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ? AND is_active", teamID, userID).
		UpdateColumn("is_active", false).Error
}

// ListMembers returns the team's active members.
func (r *Repository) ListMembers(ctx context.Context, teamID uuid.UUID) ([]models.TeamMember, error) {
	var rows []models.TeamMember
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND is_active", teamID).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CountLeaders returns how many active leaders the team has.
func (r *Repository) CountLeaders(ctx context.Context, teamID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TeamMember{}).
		Where("team_id = ? AND role = ? AND is_active", teamID, enums.TeamRoleLeader).
		Count(&count).Error
	return count, err
}

// ListOwnedCompanyIDs returns the ids of companies whose owning team is
// the given one. Used to invalidate cached ownership checks after
// membership changes.
func (r *Repository) ListOwnedCompanyIDs(ctx context.Context, teamID uuid.UUID) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&models.Company{}).
		Where("owning_team_id = ?", teamID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// CreateInvitation inserts a pending invitation.
func (r *Repository) CreateInvitation(ctx context.Context, invitation *models.TeamInvitation) error {
	if invitation.ID == uuid.Nil {
		invitation.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(invitation).Error
}

// FindInvitationByToken loads an invitation by its opaque token.
func (r *Repository) FindInvitationByToken(ctx context.Context, token string) (*models.TeamInvitation, error) {
	var invitation models.TeamInvitation
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&invitation).Error; err != nil {
		return nil, err
	}
	return &invitation, nil
}

// UpdateInvitationStatus moves the invitation to a terminal status.
func (r *Repository) UpdateInvitationStatus(ctx context.Context, id uuid.UUID, status enums.InvitationStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.TeamInvitation{}).
		Where("id = ?", id).
		UpdateColumn("status", status).Error
}

// ExpireStaleInvitations marks overdue pending invitations as expired
// and reports how many rows changed. Run from the maintenance loop.
func (r *Repository) ExpireStaleInvitations(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.TeamInvitation{}).
		Where("status = ? AND expires_at <= ?", enums.InvitationStatusPending, now).
		UpdateColumn("status", enums.InvitationStatusExpired)
	return res.RowsAffected, res.Error
}
