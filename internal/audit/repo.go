package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tilldesk/tilldesk-backend/internal/access"
	"github.com/tilldesk/tilldesk-backend/pkg/db/models"
	"github.com/tilldesk/tilldesk-backend/pkg/pagination"
)

// Repository persists and queries access decision events.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert stores one decision event.
func (r *Repository) Insert(ctx context.Context, event *models.AuditEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

// ListByScope returns events recorded at one scope, newest first, keyset
// paginated on (created_at, id).
func (r *Repository) ListByScope(ctx context.Context, ref access.ScopeRef, params pagination.Params) ([]models.AuditEvent, error) {
	q := r.db.WithContext(ctx).
		Where("scope = ? AND scope_id = ?", ref.Scope, ref.ID)
	return r.page(q, params)
}

// ListByUser returns events recorded for one user, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.AuditEvent, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	return r.page(q, params)
}

func (r *Repository) page(q *gorm.DB, params pagination.Params) ([]models.AuditEvent, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.AuditEvent
	err = q.Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
