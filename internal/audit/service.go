package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tilldesk/tilldesk-backend/internal/access"
	"github.com/tilldesk/tilldesk-backend/pkg/db/models"
	"github.com/tilldesk/tilldesk-backend/pkg/enums"
	pkgerrors "github.com/tilldesk/tilldesk-backend/pkg/errors"
	"github.com/tilldesk/tilldesk-backend/pkg/logger"
	"github.com/tilldesk/tilldesk-backend/pkg/pagination"
)

type auditRepository interface {
	Insert(ctx context.Context, event *models.AuditEvent) error
	ListByScope(ctx context.Context, ref access.ScopeRef, params pagination.Params) ([]models.AuditEvent, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.AuditEvent, error)
}

// Decision is one gate verdict handed to the recorder.
type Decision struct {
	UserID       uuid.UUID
	Ref          access.ScopeRef
	CompanyID    *int64
	RequiredRole enums.Role
	Outcome      enums.DecisionOutcome
	Modify       bool
	Effective    *access.EffectiveAccess
}

// Recorder writes the audit trail for access decisions. Every decision
// lands in the structured log; denials, store errors, and permitted
// mutations also get a database row. Persistence trouble is logged and
// swallowed so the audit path can never change a gate verdict.
type Recorder struct {
	repo auditRepository
	log  *logger.Logger
}

// NewRecorder builds a recorder over the audit repository.
func NewRecorder(repo auditRepository, log *logger.Logger) (*Recorder, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Recorder{repo: repo, log: log}, nil
}

// Record logs the decision and persists it when the policy calls for a row.
func (r *Recorder) Record(ctx context.Context, d Decision) {
	ctx = r.log.WithFields(ctx, map[string]any{
		"user_id":       d.UserID.String(),
		"scope":         d.Ref.Scope.String(),
		"scope_id":      d.Ref.ID,
		"required_role": d.RequiredRole.String(),
		"outcome":       d.Outcome.String(),
		"modify":        d.Modify,
	})
	if d.Effective != nil {
		ctx = r.log.WithFields(ctx, map[string]any{
			"effective_role": d.Effective.Role.String(),
			"grant_source":   d.Effective.Source.String(),
			"origin_scope":   d.Effective.OriginScope.String(),
		})
	}

	switch d.Outcome {
	case enums.DecisionAllowed:
		r.log.Info(ctx, "access allowed")
	case enums.DecisionDenied:
		r.log.Warn(ctx, "access denied")
	case enums.DecisionStoreError:
		r.log.Warn(ctx, "access check unavailable")
	}

	if !r.shouldPersist(d) {
		return
	}

	event := &models.AuditEvent{
		UserID:       d.UserID,
		Scope:        d.Ref.Scope,
		ScopeID:      d.Ref.ID,
		CompanyID:    d.CompanyID,
		RequiredRole: d.RequiredRole,
		Outcome:      d.Outcome,
		Modify:       d.Modify,
	}
	if d.Effective != nil {
		role := d.Effective.Role
		source := d.Effective.Source
		event.EffectiveRole = &role
		event.Source = &source
	}
	if err := r.repo.Insert(ctx, event); err != nil {
		r.log.Error(ctx, "failed to persist audit event", err)
	}
}

// Allowed reads are log-only; everything else gets a row.
func (r *Recorder) shouldPersist(d Decision) bool {
	return d.Outcome != enums.DecisionAllowed || d.Modify
}

// Page is one page of audit events plus the cursor for the next one.
type Page struct {
	Events     []EventDTO `json:"events"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// Service answers audit trail queries.
type Service interface {
	ListForScope(ctx context.Context, ref access.ScopeRef, params pagination.Params) (*Page, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Page, error)
}

type service struct {
	repo auditRepository
}

// NewService builds the audit query service.
func NewService(repo auditRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListForScope(ctx context.Context, ref access.ScopeRef, params pagination.Params) (*Page, error) {
	if !ref.Scope.IsValid() || ref.ID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid scope")
	}
	if err := checkCursor(params); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByScope(ctx, ref, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list audit events")
	}
	return buildPage(rows, params.Limit), nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Page, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := checkCursor(params); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list audit events")
	}
	return buildPage(rows, params.Limit), nil
}

// checkCursor rejects an unparseable cursor before it reaches the repo,
// so a garbled query parameter reads as caller error rather than a
// storage failure.
func checkCursor(params pagination.Params) error {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return nil
}

func buildPage(rows []models.AuditEvent, limit int) *Page {
	size := pagination.NormalizeLimit(limit)
	page := &Page{}
	if len(rows) > size {
		last := rows[size-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:size]
	}
	page.Events = eventsToDTO(rows)
	return page
}
