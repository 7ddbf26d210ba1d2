package audit

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tilldesk/tilldesk-backend/internal/access"
	"github.com/tilldesk/tilldesk-backend/pkg/db/models"
	"github.com/tilldesk/tilldesk-backend/pkg/enums"
	pkgerrors "github.com/tilldesk/tilldesk-backend/pkg/errors"
	"github.com/tilldesk/tilldesk-backend/pkg/logger"
	"github.com/tilldesk/tilldesk-backend/pkg/pagination"
)

type fakeAuditRepo struct {
	inserted  []*models.AuditEvent
	rows      []models.AuditEvent
	insertErr error
}

func (f *fakeAuditRepo) Insert(_ context.Context, event *models.AuditEvent) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, event)
	return nil
}

func (f *fakeAuditRepo) ListByScope(_ context.Context, _ access.ScopeRef, _ pagination.Params) ([]models.AuditEvent, error) {
	return f.rows, nil
}

func (f *fakeAuditRepo) ListByUser(_ context.Context, _ uuid.UUID, _ pagination.Params) ([]models.AuditEvent, error) {
	return f.rows, nil
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard})
}

func TestRecorderPersistPolicy(t *testing.T) {
	ref := access.ScopeRef{Scope: enums.ScopeShop, ID: 7}
	effective := &access.EffectiveAccess{
		Role: enums.RoleShopManager, Source: enums.GrantSourceDirect,
		OriginScope: enums.ScopeShop, OriginScopeID: 7,
	}

	cases := []struct {
		name    string
		d       Decision
		persist bool
	}{
		{"allowed read", Decision{Outcome: enums.DecisionAllowed, Effective: effective}, false},
		{"allowed modify", Decision{Outcome: enums.DecisionAllowed, Modify: true, Effective: effective}, true},
		{"denied", Decision{Outcome: enums.DecisionDenied}, true},
		{"store error", Decision{Outcome: enums.DecisionStoreError}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeAuditRepo{}
			rec, err := NewRecorder(repo, quietLogger())
			if err != nil {
				t.Fatalf("NewRecorder: %v", err)
			}

			tc.d.UserID = uuid.New()
			tc.d.Ref = ref
			tc.d.RequiredRole = enums.RoleShopManager
			rec.Record(context.Background(), tc.d)

			if tc.persist && len(repo.inserted) != 1 {
				t.Fatalf("inserted %d events, want 1", len(repo.inserted))
			}
			if !tc.persist && len(repo.inserted) != 0 {
				t.Fatalf("inserted %d events, want 0", len(repo.inserted))
			}
			if tc.persist && tc.d.Effective != nil {
				event := repo.inserted[0]
				if event.EffectiveRole == nil || *event.EffectiveRole != enums.RoleShopManager {
					t.Error("effective role not carried onto the event")
				}
				if event.Source == nil || *event.Source != enums.GrantSourceDirect {
					t.Error("grant source not carried onto the event")
				}
			}
		})
	}
}

func TestRecorderSwallowsPersistFailure(t *testing.T) {
	repo := &fakeAuditRepo{insertErr: errors.New("disk full")}
	rec, err := NewRecorder(repo, quietLogger())
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}

	// Must not panic or surface the failure.
	rec.Record(context.Background(), Decision{
		UserID: uuid.New(),
		Ref:    access.ScopeRef{Scope: enums.ScopeShop, ID: 1},
		RequiredRole: enums.RoleViewer,
		Outcome:      enums.DecisionDenied,
	})
}

func TestServicePagination(t *testing.T) {
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	rows := make([]models.AuditEvent, 0, 3)
	for i := 0; i < 3; i++ {
		rows = append(rows, models.AuditEvent{
			ID: uuid.New(), UserID: uuid.New(),
			Scope: enums.ScopeShop, ScopeID: 7,
			RequiredRole: enums.RoleViewer, Outcome: enums.DecisionDenied,
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		})
	}
	svc, err := NewService(&fakeAuditRepo{rows: rows})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	// Limit 2 with 3 rows returned means there is a next page.
	page, err := svc.ListForScope(context.Background(), access.ScopeRef{Scope: enums.ScopeShop, ID: 7}, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("ListForScope: %v", err)
	}
	if len(page.Events) != 2 {
		t.Errorf("got %d events, want 2", len(page.Events))
	}
	if page.NextCursor == "" {
		t.Error("expected a next cursor")
	}

	cursor, err := pagination.ParseCursor(page.NextCursor)
	if err != nil {
		t.Fatalf("ParseCursor: %v", err)
	}
	if cursor.ID != rows[1].ID {
		t.Error("cursor must point at the last returned row")
	}
}

func TestServiceValidation(t *testing.T) {
	svc, _ := NewService(&fakeAuditRepo{})

	if _, err := svc.ListForScope(context.Background(), access.ScopeRef{Scope: "region", ID: 1}, pagination.Params{}); err == nil {
		t.Error("invalid scope must be rejected")
	}
	if _, err := svc.ListForUser(context.Background(), uuid.Nil, pagination.Params{}); err == nil {
		t.Error("nil user must be rejected")
	}
}

func TestServiceRejectsGarbledCursor(t *testing.T) {
	svc, _ := NewService(&fakeAuditRepo{})
	ref := access.ScopeRef{Scope: enums.ScopeShop, ID: 7}
	params := pagination.Params{Cursor: "not-a-cursor"}

	_, err := svc.ListForScope(context.Background(), ref, params)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Errorf("scope list: got %v, want a validation error", err)
	}

	_, err = svc.ListForUser(context.Background(), uuid.New(), params)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Errorf("user list: got %v, want a validation error", err)
	}
}
