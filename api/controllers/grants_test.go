package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tilldesk/tilldesk-backend/api/middleware"
	"github.com/tilldesk/tilldesk-backend/internal/access"
	"github.com/tilldesk/tilldesk-backend/internal/grants"
	"github.com/tilldesk/tilldesk-backend/pkg/enums"
	pkgerrors "github.com/tilldesk/tilldesk-backend/pkg/errors"
)

type stubGrantsService struct {
	created *grants.CreateGrantInput
	actor   uuid.UUID
	dto     *grants.GrantDTO
	list    []grants.GrantDTO
	err     error
}

func (s *stubGrantsService) Create(_ context.Context, actorID uuid.UUID, input grants.CreateGrantInput) (*grants.GrantDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.actor = actorID
	s.created = &input
	return s.dto, nil
}

func (s *stubGrantsService) Revoke(_ context.Context, _ uuid.UUID) error {
	return s.err
}

func (s *stubGrantsService) RevokeInScope(_ context.Context, _ access.ScopeRef, _ uuid.UUID) error {
	return s.err
}

func (s *stubGrantsService) ListForUser(_ context.Context, _ uuid.UUID) ([]grants.GrantDTO, error) {
	return s.list, s.err
}

func (s *stubGrantsService) ListForScope(_ context.Context, _ access.ScopeRef) ([]grants.GrantDTO, error) {
	return s.list, s.err
}

func TestGrantCreateUsesRouteScope(t *testing.T) {
	target := uuid.New()
	actor := uuid.New()
	svc := &stubGrantsService{dto: &grants.GrantDTO{ID: uuid.New(), UserID: target, Scope: enums.ScopeShop, ScopeID: 42, Role: enums.RoleManager}}

	router := chi.NewRouter()
	router.Post("/shops/{shopID}/grants", GrantCreate(svc, enums.ScopeShop, "shopID", nil))

	payload, _ := json.Marshal(map[string]any{"user_id": target, "role": "manager"})
	req := httptest.NewRequest(http.MethodPost, "/shops/42/grants", bytes.NewReader(payload))
	req = req.WithContext(middleware.WithUserID(req.Context(), actor))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body %s", rec.Code, rec.Body.String())
	}
	if svc.created == nil {
		t.Fatal("expected create call")
	}
	if svc.created.Scope != enums.ScopeShop || svc.created.ScopeID != 42 {
		t.Fatalf("expected shop/42 got %s/%d", svc.created.Scope, svc.created.ScopeID)
	}
	if svc.actor != actor {
		t.Fatalf("expected actor %s got %s", actor, svc.actor)
	}
}

func TestGrantCreateRejectsUnknownFields(t *testing.T) {
	svc := &stubGrantsService{}
	router := chi.NewRouter()
	router.Post("/shops/{shopID}/grants", GrantCreate(svc, enums.ScopeShop, "shopID", nil))

	// scope identity comes from the route, not the payload
	payload := []byte(`{"user_id":"` + uuid.NewString() + `","role":"manager","scope_id":999}`)
	req := httptest.NewRequest(http.MethodPost, "/shops/42/grants", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.created != nil {
		t.Fatal("service must not run on invalid payload")
	}
}

func TestGrantRevokeNotFound(t *testing.T) {
	svc := &stubGrantsService{err: pkgerrors.New(pkgerrors.CodeNotFound, "grant not found")}
	router := chi.NewRouter()
	router.Delete("/shops/{shopID}/grants/{grantID}", GrantRevoke(svc, enums.ScopeShop, "shopID", nil))

	req := httptest.NewRequest(http.MethodDelete, "/shops/42/grants/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestMyGrantsRequiresUser(t *testing.T) {
	handler := MyGrants(&stubGrantsService{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/me/grants", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestEffectiveAccessEchoesGateResolution(t *testing.T) {
	effective := &access.EffectiveAccess{
		Role:          enums.RoleCompanyAdmin,
		Source:        enums.GrantSourceInherited,
		OriginScope:   enums.ScopeCompany,
		OriginScopeID: 1,
	}
	handler := EffectiveAccess(nil)

	req := httptest.NewRequest(http.MethodGet, "/shops/42/access", nil)
	req = req.WithContext(middleware.WithEffectiveAccess(req.Context(), effective))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		Data access.EffectiveAccess `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Role != enums.RoleCompanyAdmin || envelope.Data.Source != enums.GrantSourceInherited {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}
