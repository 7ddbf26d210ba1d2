package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tilldesk/tilldesk-backend/api/middleware"
	"github.com/tilldesk/tilldesk-backend/internal/access"
	"github.com/tilldesk/tilldesk-backend/internal/audit"
	authsvc "github.com/tilldesk/tilldesk-backend/internal/auth"
	"github.com/tilldesk/tilldesk-backend/internal/brands"
	"github.com/tilldesk/tilldesk-backend/internal/companies"
	"github.com/tilldesk/tilldesk-backend/internal/grants"
	"github.com/tilldesk/tilldesk-backend/internal/shops"
	"github.com/tilldesk/tilldesk-backend/internal/teams"
	pkgAuth "github.com/tilldesk/tilldesk-backend/pkg/auth"
	"github.com/tilldesk/tilldesk-backend/pkg/auth/session"
	"github.com/tilldesk/tilldesk-backend/pkg/config"
	"github.com/tilldesk/tilldesk-backend/pkg/enums"
	"github.com/tilldesk/tilldesk-backend/pkg/logger"
	"github.com/tilldesk/tilldesk-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubSessionManager struct{}

func (stubSessionManager) HasSession(context.Context, string) (bool, error) { return true, nil }
func (stubSessionManager) Rotate(context.Context, string, string) (string, string, error) {
	return "", "", nil
}
func (stubSessionManager) Revoke(context.Context, string) error { return nil }

type stubAuthService struct{}

func (stubAuthService) Login(context.Context, authsvc.LoginRequest) (*authsvc.LoginResponse, error) {
	return nil, fmt.Errorf("not implemented")
}
func (stubAuthService) Register(context.Context, authsvc.RegisterRequest) (*authsvc.RegisterResponse, error) {
	return nil, fmt.Errorf("not implemented")
}
func (stubAuthService) Refresh(context.Context, authsvc.RefreshRequest) (*authsvc.RefreshResponse, error) {
	return nil, fmt.Errorf("not implemented")
}
func (stubAuthService) Logout(context.Context, string) error { return nil }

type stubCompaniesService struct{}

func (stubCompaniesService) Create(context.Context, uuid.UUID, companies.CreateCompanyInput) (*companies.CompanyDTO, error) {
	return &companies.CompanyDTO{ID: 1}, nil
}
func (stubCompaniesService) GetByID(_ context.Context, id int64) (*companies.CompanyDTO, error) {
	return &companies.CompanyDTO{ID: id, Name: "Acme"}, nil
}
func (stubCompaniesService) Update(_ context.Context, id int64, _ companies.UpdateCompanyInput) (*companies.CompanyDTO, error) {
	return &companies.CompanyDTO{ID: id}, nil
}
func (stubCompaniesService) Deactivate(context.Context, int64) error { return nil }
func (stubCompaniesService) ListMine(context.Context, uuid.UUID) ([]companies.CompanyDTO, error) {
	return nil, nil
}

type stubBrandsService struct{}

func (stubBrandsService) Create(_ context.Context, companyID int64, _ brands.CreateBrandInput) (*brands.BrandDTO, error) {
	return &brands.BrandDTO{ID: 10, CompanyID: companyID}, nil
}
func (stubBrandsService) GetByID(_ context.Context, id int64) (*brands.BrandDTO, error) {
	return &brands.BrandDTO{ID: id}, nil
}
func (stubBrandsService) Update(_ context.Context, id int64, _ brands.UpdateBrandInput) (*brands.BrandDTO, error) {
	return &brands.BrandDTO{ID: id}, nil
}
func (stubBrandsService) Deactivate(context.Context, int64) error { return nil }
func (stubBrandsService) ListByCompany(context.Context, int64) ([]brands.BrandDTO, error) {
	return nil, nil
}

type stubShopsService struct{}

func (stubShopsService) Create(_ context.Context, brandID int64, _ shops.CreateShopInput) (*shops.ShopDTO, error) {
	return &shops.ShopDTO{ID: 100, BrandID: brandID}, nil
}
func (stubShopsService) GetByID(_ context.Context, id int64) (*shops.ShopDTO, error) {
	return &shops.ShopDTO{ID: id}, nil
}
func (stubShopsService) Update(_ context.Context, id int64, _ shops.UpdateShopInput) (*shops.ShopDTO, error) {
	return &shops.ShopDTO{ID: id}, nil
}
func (stubShopsService) Deactivate(context.Context, int64) error { return nil }
func (stubShopsService) ListByBrand(context.Context, int64) ([]shops.ShopDTO, error) {
	return nil, nil
}

type stubTeamsService struct{}

func (stubTeamsService) Create(context.Context, uuid.UUID, teams.CreateTeamInput) (*teams.TeamDTO, error) {
	return &teams.TeamDTO{ID: uuid.New()}, nil
}
func (stubTeamsService) Get(context.Context, uuid.UUID, uuid.UUID) (*teams.TeamDTO, error) {
	return &teams.TeamDTO{}, nil
}
func (stubTeamsService) ListMembers(context.Context, uuid.UUID, uuid.UUID) ([]teams.MemberDTO, error) {
	return nil, nil
}
func (stubTeamsService) AddMember(context.Context, uuid.UUID, uuid.UUID, teams.AddMemberInput) (*teams.MemberDTO, error) {
	return &teams.MemberDTO{}, nil
}
func (stubTeamsService) RemoveMember(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) error {
	return nil
}
func (stubTeamsService) Invite(context.Context, uuid.UUID, teams.InviteInput) (*teams.InvitationDTO, error) {
	return &teams.InvitationDTO{}, nil
}
func (stubTeamsService) AcceptInvitation(context.Context, uuid.UUID, string) (*grants.GrantDTO, error) {
	return &grants.GrantDTO{}, nil
}
func (stubTeamsService) RevokeInvitation(context.Context, string) error { return nil }

type stubGrantsService struct{}

func (stubGrantsService) Create(context.Context, uuid.UUID, grants.CreateGrantInput) (*grants.GrantDTO, error) {
	return &grants.GrantDTO{}, nil
}
func (stubGrantsService) Revoke(context.Context, uuid.UUID) error { return nil }
func (stubGrantsService) RevokeInScope(context.Context, access.ScopeRef, uuid.UUID) error {
	return nil
}
func (stubGrantsService) ListForUser(context.Context, uuid.UUID) ([]grants.GrantDTO, error) {
	return nil, nil
}
func (stubGrantsService) ListForScope(context.Context, access.ScopeRef) ([]grants.GrantDTO, error) {
	return nil, nil
}

type stubAuditService struct{}

func (stubAuditService) ListForScope(context.Context, access.ScopeRef, pagination.Params) (*audit.Page, error) {
	return &audit.Page{}, nil
}
func (stubAuditService) ListForUser(context.Context, uuid.UUID, pagination.Params) (*audit.Page, error) {
	return &audit.Page{}, nil
}

type nullRecorder struct{}

func (nullRecorder) Record(context.Context, audit.Decision) {}

// routeStore grants one user company_admin on company 1; shop 100 and
// brand 10 hang off that company.
type routeStore struct {
	adminID uuid.UUID
}

func (s routeStore) GetDirectGrant(_ context.Context, userID uuid.UUID, ref access.ScopeRef) (*access.DirectGrant, error) {
	if userID == s.adminID && ref.Scope == enums.ScopeCompany && ref.ID == 1 {
		return &access.DirectGrant{Role: enums.RoleCompanyAdmin}, nil
	}
	return nil, nil
}

func (s routeStore) GetAncestor(_ context.Context, ref access.ScopeRef) (*access.ScopeRef, error) {
	switch {
	case ref.Scope == enums.ScopeShop && ref.ID == 100:
		return &access.ScopeRef{Scope: enums.ScopeBrand, ID: 10}, nil
	case ref.Scope == enums.ScopeBrand && ref.ID == 10:
		return &access.ScopeRef{Scope: enums.ScopeCompany, ID: 1}, nil
	default:
		return nil, nil
	}
}

func (s routeStore) GetTeamOwnership(context.Context, int64, uuid.UUID) (bool, error) {
	return false, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "8080"},
		JWT: config.JWTConfig{Secret: "test-secret", Issuer: "tilldesk-test", ExpirationMinutes: 60},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, adminID uuid.UUID) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("error"), Output: io.Discard})
	resolver, err := access.NewResolver(routeStore{adminID: adminID})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	gate, err := middleware.NewScopeGate(resolver, nullRecorder{}, nil, logg)
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}
	return NewRouter(Deps{
		Config:      cfg,
		Logger:      logg,
		DB:          stubPinger{},
		Redis:       nil,
		Sessions:    stubSessionManager{},
		Gate:        gate,
		AuthService: stubAuthService{},
		Companies:   stubCompaniesService{},
		Brands:      stubBrandsService{},
		Shops:       stubShopsService{},
		Teams:       stubTeamsService{},
		Grants:      stubGrantsService{},
		Audit:       stubAuditService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, userID uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t, testConfig(), uuid.New())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(t, testConfig(), uuid.New())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg, uuid.New())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestScopedRouteDeniesOutsider(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg, uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/companies/1", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for outsider got %d", resp.Code)
	}
}

func TestScopedRouteAllowsDirectGrant(t *testing.T) {
	cfg := testConfig()
	adminID := uuid.New()
	router := newTestRouter(t, cfg, adminID)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/companies/1", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, adminID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for company admin got %d", resp.Code)
	}
}

func TestScopedRouteAllowsInheritedGrant(t *testing.T) {
	cfg := testConfig()
	adminID := uuid.New()
	router := newTestRouter(t, cfg, adminID)

	// company_admin at company 1 reaches shop 100 through the chain
	req := httptest.NewRequest(http.MethodGet, "/api/v1/shops/100", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, adminID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 via inheritance got %d", resp.Code)
	}
}

func TestScopedRouteEnforcesWriteThreshold(t *testing.T) {
	cfg := testConfig()
	adminID := uuid.New()
	router := newTestRouter(t, cfg, adminID)

	// company_admin outranks owner nowhere: deleting the company needs owner
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/companies/1", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, adminID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 below owner threshold got %d", resp.Code)
	}
}
