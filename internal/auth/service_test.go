package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tilldesk/tilldesk-backend/internal/users"
	pkgAuth "github.com/tilldesk/tilldesk-backend/pkg/auth"
	"github.com/tilldesk/tilldesk-backend/pkg/auth/session"
	"github.com/tilldesk/tilldesk-backend/pkg/config"
	"github.com/tilldesk/tilldesk-backend/pkg/db/models"
	"github.com/tilldesk/tilldesk-backend/pkg/enums"
	pkgerrors "github.com/tilldesk/tilldesk-backend/pkg/errors"
	"github.com/tilldesk/tilldesk-backend/pkg/security"
)

type fakeUserRepo struct {
	users     map[string]*models.User
	lastLogin map[uuid.UUID]time.Time
}

func newFakeUserRepo(seed ...*models.User) *fakeUserRepo {
	repo := &fakeUserRepo{
		users:     map[string]*models.User{},
		lastLogin: map[uuid.UUID]time.Time{},
	}
	for _, u := range seed {
		repo.users[u.Email] = u
	}
	return repo
}

func (f *fakeUserRepo) Create(_ context.Context, dto users.CreateUserDTO) (*models.User, error) {
	if _, ok := f.users[dto.Email]; ok {
		return nil, gorm.ErrDuplicatedKey
	}
	user := dto.ToModel()
	f.users[user.Email] = user
	return user, nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	f.lastLogin[id] = at
	return nil
}

type fakeGrantsLister struct {
	rows []models.UserGrant
}

func (f *fakeGrantsLister) ListUserGrants(_ context.Context, _ uuid.UUID) ([]models.UserGrant, error) {
	return f.rows, nil
}

type fakeSession struct {
	generated []string
	revoked   []string
	rotateErr error
}

func (f *fakeSession) Generate(_ context.Context, accessID string) (string, error) {
	f.generated = append(f.generated, accessID)
	return "refresh-" + accessID, nil
}

func (f *fakeSession) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	if f.rotateErr != nil {
		return "", "", f.rotateErr
	}
	if provided != "refresh-"+oldAccessID {
		return "", "", session.ErrInvalidRefreshToken
	}
	return "rotated-id", "refresh-rotated-id", nil
}

func (f *fakeSession) Revoke(_ context.Context, accessID string) error {
	f.revoked = append(f.revoked, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "tilldesk", ExpirationMinutes: 30}
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func buildTestService(t *testing.T, repo *fakeUserRepo, grants *fakeGrantsLister, sess *fakeSession) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		GrantsRepo:     grants,
		SessionManager: sess,
		JWTConfig:      testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestServiceLogin(t *testing.T) {
	password := "a-long-passphrase"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "manager@example.com",
		PasswordHash: mustHashPassword(t, password),
		IsActive:     true,
	}
	repo := newFakeUserRepo(user)
	grants := &fakeGrantsLister{rows: []models.UserGrant{
		{Scope: enums.ScopeCompany, ScopeID: 9, Role: enums.RoleCompanyAdmin, IsActive: true},
		{Scope: enums.ScopeShop, ScopeID: 4, Role: enums.RoleShopManager, IsActive: true},
	}}
	svc := buildTestService(t, repo, grants, &fakeSession{})

	resp, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("token user = %s, want %s", claims.UserID, user.ID)
	}
	if claims.ActiveCompanyID == nil || *claims.ActiveCompanyID != 9 {
		t.Error("single company grant should set active_company_id")
	}
	if len(resp.Grants) != 2 {
		t.Errorf("got %d grants in response, want 2", len(resp.Grants))
	}
	if resp.RefreshToken == "" {
		t.Error("expected refresh token")
	}
	if _, ok := repo.lastLogin[user.ID]; !ok {
		t.Error("last login not recorded")
	}
}

func TestServiceLoginRejectsBadCredentials(t *testing.T) {
	password := "a-long-passphrase"
	active := &models.User{
		ID: uuid.New(), Email: "ok@example.com",
		PasswordHash: mustHashPassword(t, password), IsActive: true,
	}
	disabled := &models.User{
		ID: uuid.New(), Email: "off@example.com",
		PasswordHash: mustHashPassword(t, password), IsActive: false,
	}
	svc := buildTestService(t, newFakeUserRepo(active, disabled), &fakeGrantsLister{}, &fakeSession{})
	ctx := context.Background()

	cases := []struct {
		name string
		req  LoginRequest
	}{
		{"unknown email", LoginRequest{Email: "ghost@example.com", Password: password}},
		{"wrong password", LoginRequest{Email: active.Email, Password: "nope"}},
		{"deactivated account", LoginRequest{Email: disabled.Email, Password: password}},
		{"blank email", LoginRequest{Password: password}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Login(ctx, tc.req); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
				t.Errorf("err = %v, want unauthorized", err)
			}
		})
	}
}

func TestServiceRegister(t *testing.T) {
	repo := newFakeUserRepo()
	svc := buildTestService(t, repo, &fakeGrantsLister{}, &fakeSession{})

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email: "New@Example.com", Password: "a-long-passphrase",
		FirstName: "New", LastName: "User",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.User.Email != "new@example.com" {
		t.Errorf("email = %s, want lowercased", resp.User.Email)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("expected a full token pair")
	}

	_, err = svc.Register(context.Background(), RegisterRequest{
		Email: "new@example.com", Password: "a-long-passphrase",
		FirstName: "Dup", LastName: "User",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Errorf("duplicate email: err = %v, want conflict", err)
	}
}

func TestServiceRefresh(t *testing.T) {
	sess := &fakeSession{}
	svc := buildTestService(t, newFakeUserRepo(), &fakeGrantsLister{}, sess)

	userID := uuid.New()
	accessToken, err := pkgAuth.MintAccessToken(testJWTConfig(), time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: userID, JTI: "session-1",
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	resp, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  accessToken,
		RefreshToken: "refresh-session-1",
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse rotated token: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("rotated token user = %s, want %s", claims.UserID, userID)
	}
	if claims.ID != "rotated-id" {
		t.Errorf("rotated token jti = %s, want rotated-id", claims.ID)
	}

	// A refresh token that does not match the session is rejected.
	if _, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  accessToken,
		RefreshToken: "refresh-other",
	}); err == nil {
		t.Error("mismatched refresh token must fail")
	}

	if _, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  "garbage",
		RefreshToken: "refresh-session-1",
	}); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Errorf("garbage access token: err = %v, want unauthorized", err)
	}
}

func TestServiceLogout(t *testing.T) {
	sess := &fakeSession{}
	svc := buildTestService(t, newFakeUserRepo(), &fakeGrantsLister{}, sess)

	if err := svc.Logout(context.Background(), "session-9"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sess.revoked) != 1 || sess.revoked[0] != "session-9" {
		t.Errorf("revoked = %v, want [session-9]", sess.revoked)
	}

	if err := svc.Logout(context.Background(), " "); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Errorf("blank session: err = %v, want unauthorized", err)
	}
}
