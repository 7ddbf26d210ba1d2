package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tilldesk/tilldesk-backend/api/controllers"
	"github.com/tilldesk/tilldesk-backend/api/middleware"
	"github.com/tilldesk/tilldesk-backend/internal/audit"
	"github.com/tilldesk/tilldesk-backend/internal/auth"
	"github.com/tilldesk/tilldesk-backend/internal/brands"
	"github.com/tilldesk/tilldesk-backend/internal/companies"
	"github.com/tilldesk/tilldesk-backend/internal/grants"
	"github.com/tilldesk/tilldesk-backend/internal/shops"
	"github.com/tilldesk/tilldesk-backend/internal/teams"
	"github.com/tilldesk/tilldesk-backend/pkg/auth/session"
	"github.com/tilldesk/tilldesk-backend/pkg/config"
	"github.com/tilldesk/tilldesk-backend/pkg/db"
	"github.com/tilldesk/tilldesk-backend/pkg/enums"
	"github.com/tilldesk/tilldesk-backend/pkg/logger"
	"github.com/tilldesk/tilldesk-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Deps collects everything the HTTP surface needs.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          *redis.Client
	Sessions       sessionManager
	Gate           *middleware.ScopeGate
	AuthService    auth.Service
	Companies      companies.Service
	Brands         brands.Service
	Shops          shops.Service
	Teams          teams.Service
	Grants         grants.Service
	Audit          audit.Service
	MetricsHandler http.Handler
}

// NewRouter assembles the chi router. Every scoped route group passes
// through the hierarchy gate before its handlers run.
func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger
	gate := d.Gate

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins...),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, d.Redis))
	})

	if d.MetricsHandler != nil {
		r.Handle("/metrics", d.MetricsHandler)
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).Post("/login", controllers.AuthLogin(d.AuthService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, d.Redis, logg)).Post("/register", controllers.AuthRegister(d.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.AuthService, logg))
		r.With(middleware.Auth(cfg.JWT, d.Sessions, logg)).Post("/logout", controllers.AuthLogout(d.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/me", func(r chi.Router) {
			r.Get("/grants", controllers.MyGrants(d.Grants, logg))
			r.Get("/audit", controllers.AuditListForUser(d.Audit, logg))
		})

		r.Route("/companies", func(r chi.Router) {
			r.Get("/", controllers.CompanyListMine(d.Companies, logg))
			r.Post("/", controllers.CompanyCreate(d.Companies, logg))

			r.Route("/{companyID}", func(r chi.Router) {
				viewer := gate.RequireScopeRole(enums.ScopeCompany, "companyID", enums.RoleViewer)
				admin := gate.RequireScopeRole(enums.ScopeCompany, "companyID", enums.RoleCompanyAdmin)
				owner := gate.RequireScopeRole(enums.ScopeCompany, "companyID", enums.RoleOwner)

				r.With(viewer).Get("/", controllers.CompanyGet(d.Companies, logg))
				r.With(viewer).Get("/access", controllers.EffectiveAccess(logg))
				r.With(admin).Put("/", controllers.CompanyUpdate(d.Companies, logg))
				r.With(owner).Delete("/", controllers.CompanyDeactivate(d.Companies, logg))

				r.With(viewer).Get("/brands", controllers.BrandList(d.Brands, logg))
				r.With(admin).Post("/brands", controllers.BrandCreate(d.Brands, logg))

				r.With(admin).Get("/grants", controllers.GrantList(d.Grants, enums.ScopeCompany, "companyID", logg))
				r.With(admin).Post("/grants", controllers.GrantCreate(d.Grants, enums.ScopeCompany, "companyID", logg))
				r.With(admin).Delete("/grants/{grantID}", controllers.GrantRevoke(d.Grants, enums.ScopeCompany, "companyID", logg))
				r.With(admin).Post("/invitations", controllers.InvitationCreate(d.Teams, enums.ScopeCompany, "companyID", logg))
				r.With(owner).Get("/audit", controllers.AuditListForScope(d.Audit, enums.ScopeCompany, "companyID", logg))
			})
		})

		r.Route("/brands/{brandID}", func(r chi.Router) {
			viewer := gate.RequireScopeRole(enums.ScopeBrand, "brandID", enums.RoleViewer)
			admin := gate.RequireScopeRole(enums.ScopeBrand, "brandID", enums.RoleBrandAdmin)

			r.With(viewer).Get("/", controllers.BrandGet(d.Brands, logg))
			r.With(viewer).Get("/access", controllers.EffectiveAccess(logg))
			r.With(admin).Put("/", controllers.BrandUpdate(d.Brands, logg))
			r.With(admin).Delete("/", controllers.BrandDeactivate(d.Brands, logg))

			r.With(viewer).Get("/shops", controllers.ShopList(d.Shops, logg))
			r.With(admin).Post("/shops", controllers.ShopCreate(d.Shops, logg))

			r.With(admin).Get("/grants", controllers.GrantList(d.Grants, enums.ScopeBrand, "brandID", logg))
			r.With(admin).Post("/grants", controllers.GrantCreate(d.Grants, enums.ScopeBrand, "brandID", logg))
			r.With(admin).Delete("/grants/{grantID}", controllers.GrantRevoke(d.Grants, enums.ScopeBrand, "brandID", logg))
			r.With(admin).Post("/invitations", controllers.InvitationCreate(d.Teams, enums.ScopeBrand, "brandID", logg))
			r.With(admin).Get("/audit", controllers.AuditListForScope(d.Audit, enums.ScopeBrand, "brandID", logg))
		})

		r.Route("/shops/{shopID}", func(r chi.Router) {
			viewer := gate.RequireScopeRole(enums.ScopeShop, "shopID", enums.RoleViewer)
			manager := gate.RequireScopeRole(enums.ScopeShop, "shopID", enums.RoleShopManager)

			r.With(viewer).Get("/", controllers.ShopGet(d.Shops, logg))
			r.With(viewer).Get("/access", controllers.EffectiveAccess(logg))
			r.With(manager).Put("/", controllers.ShopUpdate(d.Shops, logg))
			r.With(manager).Delete("/", controllers.ShopDeactivate(d.Shops, logg))

			r.With(manager).Get("/grants", controllers.GrantList(d.Grants, enums.ScopeShop, "shopID", logg))
			r.With(manager).Post("/grants", controllers.GrantCreate(d.Grants, enums.ScopeShop, "shopID", logg))
			r.With(manager).Delete("/grants/{grantID}", controllers.GrantRevoke(d.Grants, enums.ScopeShop, "shopID", logg))
			r.With(manager).Post("/invitations", controllers.InvitationCreate(d.Teams, enums.ScopeShop, "shopID", logg))
			r.With(manager).Get("/audit", controllers.AuditListForScope(d.Audit, enums.ScopeShop, "shopID", logg))
		})

		r.Route("/teams", func(r chi.Router) {
			r.Post("/", controllers.TeamCreate(d.Teams, logg))
			r.Route("/{teamID}", func(r chi.Router) {
				r.Get("/", controllers.TeamGet(d.Teams, logg))
				r.Get("/members", controllers.TeamMembersList(d.Teams, logg))
				r.Post("/members", controllers.TeamMemberAdd(d.Teams, logg))
				r.Delete("/members/{userID}", controllers.TeamMemberRemove(d.Teams, logg))
			})
		})

		r.Route("/invitations", func(r chi.Router) {
			r.Post("/accept", controllers.InvitationAccept(d.Teams, logg))
			r.Post("/revoke", controllers.InvitationRevoke(d.Teams, logg))
		})
	})

	return r
}
