package api

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hugh/zenshin-chart/internal/api/handlers"
	"github.com/hugh/zenshin-chart/internal/api/middleware"
	"github.com/hugh/zenshin-chart/internal/auth"
	"github.com/hugh/zenshin-chart/internal/charts"
	"github.com/hugh/zenshin-chart/internal/dashboard"
	"github.com/hugh/zenshin-chart/internal/locale"
	"github.com/hugh/zenshin-chart/internal/mailer"
	"github.com/hugh/zenshin-chart/internal/tasks"
	"github.com/hugh/zenshin-chart/internal/web"
	"github.com/hugh/zenshin-chart/internal/workspace"
	"github.com/hugh/zenshin-chart/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB          *gorm.DB
	Redis       *redis.Client
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	JWTService  auth.TokenService
	AuthService *auth.Service
	Workspaces  *workspace.Service
	Charts      *charts.Service
	Dashboard   *dashboard.Service
	Resolver    *locale.Resolver
	Mailer      *mailer.Service
	// Provider is nil when OAuth sign-in is not configured.
	Provider auth.IdentityProvider
	// Enqueuer is nil when Redis is unavailable.
	Enqueuer       tasks.Enqueuer
	Templates      web.Templates
	StaticFS       fs.FS
	RateLimiter    *middleware.RateLimiter
	AllowedOrigins []string // CORS allowed origins
	BaseURL        string
	AppName        string
	SecureCookies  bool
	SessionTTL     time.Duration
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(cfg.Metrics.Middleware)

	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter, middleware.ByIP))
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.Locale(cfg.Resolver))
	r.Use(middleware.CSRF(cfg.SecureCookies))

	cookies := handlers.CookieOptions{Secure: cfg.SecureCookies, MaxAge: cfg.SessionTTL}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.Resolver, cookies)
	oauthHandler := handlers.NewOAuthHandler(cfg.Provider, cfg.AuthService, cfg.Workspaces, cookies, cfg.Logger)
	userHandler := handlers.NewUserHandler(cfg.AuthService, cfg.Workspaces, cfg.Resolver, cookies, cfg.Logger)
	workspaceHandler := handlers.NewWorkspaceHandler(cfg.Workspaces, cfg.Logger)
	memberHandler := handlers.NewMemberHandler(cfg.Workspaces, cfg.Logger)
	invitationHandler := handlers.NewInvitationHandler(cfg.Workspaces, cfg.AuthService, cfg.Mailer, cfg.Resolver, cfg.BaseURL, cfg.Logger)
	dashboardHandler := handlers.NewDashboardHandler(cfg.Dashboard, cfg.Logger)
	chartHandler := handlers.NewChartHandler(cfg.Charts, cfg.Enqueuer, cfg.Metrics, cfg.Logger)
	pageHandler := handlers.NewPageHandler(handlers.PageConfig{
		Templates:    cfg.Templates,
		Workspaces:   cfg.Workspaces,
		Charts:       cfg.Charts,
		Dashboard:    cfg.Dashboard,
		AppName:      cfg.AppName,
		OAuthEnabled: oauthHandler.Enabled(),
		Logger:       cfg.Logger,
	})

	requireAuth := middleware.Auth(cfg.JWTService)
	requireMember := middleware.WorkspaceMember(cfg.Workspaces, cfg.Logger)
	userLocale := middleware.UserLocale(cfg.Resolver, cfg.AuthService)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	// OAuth round trip
	r.Get("/auth/login/oauth", oauthHandler.Login)
	r.Get("/auth/callback", oauthHandler.Callback)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/invitations/{code}", invitationHandler.Show)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, userLocale)
			// Signed-in callers also get a per-user budget that survives IP changes.
			if cfg.RateLimiter != nil {
				r.Use(middleware.RateLimit(cfg.RateLimiter, middleware.ByUser))
			}

			r.Get("/me", authHandler.Me)
			r.Patch("/user/locale", userHandler.UpdateLocale)
			r.Put("/user/preferred-workspace", userHandler.SetPreferredWorkspace)
			r.Post("/invitations/{code}/accept", invitationHandler.Accept)

			r.Get("/workspaces", workspaceHandler.List)
			r.Post("/workspaces", workspaceHandler.Create)
			r.Get("/workspaces/landing", workspaceHandler.Landing)

			r.Route("/workspaces/{workspaceID}", func(r chi.Router) {
				r.Use(requireMember)

				r.Get("/", workspaceHandler.Get)
				r.Patch("/", workspaceHandler.Update)
				r.Delete("/", workspaceHandler.Delete)

				r.Get("/members", memberHandler.List)
				r.Patch("/members/{userID}", memberHandler.UpdateRole)
				r.Delete("/members/{userID}", memberHandler.Remove)

				r.Get("/invitations", invitationHandler.List)
				r.Post("/invitations", invitationHandler.CreateLink)
				r.Post("/invitations/email", invitationHandler.SendEmail)
				r.Delete("/invitations/{invitationID}", invitationHandler.Revoke)

				r.Get("/dashboard", dashboardHandler.Summary)

				r.Get("/charts", chartHandler.List)
				r.Post("/charts", chartHandler.Create)
				r.Route("/charts/{chartID}", func(r chi.Router) {
					r.Get("/", chartHandler.Get)
					r.Patch("/", chartHandler.Update)
					r.Delete("/", chartHandler.Delete)
					r.Post("/export", chartHandler.Export)

					r.Get("/areas", chartHandler.ListAreas)
					r.Post("/areas", chartHandler.CreateArea)
					r.Put("/areas/order", chartHandler.ReorderAreas)
					r.Patch("/areas/{areaID}", chartHandler.UpdateArea)
					r.Delete("/areas/{areaID}", chartHandler.DeleteArea)

					for _, kind := range []charts.Kind{charts.KindVision, charts.KindReality, charts.KindTension, charts.KindAction} {
						r.Post("/"+string(kind), chartHandler.CreateItem(kind))
						r.Patch("/"+string(kind)+"/{itemID}", chartHandler.UpdateItem(kind))
						r.Delete("/"+string(kind)+"/{itemID}", chartHandler.DeleteItem(kind))
					}
					r.Post("/actions/{itemID}/toggle", chartHandler.ToggleAction)

					r.Get("/comments", chartHandler.ListComments)
					r.Post("/comments", chartHandler.CreateComment)
				})
			})
		})
	})

	// Web pages
	r.Get("/login", pageHandler.Login)
	r.With(middleware.OptionalAuth(cfg.JWTService), userLocale).Get("/invite/{code}", pageHandler.Invite)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth, userLocale)
		r.Get("/", http.RedirectHandler("/workspaces", http.StatusFound).ServeHTTP)
		r.Get("/workspaces", pageHandler.Workspaces)
		r.With(requireMember).Get("/w/{workspaceID}", pageHandler.Workspace)
		r.Post("/invite/{code}/join", pageHandler.Join)
		r.Get("/invite/{code}/join", pageHandler.JoinRedirect)
	})

	// Static files
	if cfg.StaticFS != nil {
		fileServer := http.FileServer(http.FS(cfg.StaticFS))
		r.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	return &Router{r}
}
