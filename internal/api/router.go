package api

import (
	"context"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/quantara/console/internal/api/handler"
	"github.com/quantara/console/internal/api/middleware"
	"github.com/quantara/console/internal/core/access"
	"github.com/quantara/console/internal/core/domain"
	"github.com/quantara/console/internal/core/ports"
	"github.com/quantara/console/internal/core/session"
	"github.com/quantara/console/internal/infrastructure/db/redis"
	"github.com/quantara/console/internal/infrastructure/http/handlers"
)

const contentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' 'unsafe-inline' 'unsafe-eval' https://cdn.jsdelivr.net; " +
	"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; " +
	"font-src 'self' https://fonts.gstatic.com; " +
	"img-src 'self' data: https:; " +
	"connect-src 'self' https://*.supabase.co"

// Sessions is the registry of browser Session Contexts.
type Sessions interface {
	Get(ctx context.Context, sid string) (*session.Context, error)
	Ephemeral(ctx context.Context, accessToken string) *session.Context
	Anonymous(ctx context.Context) *session.Context
	Drop(sid string)
}

// Limits are the per-IP request budgets of each route group.
type Limits struct {
	SignUp  redis.Limit
	Login   redis.Limit
	Admin   redis.Limit
	General redis.Limit
}

// Deps carries everything the router wires into handlers.
type Deps struct {
	Log          zerolog.Logger
	Production   bool
	SiteName     string
	JWTSecret    string
	Sessions     Sessions
	CookieSecure bool
	SessionTTL   time.Duration
	Limiter      middleware.Limiter
	Limits       Limits
	Strategy     string

	Auth         ports.AuthService
	Bootstrap    ports.BootstrapService
	Confirmation ports.ConfirmationService
	Promotion    ports.PromotionService
	Applications ports.ApplicationService
	Admin        ports.AdminService

	Health *handlers.HealthHandler

	// Registerer receives the HTTP metrics; nil means the default registry.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echomiddleware.SecureWithConfig(secureConfig(d.Production)))
	e.Use(echomiddleware.BodyLimit("1M"))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "console",
		Registerer: d.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/auth/session/stream"
		},
	}))

	// --- Operational endpoints (no session) ---
	e.GET("/health", d.Health.Liveness)
	e.GET("/health/ready", d.Health.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Session-aware routes ---
	web := []echo.MiddlewareFunc{
		middleware.RateLimit(d.Limiter, "general", d.Limits.General, d.Log),
		middleware.Auth(d.JWTSecret),
		middleware.Session(middleware.SessionConfig{
			Registry: d.Sessions,
			TTL:      d.SessionTTL,
			Secure:   d.CookieSecure,
			Log:      d.Log,
		}),
	}
	with := func(extra ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
		return append(append([]echo.MiddlewareFunc{}, web...), extra...)
	}
	limit := func(scope string, l redis.Limit) echo.MiddlewareFunc {
		return middleware.RateLimit(d.Limiter, scope, l, d.Log)
	}

	views := handler.NewViewHandler(d.SiteName)
	authHandler := handler.NewAuthHandler(d.Auth, d.Sessions, d.Log)
	setupHandler := handler.NewSetupHandler(d.Bootstrap, d.Strategy)
	confirmHandler := handler.NewConfirmHandler(d.Confirmation)
	applicationHandler := handler.NewApplicationHandler(d.Applications)
	adminHandler := handler.NewAdminHandler(d.Promotion, d.Applications, d.Admin)

	// Public pages
	e.GET("/", views.Index, web...)
	e.GET(access.SignInPath, views.SignIn, web...)
	e.GET(access.UnauthorizedPath, views.Unauthorized, web...)

	// Auth
	e.POST("/auth/signup", authHandler.SignUp, with(limit("signup", d.Limits.SignUp))...)
	e.POST("/auth/signin", authHandler.SignIn, with(limit("login", d.Limits.Login))...)
	e.POST("/auth/signout", authHandler.SignOut, web...)
	e.GET("/auth/session", authHandler.Session, web...)
	e.GET("/auth/session/stream", authHandler.Stream, web...)

	// First-admin setup and email confirmation
	e.GET("/admin-setup", setupHandler.Status, web...)
	e.POST("/admin-setup", setupHandler.Bootstrap, with(limit("signup", d.Limits.SignUp))...)
	e.GET("/confirm", confirmHandler.Inspect, web...)
	e.POST("/confirm", confirmHandler.Confirm, with(limit("login", d.Limits.Login))...)

	// Public application form
	e.POST("/applications", applicationHandler.Submit, with(limit("applications", d.Limits.SignUp))...)

	// Guarded views
	e.GET("/dashboard", views.Protected("dashboard"),
		with(middleware.Guard("dashboard", access.RequireAnyOf(domain.RoleClient, domain.RoleMember, domain.RoleAdmin)))...)
	e.GET("/studio", views.Protected("studio"),
		with(middleware.Guard("studio", access.RequireAnyOf(domain.RoleMember, domain.RoleAdmin)))...)

	// Admin console
	admin := e.Group("/admin", with(
		limit("admin", d.Limits.Admin),
		middleware.Guard("admin", access.RequireRole(domain.RoleAdmin)),
	)...)
	admin.GET("", views.Protected("admin"))
	admin.GET("/overview", adminHandler.Overview)
	admin.GET("/users", adminHandler.Users)
	admin.GET("/applications", adminHandler.Applications)
	admin.POST("/applications/:id/approve", adminHandler.Approve)
	admin.POST("/applications/:id/reject", adminHandler.Reject)
	admin.POST("/promote", adminHandler.Promote)
	admin.GET("/audit", adminHandler.Audit)

	return e
}

func secureConfig(production bool) echomiddleware.SecureConfig {
	cfg := echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ContentSecurityPolicy: contentSecurityPolicy,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}
	if production {
		cfg.HSTSMaxAge = 31536000
	}
	return cfg
}

// requestLogger feeds echo's request logging into zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			var ev *zerolog.Event
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			} else {
				ev = log.Info()
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
