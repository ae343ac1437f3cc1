package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/connectmarket/session-gateway/internal/api/handler"
	"github.com/connectmarket/session-gateway/internal/api/middleware"
	"github.com/connectmarket/session-gateway/internal/core/domain"
	"github.com/connectmarket/session-gateway/internal/core/ports"
	"github.com/connectmarket/session-gateway/internal/core/service"
	"github.com/connectmarket/session-gateway/internal/infrastructure/identity"
	"github.com/connectmarket/session-gateway/internal/infrastructure/upstream"
)

// Dependencies carries everything the router needs. Cache, Audit, Mongo and
// Redis may be nil; the gateway runs degraded without them.
type Dependencies struct {
	UpstreamURL string
	Bridge      *identity.Bridge
	Cache       upstream.SessionCache
	Audit       ports.AuditSink
	History     ports.AuditHistory
	Mongo       *mongo.Database
	Redis       *redis.Client
	VisitorTTL  time.Duration
	Log         zerolog.Logger
}

// NewRouter builds the Echo instance with all routes registered, plus the
// visitor registry so the caller can start its janitor.
func NewRouter(deps Dependencies) (*echo.Echo, *middleware.VisitorRegistry) {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("session_gateway"))

	// --- Per-visitor session stores ---
	// Each visitor gets a dedicated upstream client so the opaque session
	// cookie never crosses visitors, optionally read-through cached.
	factory := func(visitorID string) ports.SessionStore {
		var api ports.SessionAPI = upstream.NewClient(deps.UpstreamURL)
		if deps.Cache != nil {
			api = upstream.NewCachedClient(api, deps.Cache, visitorID, deps.Log)
		}
		return service.NewSessionStore(api, deps.Audit, deps.Log)
	}
	registry := middleware.NewVisitorRegistry(factory, deps.VisitorTTL, deps.Log)
	e.Use(registry.Middleware())

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.Bridge, deps.Audit, deps.Log)
	e.GET("/api/auth/session", authHandler.Session)
	e.POST("/api/auth/login", authHandler.Login)
	e.POST("/api/auth/register", authHandler.Register)
	e.POST("/api/auth/google", authHandler.Google)
	e.GET("/api/auth/google/button", authHandler.GoogleButton)
	e.POST("/api/auth/logout", authHandler.Logout)
	e.PUT("/api/users/profile", authHandler.UpdateProfile)

	// --- Role-gated surfaces ---
	auditHandler := handler.NewAuditHandler(deps.History, deps.Log)
	e.GET("/admin/audit", auditHandler.RecentForUser, middleware.Guard(domain.RoleAdmin))
	e.GET("/admin/dashboard", dashboardHome, middleware.Guard(domain.RoleAdmin))
	e.GET("/buyer/dashboard", dashboardHome, middleware.Guard(domain.RoleBuyer))
	e.GET("/dashboard", dashboardHome, middleware.Guard(domain.RoleSeller, domain.RoleAdmin))

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readiness := handler.NewReadinessHandler(deps.Mongo, deps.Redis, upstream.NewClient(deps.UpstreamURL))

	e.GET("/health", healthHandler.Liveness)     // liveness  – is the process alive?
	e.GET("/health/ready", readiness.Readiness)  // readiness – are dependencies up?

	// --- Observability & docs ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e, registry
}

// dashboardHome answers for any gated dashboard once the guard has allowed
// the request. The actual dashboard rendering lives in the front end; the
// gateway only proves the gate held.
func dashboardHome(c echo.Context) error {
	store, err := middleware.StoreFrom(c)
	if err != nil {
		return err
	}
	snap := store.Snapshot()
	return c.JSON(http.StatusOK, map[string]any{
		"user": snap.User,
		"role": snap.Role,
	})
}
