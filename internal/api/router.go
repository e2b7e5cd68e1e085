package api

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/nicestack/user-service/internal/api/handler"
	"github.com/nicestack/user-service/internal/api/middleware"
	"github.com/nicestack/user-service/internal/core/domain"
	"github.com/nicestack/user-service/internal/core/ports"
	"github.com/nicestack/user-service/internal/infrastructure/http/handlers"
)

// Deps is everything the router needs to build the HTTP surface.
type Deps struct {
	Log          zerolog.Logger
	AuthService  ports.AuthService
	UserService  ports.UserService
	Guard        *middleware.Guard
	Dependencies []handlers.Dependency

	// AuthRateLimit is the sustained requests per second allowed per client
	// IP on the unauthenticated auth routes; zero disables limiting.
	AuthRateLimit float64
	AuthRateBurst int

	// Registry receives the HTTP metrics. Nil means the default registry.
	Registry *prometheus.Registry
}

var (
	anyRole   = []domain.Role{domain.RoleUser, domain.RoleAdmin}
	adminOnly = []domain.Role{domain.RoleAdmin}
)

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
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: registerer(d.Registry),
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Path(), "/health") || c.Path() == "/metrics"
		},
	}))

	authHandler := handler.NewAuthHandler(d.AuthService)
	userHandler := handler.NewUserHandler(d.UserService)
	limited := authRateLimiter(d.AuthRateLimit, d.AuthRateBurst)
	g := d.Guard

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register, limited...)
	e.GET("/auth/confirm/:token", authHandler.Confirm)
	e.POST("/auth/login", authHandler.Login, limited...)
	e.GET("/auth/refresh", authHandler.Refresh, g.RequireRefresh(anyRole...))
	e.GET("/auth/logout", authHandler.Logout, g.Require(anyRole...))
	e.GET("/auth/forgot", authHandler.Forgot, limited...)
	e.GET("/auth/reset/:token", authHandler.Reset, limited...)

	// --- User directory ---
	users := e.Group("/users")
	users.GET("", userHandler.List, g.Require(adminOnly...))
	users.GET("/filter/query", userHandler.Filter, g.Require(adminOnly...))
	users.GET("/me", userHandler.Me, g.Require(anyRole...))
	users.GET("/:id", userHandler.Get, g.Require(adminOnly...))
	users.PUT("/pass", authHandler.ChangePassword, g.Require(anyRole...))
	users.PUT("/photo", userHandler.SetPhoto, g.Require(anyRole...))
	users.PUT("/role/:id", userHandler.UpdateRole, g.Require(adminOnly...))
	users.PUT("/status/:id", userHandler.UpdateStatus, g.Require(adminOnly...))
	users.PUT("/:id", userHandler.Update, g.Require(anyRole...))
	users.DELETE("/:id", userHandler.Delete, g.Require(adminOnly...))

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(d.Log, d.Dependencies...)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", metricsHandler(d.Registry))

	return e
}

func registerer(reg *prometheus.Registry) prometheus.Registerer {
	if reg == nil {
		return prometheus.DefaultRegisterer
	}
	return reg
}

func metricsHandler(reg *prometheus.Registry) echo.HandlerFunc {
	if reg == nil {
		return echoprometheus.NewHandler()
	}
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg})
}

// authRateLimiter throttles unauthenticated auth routes per client IP.
func authRateLimiter(limit float64, burst int) []echo.MiddlewareFunc {
	if limit <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = max(1, int(math.Ceil(limit)))
	}
	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(limit),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return []echo.MiddlewareFunc{echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
		},
	})}
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
