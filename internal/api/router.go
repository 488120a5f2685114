package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/meterline/subscription-service/docs"
	"github.com/meterline/subscription-service/internal/api/handler"
	"github.com/meterline/subscription-service/internal/api/middleware"
	"github.com/meterline/subscription-service/internal/core/ports"
)

const (
	metricsSubsystem = "http"
	apiBodyLimit     = "64K"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	JWTSecret        string
	MonthlyLimit     int64
	DefaultIncrement int64

	Verifier   ports.EventVerifier
	Reconciler ports.ReconcileService
	Accounts   ports.AccountService
	Usage      ports.UsageService
	Billing    ports.BillingService

	Mongo *mongo.Database
	Redis *redis.Client // nil when the event ledger is disabled

	// Registry defaults to the global Prometheus registry.
	Registry *prometheus.Registry
	Log      zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	// Nothing here may consume the request body; /webhook verifies the raw bytes.
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(prometheusMiddleware(d.Registry))

	// --- Webhook (provider signature, no JWT) ---
	webhookHandler := handler.NewWebhookHandler(d.Verifier, d.Reconciler, d.Log)
	e.POST("/webhook", webhookHandler.Receive)

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(d.Accounts, d.Log)
	auth := e.Group("/auth", echomiddleware.BodyLimit(apiBodyLimit))
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/password/forgot", authHandler.ForgotPassword)
	auth.POST("/password/reset", authHandler.ResetPassword)

	// --- Authenticated API ---
	usageHandler := handler.NewUsageHandler(d.Usage, d.MonthlyLimit, d.DefaultIncrement)
	subscriptionHandler := handler.NewSubscriptionHandler(d.Billing)

	authMiddleware := middleware.Auth(d.JWTSecret)

	v1 := e.Group("/v1", echomiddleware.BodyLimit(apiBodyLimit))
	v1.GET("/usage", usageHandler.Get, authMiddleware)
	v1.POST("/usage/increment", usageHandler.Increment, authMiddleware)
	v1.GET("/subscription", subscriptionHandler.Status, authMiddleware)
	v1.POST("/subscription/checkout", subscriptionHandler.Checkout, authMiddleware)
	v1.POST("/subscription/cancel", subscriptionHandler.Cancel, authMiddleware)
	v1.POST("/donations", subscriptionHandler.Donate, middleware.OptionalAuth(d.JWTSecret))

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(d.Mongo, d.Redis)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	// --- Ops ---
	e.GET("/metrics", metricsHandler(d.Registry))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func prometheusMiddleware(reg *prometheus.Registry) echo.MiddlewareFunc {
	cfg := echoprometheus.MiddlewareConfig{
		Subsystem: metricsSubsystem,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}
	if reg != nil {
		cfg.Registerer = reg
	}
	return echoprometheus.NewMiddlewareWithConfig(cfg)
}

func metricsHandler(reg *prometheus.Registry) echo.HandlerFunc {
	if reg == nil {
		return echoprometheus.NewHandler()
	}
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg})
}

// requestLogger emits one structured line per request through zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil || v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
