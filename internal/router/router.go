package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/seat-ledger/internal/config"
	"github.com/iliyamo/seat-ledger/internal/handler"
)

// Deps is everything the routes need.  Redis may be nil; the cache and the
// rate limiter then pass requests straight through.
type Deps struct {
	DB        *sql.DB
	Redis     *redis.Client
	Ledger    *handler.LedgerHandler
	JWTSecret string
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Log       *slog.Logger
}

// Setup installs the global middleware chain: request ids, access logging
// and panic recovery.
func Setup(e *echo.Echo, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	e.HideBanner = true
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				"request_id", v.RequestID,
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				log.Error("request", append(attrs, "error", v.Error)...)
				return nil
			}
			log.Info("request", attrs...)
			return nil
		},
	}))
	e.Use(echomw.Recover())
}

// RegisterRoutes registers routes that do not require authentication:
// health, metrics and the plan catalogue.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB, d.Redis))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if d.Ledger != nil {
		e.GET("/v1/plans", d.Ledger.ListPlans, cacheFor(d))
	}
}
