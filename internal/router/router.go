package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/asset-review-api/internal/config"
	"github.com/noah-isme/asset-review-api/internal/handler"
	"github.com/noah-isme/asset-review-api/internal/middleware"
	"github.com/noah-isme/asset-review-api/internal/observability"
	"github.com/noah-isme/asset-review-api/internal/service"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ReviewHandler          *handler.ReviewHandler
	AssetTypeHandler       *handler.AssetTypeHandler
	AuthHandler            *handler.AuthHandler
	AdminAssetTypeHandler  *handler.AdminAssetTypeHandler
	AdminSubmissionHandler *handler.AdminSubmissionHandler
	AdminDashboardHandler  *handler.AdminDashboardHandler
	AdminSettingsHandler   *handler.AdminSettingsHandler
	HealthProbes           map[string]handler.HealthProbe
	// ReviewLimiter overrides the default per-IP limiter on /api/review.
	ReviewLimiter fiber.Handler
	// DisableMetricsRoute skips mounting /metrics.
	DisableMetricsRoute bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	if !deps.DisableMetricsRoute {
		app.Get("/metrics", observability.MetricsHandler())
	}

	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	if deps.ReviewHandler != nil {
		limiter := deps.ReviewLimiter
		if limiter == nil {
			limiter = middleware.RateLimit("review", cfg.ReviewRateMax, cfg.ReviewRateSpan)
		}
		deps.ReviewHandler.Register(api, limiter)
	}

	if deps.AssetTypeHandler != nil {
		deps.AssetTypeHandler.Register(api)
	}

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"), middleware.RateLimit("login", 10, time.Minute))
	}

	admin := api.Group("/admin", middleware.JWTProtected(cfg.JWTSecret), middleware.RequireRole(service.AdminRole))

	if deps.AdminAssetTypeHandler != nil {
		deps.AdminAssetTypeHandler.Register(admin.Group("/asset-types"))
	}

	if deps.AdminSubmissionHandler != nil {
		deps.AdminSubmissionHandler.Register(admin.Group("/submissions"))
	}

	if deps.AdminDashboardHandler != nil {
		deps.AdminDashboardHandler.Register(admin)
	}

	if deps.AdminSettingsHandler != nil {
		deps.AdminSettingsHandler.Register(admin.Group("/settings"))
	}
}
