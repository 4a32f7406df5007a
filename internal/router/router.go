package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/arahkita/arah-go-api/internal/config"
	"github.com/arahkita/arah-go-api/internal/handler"
	"github.com/arahkita/arah-go-api/internal/middleware"
	"github.com/arahkita/arah-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	RoadmapHandler    *handler.RoadmapHandler
	GenerationHandler *handler.GenerationHandler
	TemplateHandler   *handler.TemplateHandler
	PreferenceHandler *handler.PreferenceHandler
	RealtimeHandler   *handler.RealtimeHandler
	SessionMiddleware fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	sessionMiddleware := deps.SessionMiddleware
	if sessionMiddleware == nil {
		sessionMiddleware = middleware.Session(cfg.JWTSecret)
	}

	if deps.RoadmapHandler != nil {
		roadmaps := app.Group("/api/v1/roadmaps", sessionMiddleware)
		deps.RoadmapHandler.Register(roadmaps)
	}

	if deps.GenerationHandler != nil {
		// Generation is the expensive path; rate limit it per caller.
		generate := app.Group("/api/v1/generate", sessionMiddleware, middleware.RateLimit("generate", 5, time.Minute))
		deps.GenerationHandler.Register(generate)
	}

	if deps.TemplateHandler != nil {
		templates := app.Group("/api/v1/templates", sessionMiddleware)
		deps.TemplateHandler.Register(templates)
	}

	if deps.PreferenceHandler != nil {
		preferences := app.Group("/api/v1/preferences", sessionMiddleware)
		deps.PreferenceHandler.Register(preferences)
	}

	if deps.RealtimeHandler != nil {
		realtimeGroup := app.Group("/api/v1/realtime", sessionMiddleware)
		deps.RealtimeHandler.Register(realtimeGroup)
	}
}
