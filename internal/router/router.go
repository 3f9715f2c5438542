package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/coursework-api/internal/config"
	"github.com/noah-isme/coursework-api/internal/handler"
	"github.com/noah-isme/coursework-api/internal/middleware"
	"github.com/noah-isme/coursework-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssignmentHandler       *handler.AssignmentHandler
	SubmissionHandler       *handler.SubmissionHandler
	StudentDashboardHandler *handler.StudentDashboardHandler
	ActivityHandler         *handler.ActivityHandler
	HealthProbes            map[string]handler.HealthProbe
	JWTMiddleware           fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	v2 := app.Group("/api/v2", jwtMiddleware)

	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.RegisterCourseRoutes(v2.Group("/courses"))
		deps.AssignmentHandler.Register(v2.Group("/assignments"))
	}

	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.RegisterSubmit(
			v2.Group("/assignments"),
			middleware.RateLimit("submit", cfg.SubmitRateLimit, time.Minute),
		)
		deps.SubmissionHandler.Register(v2.Group("/submissions"))
	}

	if deps.StudentDashboardHandler != nil {
		deps.StudentDashboardHandler.Register(v2.Group("/student"))
	}

	if deps.ActivityHandler != nil {
		admin := v2.Group("/admin", middleware.RequireRole(middleware.AuthRoleAdmin))
		deps.ActivityHandler.Register(admin.Group("/activities"))
	}
}
