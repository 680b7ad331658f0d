package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/academy-uk/exam-grader-api/internal/config"
	"github.com/academy-uk/exam-grader-api/internal/handler"
	"github.com/academy-uk/exam-grader-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ExamHandler *handler.ExamHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	if deps.ExamHandler != nil {
		// Registered at the root to keep the original form action path.
		deps.ExamHandler.Register(app)
	}
}
