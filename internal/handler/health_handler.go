package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/academy-uk/exam-grader-api/internal/config"
	"github.com/academy-uk/exam-grader-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	AIEnabled   bool      `json:"ai_enabled"`
}

// HealthCheck returns a handler that reports application health information,
// including whether the service runs with live providers or in fallback mode.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			AIEnabled:   cfg.AIEnabled(),
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
