// Package routes defines the HTTP routing configuration. The billing core
// exposes only operational endpoints.
package routes

import (
	"plans/internal/handlers"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes registers the probes.
func SetupRoutes(app *fiber.App, health *handlers.HealthHandler) {
	app.Get("/health", health.Liveness)
	app.Get("/health/ready", health.Readiness)
}
