package handlers

import (
	"context"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readinessTimeout = 2 * time.Second

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	version string
	gateway string
	checks  map[string]Check
}

func NewHealthHandler(version, gatewayName string, checks map[string]Check) *HealthHandler {
	return &HealthHandler{
		version: version,
		gateway: gatewayName,
		checks:  checks,
	}
}

// Liveness only proves the process serves requests.
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": h.version,
		"gateway": h.gateway,
	})
}

// Readiness runs every check and answers 503 when one fails.
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := fiber.StatusOK
	services := fiber.Map{}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			status = fiber.StatusServiceUnavailable
			services[name] = fiber.Map{"status": "down", "error": err.Error()}
			continue
		}
		services[name] = fiber.Map{"status": "up"}
	}

	overall := "ok"
	if status != fiber.StatusOK {
		overall = "unavailable"
	}
	return c.Status(status).JSON(fiber.Map{
		"status":   overall,
		"version":  h.version,
		"services": services,
	})
}
