package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sales-dashboard/web/pkg/logger"
)

type HealthHandler struct {
	deps map[string]Pinger
}

// NewHealthHandler checks each named dependency on /ready.
func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		deps: deps,
	}
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	checks := fiber.Map{}
	ready := true
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = "unavailable"
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not_ready",
			"checks": checks,
		})
	}

	return c.JSON(fiber.Map{
		"status": "ready",
		"checks": checks,
	})
}
