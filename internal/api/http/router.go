package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-monitor/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health *handlers.HealthHandler
	SLA    *handlers.SLAHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")
	api.Get("/sla/metrics", cfg.SLA.Metrics)
	api.Post("/sla/run", cfg.SLA.Run)
	api.Post("/tickets/:id/sla/check", cfg.SLA.CheckTicket)
	api.Post("/tickets/:id/sla/reset", cfg.SLA.ResetTicket)
}
