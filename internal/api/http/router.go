package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Tickets    *handlers.TicketsHandler
	Complaints *handlers.ComplaintsHandler
	Metrics    *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")

	tickets := api.Group("/chamados")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/categorias", cfg.Tickets.ListCategories)
	tickets.Get("/status", cfg.Tickets.ListStatuses)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/mensagens", cfg.Tickets.AddMessage)

	complaints := api.Group("/reclamacoes")
	complaints.Post("/", cfg.Complaints.CreateComplaint)
	complaints.Get("/", cfg.Complaints.ListComplaints)
	complaints.Get("/status", cfg.Complaints.ListStatuses)
	complaints.Get("/:id", cfg.Complaints.GetComplaint)
	complaints.Put("/:id/status", cfg.Complaints.UpdateStatus)
}
