package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Activity       *handlers.ActivityHandler
	Technicians    *handlers.TechniciansHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	staff := auth.RequireStaff()
	workers := auth.RequireRole(domain.RoleAdmin, domain.RoleSupervisor, domain.RoleTechnician)

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/stats", cfg.Tickets.Stats)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/assign", workers, cfg.Tickets.AssignTicket)
	tickets.Patch("/:id/state/:state", cfg.Tickets.ChangeState)
	tickets.Post("/:id/close", staff, cfg.Tickets.CloseTicket)
	tickets.Post("/:id/reject", staff, cfg.Tickets.RejectTicket)
	tickets.Get("/:id/audit", workers, cfg.Tickets.History)
	tickets.Get("/:id/recommend-technician", staff, cfg.Tickets.RecommendTechnician)

	tickets.Get("/:id/comments", cfg.Activity.ListComments)
	tickets.Post("/:id/comments", cfg.Activity.CreateComment)
	tickets.Get("/:id/attachments", cfg.Activity.ListAttachments)
	tickets.Post("/:id/attachments", cfg.Activity.CreateAttachment)
	api.Patch("/comments/:id", cfg.Activity.UpdateComment)
	api.Delete("/comments/:id", cfg.Activity.DeleteComment)
	api.Delete("/attachments/:id", cfg.Activity.DeleteAttachment)

	technicians := api.Group("/technicians", staff)
	technicians.Get("/workload", cfg.Technicians.Workload)
	technicians.Post("/:id/reassign", cfg.Technicians.ReassignAll)

	api.Get("/audit/stats", staff, cfg.Technicians.AuditStats)
}
