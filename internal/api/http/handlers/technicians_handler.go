package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/domain"
)

// TechniciansHandler serves workload reporting and bulk reassignment.
type TechniciansHandler struct {
	assignment AssignmentOperations
	audit      AuditQueries
}

// NewTechniciansHandler constructs handler.
func NewTechniciansHandler(assignment AssignmentOperations, audit AuditQueries) *TechniciansHandler {
	return &TechniciansHandler{assignment: assignment, audit: audit}
}

// Workload GET /technicians/workload.
func (h *TechniciansHandler) Workload(c *fiber.Ctx) error {
	report, err := h.assignment.WorkloadReport(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.WorkloadResponse, 0, len(report))
	for _, row := range report {
		tickets := make([]dto.TicketResponse, 0, len(row.Tickets))
		for i := range row.Tickets {
			tickets = append(tickets, ticketResponse(&row.Tickets[i]))
		}
		items = append(items, dto.WorkloadResponse{
			TechnicianSummary: dto.TechnicianSummary{
				ID:          row.TechnicianID,
				Name:        row.Name,
				Email:       row.Email,
				ActiveCount: row.ActiveCount,
			},
			Tickets: tickets,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ReassignAll POST /technicians/:id/reassign.
func (h *TechniciansHandler) ReassignAll(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.ReassignRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	moved, err := h.assignment.ReassignAll(c.UserContext(), c.Params("id"), req.ToTechnicianID, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ReassignResponse{Moved: moved}})
}

// AuditStats GET /audit/stats?from=&to=.
func (h *TechniciansHandler) AuditStats(c *fiber.Ctx) error {
	var (
		filter domain.AuditFilter
		err    error
	)
	if filter.From, err = parseTime("from", c.Query("from")); err != nil {
		return err
	}
	if filter.To, err = parseTime("to", c.Query("to")); err != nil {
		return err
	}
	stats, err := h.audit.Statistics(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuditStatsResponse{
		Total:    stats.Total,
		ByAction: stats.ByAction,
		Recent:   auditResponses(stats.Recent),
	}})
}
