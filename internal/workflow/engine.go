package workflow

import (
	"fmt"
	"math"
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

type edge struct {
	from domain.TicketStatus
	to   domain.TicketStatus
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusAssigned, domain.TicketStatusRejected, domain.TicketStatusClosed},
	domain.TicketStatusAssigned:   {domain.TicketStatusInProgress, domain.TicketStatusOpen, domain.TicketStatusRejected},
	domain.TicketStatusInProgress: {domain.TicketStatusInReview, domain.TicketStatusAssigned, domain.TicketStatusRejected},
	domain.TicketStatusInReview:   {domain.TicketStatusClosed, domain.TicketStatusInProgress, domain.TicketStatusRejected},
	domain.TicketStatusClosed:     {},
	domain.TicketStatusRejected:   {domain.TicketStatusOpen},
}

var (
	supervisorOnly     = []domain.Role{domain.RoleSupervisor}
	supervisorAndTechs = []domain.Role{domain.RoleSupervisor, domain.RoleTechnician}
)

// ADMIN is absent from every entry because it bypasses the matrix.
var edgeRoles = map[edge][]domain.Role{
	{domain.TicketStatusOpen, domain.TicketStatusAssigned}: supervisorAndTechs,
	{domain.TicketStatusOpen, domain.TicketStatusRejected}: supervisorOnly,
	{domain.TicketStatusOpen, domain.TicketStatusClosed}:   supervisorOnly,

	{domain.TicketStatusAssigned, domain.TicketStatusInProgress}: supervisorAndTechs,
	{domain.TicketStatusAssigned, domain.TicketStatusOpen}:       supervisorOnly,
	{domain.TicketStatusAssigned, domain.TicketStatusRejected}:   supervisorOnly,

	{domain.TicketStatusInProgress, domain.TicketStatusInReview}: supervisorAndTechs,
	{domain.TicketStatusInProgress, domain.TicketStatusAssigned}: supervisorAndTechs,
	{domain.TicketStatusInProgress, domain.TicketStatusRejected}: supervisorOnly,

	{domain.TicketStatusInReview, domain.TicketStatusClosed}:     supervisorOnly,
	{domain.TicketStatusInReview, domain.TicketStatusInProgress}: supervisorOnly,
	{domain.TicketStatusInReview, domain.TicketStatusRejected}:   supervisorOnly,

	{domain.TicketStatusRejected, domain.TicketStatusOpen}: supervisorOnly,
}

var slaHours = map[domain.TicketPriority]int{
	domain.TicketPriorityUrgent: 4,
	domain.TicketPriorityHigh:   24,
	domain.TicketPriorityMedium: 48,
	domain.TicketPriorityLow:    72,
}

const defaultSLAHours = 72

var transitionMessages = map[edge]string{
	{domain.TicketStatusOpen, domain.TicketStatusAssigned}:       "Ticket assigned to technician",
	{domain.TicketStatusAssigned, domain.TicketStatusInProgress}: "Technician started working on the ticket",
	{domain.TicketStatusInProgress, domain.TicketStatusInReview}: "Ticket under review",
	{domain.TicketStatusInReview, domain.TicketStatusClosed}:     "Ticket closed",
	{domain.TicketStatusOpen, domain.TicketStatusRejected}:       "Ticket rejected",
	{domain.TicketStatusRejected, domain.TicketStatusOpen}:       "Ticket reopened",
}

// Engine decides which status transitions are valid and who may perform
// them. It holds no state and is safe for concurrent use.
type Engine struct{}

// NewEngine returns a workflow engine.
func NewEngine() *Engine {
	return &Engine{}
}

// ValidateTransition fails with INVALID_TRANSITION unless current->next is
// an edge of the state table. Identity transitions always pass.
func (e *Engine) ValidateTransition(current, next domain.TicketStatus) error {
	if current == next {
		return nil
	}
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return nil
		}
	}
	return apperrors.NewInvalidTransition(string(current), string(next))
}

// ValidatePermission checks that role may trigger current->next. A
// technician must additionally be the ticket's assigned technician.
func (e *Engine) ValidatePermission(current, next domain.TicketStatus, role domain.Role, isAssignedTechnician bool) error {
	if current == next {
		return nil
	}
	if role == domain.RoleAdmin {
		return nil
	}
	details := map[string]any{"from": string(current), "to": string(next), "role": string(role)}
	allowed, ok := edgeRoles[edge{current, next}]
	if !ok {
		return apperrors.NewForbiddenWithDetails(
			fmt.Sprintf("no role may move a ticket from %s to %s", current, next), details)
	}
	if role == domain.RoleTechnician && !isAssignedTechnician {
		return apperrors.NewForbiddenWithDetails("only the assigned technician can change this ticket", details)
	}
	for _, candidate := range allowed {
		if candidate == role {
			return nil
		}
	}
	return apperrors.NewForbiddenWithDetails(
		fmt.Sprintf("role %s may not move a ticket from %s to %s", role, current, next), details)
}

// Validate runs ValidateTransition and then ValidatePermission.
func (e *Engine) Validate(current, next domain.TicketStatus, role domain.Role, isAssignedTechnician bool) error {
	if err := e.ValidateTransition(current, next); err != nil {
		return err
	}
	return e.ValidatePermission(current, next, role, isAssignedTechnician)
}

// NextStates returns the statuses reachable from current.
func (e *Engine) NextStates(current domain.TicketStatus) []domain.TicketStatus {
	next := allowedTransitions[current]
	out := make([]domain.TicketStatus, len(next))
	copy(out, next)
	return out
}

// TransitionMessage describes a status change for audit and notifications.
func (e *Engine) TransitionMessage(current, next domain.TicketStatus) string {
	if msg, ok := transitionMessages[edge{current, next}]; ok {
		return msg
	}
	return fmt.Sprintf("Status changed from %s to %s", current, next)
}

// SLAHours returns the resolution window for a priority.
func (e *Engine) SLAHours(priority domain.TicketPriority) int {
	if hours, ok := slaHours[priority]; ok {
		return hours
	}
	return defaultSLAHours
}

// CalculateSLA returns the deadline for a ticket opened at now.
func (e *Engine) CalculateSLA(priority domain.TicketPriority, now time.Time) time.Time {
	return now.Add(time.Duration(e.SLAHours(priority)) * time.Hour)
}

// IsOverdue is strict: a ticket is not overdue at the exact deadline.
func (e *Engine) IsOverdue(deadline, now time.Time) bool {
	return now.After(deadline)
}

// TimeRemainingHours floors the hours left until deadline; negative once overdue.
func (e *Engine) TimeRemainingHours(deadline, now time.Time) int {
	return int(math.Floor(deadline.Sub(now).Hours()))
}
