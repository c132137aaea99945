package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

const recentAuditEntries = 10

// AuditService appends ticket audit entries and serves history queries.
type AuditService struct {
	repo    repository.AuditRepository
	logger  *zap.Logger
	metrics AuditFailureRecorder
	now     func() time.Time
}

// AuditDependencies bundles collaborators for the audit service.
type AuditDependencies struct {
	AuditRepo repository.AuditRepository
	Logger    *zap.Logger
	Metrics   AuditFailureRecorder
	Now       func() time.Time
}

// NewAuditService constructs the service.
func NewAuditService(deps AuditDependencies) *AuditService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		repo:    deps.AuditRepo,
		logger:  logger,
		metrics: deps.Metrics,
		now:     orNow(deps.Now),
	}
}

// Record appends one entry. Failures are logged and counted, never returned.
func (s *AuditService) Record(ctx context.Context, ticketID, actorID string, action domain.AuditAction, description string, detail map[string]any) {
	entry := &domain.AuditEntry{
		ID:          uuid.NewString(),
		TicketID:    ticketID,
		ActorID:     actorID,
		Action:      action,
		Description: description,
		Detail:      detail,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("audit write failed",
			zap.String("ticket_id", ticketID),
			zap.String("actor_id", actorID),
			zap.String("action", string(action)),
			zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordAuditFailure()
		}
	}
}

func (s *AuditService) RecordCreation(ctx context.Context, ticket *domain.Ticket, actorID string) {
	s.Record(ctx, ticket.ID, actorID, domain.AuditCreated,
		fmt.Sprintf("Ticket %s created", ticket.Code),
		map[string]any{
			"code":         ticket.Code,
			"priority":     string(ticket.Priority),
			"category":     string(ticket.Category),
			"sla_deadline": ticket.SLADeadline,
		})
}

func (s *AuditService) RecordStateChange(ctx context.Context, ticketID, actorID string, from, to domain.TicketStatus, description, motive string) {
	detail := map[string]any{"old_status": string(from), "new_status": string(to)}
	if motive != "" {
		detail["motive"] = motive
	}
	s.Record(ctx, ticketID, actorID, domain.AuditStateChanged, description, detail)
}

// RecordAssignment records a first assignment. from is the status the
// ticket left; assignment always lands on ASSIGNED.
func (s *AuditService) RecordAssignment(ctx context.Context, ticketID, actorID string, technician *domain.User, from domain.TicketStatus, notes string) {
	detail := map[string]any{"technician_id": technician.ID, "technician_name": technician.DisplayName()}
	withStatusChange(detail, from)
	if notes != "" {
		detail["notes"] = notes
	}
	s.Record(ctx, ticketID, actorID, domain.AuditAssigned,
		fmt.Sprintf("Ticket assigned to %s", technician.DisplayName()), detail)
}

// RecordReassignment records a technician change. An empty from means the
// status did not change.
func (s *AuditService) RecordReassignment(ctx context.Context, ticketID, actorID, fromTechnicianID, toTechnicianID, reason string, from domain.TicketStatus) {
	detail := map[string]any{"old_technician_id": fromTechnicianID, "new_technician_id": toTechnicianID}
	if from != "" {
		withStatusChange(detail, from)
	}
	if reason != "" {
		detail["reason"] = reason
	}
	s.Record(ctx, ticketID, actorID, domain.AuditReassigned, "Ticket reassigned", detail)
}

func withStatusChange(detail map[string]any, from domain.TicketStatus) {
	detail["old_status"] = string(from)
	detail["new_status"] = string(domain.TicketStatusAssigned)
}

// RecordUpdate records edited fields with their previous and new values.
func (s *AuditService) RecordUpdate(ctx context.Context, ticketID, actorID string, before, after map[string]any) {
	fields := make([]string, 0, len(after))
	for field := range after {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	s.Record(ctx, ticketID, actorID, domain.AuditUpdated,
		"Ticket updated: "+strings.Join(fields, ", "),
		map[string]any{"before": before, "after": after})
}

func (s *AuditService) RecordPriorityChange(ctx context.Context, ticketID, actorID string, from, to domain.TicketPriority) {
	s.Record(ctx, ticketID, actorID, domain.AuditPriorityChanged,
		fmt.Sprintf("Priority changed from %s to %s", from, to),
		map[string]any{"old_priority": string(from), "new_priority": string(to)})
}

func (s *AuditService) RecordClosure(ctx context.Context, ticketID, actorID string, from domain.TicketStatus, solution string) {
	s.Record(ctx, ticketID, actorID, domain.AuditClosed, "Ticket closed",
		map[string]any{"old_status": string(from), "solution": solution})
}

func (s *AuditService) RecordRejection(ctx context.Context, ticketID, actorID string, from domain.TicketStatus, reason string) {
	s.Record(ctx, ticketID, actorID, domain.AuditRejected, "Ticket rejected",
		map[string]any{"old_status": string(from), "reason": reason})
}

// History returns the ticket's entries newest first.
func (s *AuditService) History(ctx context.Context, ticketID string) ([]domain.AuditRecord, error) {
	records, err := s.repo.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return records, nil
}

// Statistics counts entries by action in the optional range and returns
// the most recent entries across all tickets.
func (s *AuditService) Statistics(ctx context.Context, filter domain.AuditFilter) (*domain.AuditStats, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, apperrors.NewValidationError("invalid range", map[string]any{"from": filter.From, "to": filter.To})
	}
	stats, err := s.repo.Stats(ctx, filter, recentAuditEntries)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return stats, nil
}
