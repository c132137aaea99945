package handlers

import (
	"context"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
)

// TicketOperations is the ticket workflow surface used by the HTTP layer.
type TicketOperations interface {
	Create(ctx context.Context, input service.TicketCreateInput, actor domain.Actor) (*domain.Ticket, error)
	Get(ctx context.Context, ticketID string, actor domain.Actor) (*service.TicketView, error)
	List(ctx context.Context, filter service.TicketListFilter, actor domain.Actor) (*service.TicketPage, error)
	Stats(ctx context.Context, actor domain.Actor) (*domain.TicketStats, error)
	Update(ctx context.Context, ticketID string, patch service.TicketPatch, actor domain.Actor) (*domain.Ticket, error)
	Assign(ctx context.Context, ticketID, technicianID, notes string, actor domain.Actor) (*domain.Ticket, error)
	ChangeState(ctx context.Context, ticketID string, next domain.TicketStatus, motive string, actor domain.Actor) (*domain.Ticket, error)
	Close(ctx context.Context, ticketID, solution, notes string, actor domain.Actor) (*domain.Ticket, error)
	Reject(ctx context.Context, ticketID, reason string, actor domain.Actor) (*domain.Ticket, error)
}

// AssignmentOperations covers workload reporting and bulk reassignment.
type AssignmentOperations interface {
	WorkloadReport(ctx context.Context) ([]service.TechnicianWorkload, error)
	Recommend(ctx context.Context, ticketID string) (*service.Recommendation, error)
	ReassignAll(ctx context.Context, fromTechnicianID string, toTechnicianID *string, actor domain.Actor) (int, error)
}

// AuditQueries reads the audit trail.
type AuditQueries interface {
	History(ctx context.Context, ticketID string) ([]domain.AuditRecord, error)
	Statistics(ctx context.Context, filter domain.AuditFilter) (*domain.AuditStats, error)
}

// CommentOperations manages ticket comments.
type CommentOperations interface {
	List(ctx context.Context, ticketID string, actor domain.Actor) ([]domain.Comment, error)
	Create(ctx context.Context, ticketID, content string, internal bool, actor domain.Actor) (*domain.Comment, error)
	Update(ctx context.Context, commentID string, patch service.CommentPatch, actor domain.Actor) (*domain.Comment, error)
	Delete(ctx context.Context, commentID string, actor domain.Actor) error
}

// AttachmentOperations manages attachment metadata.
type AttachmentOperations interface {
	List(ctx context.Context, ticketID string, actor domain.Actor) ([]domain.Attachment, error)
	Create(ctx context.Context, ticketID string, input service.AttachmentInput, actor domain.Actor) (*domain.Attachment, error)
	Delete(ctx context.Context, attachmentID string, actor domain.Actor) error
}
