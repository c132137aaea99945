package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// Transactor runs fn inside one database transaction carried by ctx.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TransitionRecorder counts applied status transitions.
type TransitionRecorder interface {
	RecordTransition(from, to string)
}

// AuditFailureRecorder counts audit writes that failed.
type AuditFailureRecorder interface {
	RecordAuditFailure()
}

type noTx struct{}

func (noTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func orTx(tx Transactor) Transactor {
	if tx == nil {
		return noTx{}
	}
	return tx
}

func orNow(now func() time.Time) func() time.Time {
	if now == nil {
		return func() time.Time { return time.Now().UTC() }
	}
	return now
}

// notFoundOr maps pgx.ErrNoRows to a NOT_FOUND error for resource.
func notFoundOr(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{resource + "_id": id})
	}
	return apperrors.MapError(err)
}

// canView applies role visibility: staff see everything, technicians
// their assigned tickets and clients the tickets they created.
func canView(ticket *domain.Ticket, actor domain.Actor) bool {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleSupervisor:
		return true
	case domain.RoleTechnician:
		return ticket.IsAssignedTo(actor.ID)
	case domain.RoleClient:
		return ticket.CreatorID == actor.ID
	}
	return false
}

// canAssign extends canView so a technician can pick up an unassigned
// OPEN ticket.
func canAssign(ticket *domain.Ticket, actor domain.Actor) bool {
	if canView(ticket, actor) {
		return true
	}
	return actor.Role == domain.RoleTechnician &&
		ticket.TechnicianID == nil &&
		ticket.Status == domain.TicketStatusOpen
}

func generateTicketCode() string {
	return "REC-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// eventBuffer collects events inside a transaction and publishes them
// once it has committed.
type eventBuffer struct {
	dispatcher events.Dispatcher
	now        func() time.Time
	pending    []events.Event
}

func (b *eventBuffer) add(event events.Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = b.now()
	}
	b.pending = append(b.pending, event)
}

func (b *eventBuffer) flush(ctx context.Context) {
	if b.dispatcher == nil {
		b.pending = nil
		return
	}
	for _, event := range b.pending {
		_ = b.dispatcher.Publish(ctx, event)
	}
	b.pending = nil
}

func ptr[T any](v T) *T {
	return &v
}
