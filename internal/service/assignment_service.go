package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

const (
	workloadTicketLimit     = 10
	recommendedAlternatives = 3
	recommendationCriterion = "lowest active workload"
)

// AssignmentService balances tickets across active technicians.
type AssignmentService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	audit      *AuditService
	tx         Transactor
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Audit      *AuditService
	Tx         Transactor
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Now        func() time.Time
}

// TechnicianWorkload is one row of the workload report.
type TechnicianWorkload struct {
	TechnicianID string
	Name         string
	Email        string
	ActiveCount  int
	Tickets      []domain.Ticket
}

// Recommendation suggests an assignee for a ticket.
type Recommendation struct {
	TicketID     string
	Recommended  domain.TechnicianLoad
	Alternatives []domain.TechnicianLoad
	Criterion    string
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		audit:      deps.Audit,
		tx:         orTx(deps.Tx),
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        orNow(deps.Now),
	}
}

// SelectTechnician returns the active technician with the fewest active
// tickets. Ties go to the lowest user id.
func (s *AssignmentService) SelectTechnician(ctx context.Context) (*domain.User, error) {
	loads, err := s.rankedLoads(ctx, "")
	if err != nil {
		return nil, err
	}
	if len(loads) == 0 {
		return nil, apperrors.NewNoTechnicianAvailable()
	}
	technician := loads[0].Technician
	return &technician, nil
}

// WorkloadReport lists every active technician with their active count and
// up to ten of their active tickets, highest priority first.
func (s *AssignmentService) WorkloadReport(ctx context.Context) ([]TechnicianWorkload, error) {
	loads, err := s.rankedLoads(ctx, "")
	if err != nil {
		return nil, err
	}
	report := make([]TechnicianWorkload, 0, len(loads))
	for _, load := range loads {
		tickets, err := s.tickets.ListActiveByTechnician(ctx, load.Technician.ID, workloadTicketLimit)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		report = append(report, TechnicianWorkload{
			TechnicianID: load.Technician.ID,
			Name:         load.Technician.DisplayName(),
			Email:        load.Technician.Email,
			ActiveCount:  load.ActiveCount,
			Tickets:      tickets,
		})
	}
	return report, nil
}

// Recommend returns the least loaded technician for ticketID plus up to
// three alternatives.
func (s *AssignmentService) Recommend(ctx context.Context, ticketID string) (*Recommendation, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	loads, err := s.rankedLoads(ctx, "")
	if err != nil {
		return nil, err
	}
	if len(loads) == 0 {
		return nil, apperrors.NewNoTechnicianAvailable()
	}
	rest := loads[1:]
	if len(rest) > recommendedAlternatives {
		rest = rest[:recommendedAlternatives]
	}
	return &Recommendation{
		TicketID:     ticketID,
		Recommended:  loads[0],
		Alternatives: append([]domain.TechnicianLoad{}, rest...),
		Criterion:    recommendationCriterion,
	}, nil
}

// ReassignAll moves every active ticket of fromTechnicianID. With a target
// the move is one bulk update; without one each ticket goes to the least
// loaded remaining technician. It returns the number of tickets moved.
func (s *AssignmentService) ReassignAll(ctx context.Context, fromTechnicianID string, toTechnicianID *string, actor domain.Actor) (int, error) {
	if !actor.Role.IsStaff() {
		return 0, apperrors.NewForbidden("only supervisors and admins can reassign technician queues")
	}
	if _, err := s.requireTechnician(ctx, fromTechnicianID); err != nil {
		return 0, err
	}
	var target *domain.User
	if toTechnicianID != nil {
		if *toTechnicianID == fromTechnicianID {
			return 0, apperrors.NewValidationError("target technician must differ from source", map[string]any{
				"technician_id": fromTechnicianID,
			})
		}
		user, err := s.requireTechnician(ctx, *toTechnicianID)
		if err != nil {
			return 0, err
		}
		target = user
	}

	buf := &eventBuffer{dispatcher: s.dispatcher, now: s.now}
	moved := 0
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if target != nil {
			ids, err := s.tickets.ReassignActive(ctx, fromTechnicianID, target.ID, s.now())
			if err != nil {
				return err
			}
			for _, id := range ids {
				s.audit.RecordReassignment(ctx, id, actor.ID, fromTechnicianID, target.ID, "bulk reassignment", "")
				s.queueAssigned(ctx, buf, id, actor.ID, fromTechnicianID, target.ID)
			}
			moved = len(ids)
			return nil
		}

		active, err := s.tickets.ListActiveByTechnician(ctx, fromTechnicianID, 0)
		if err != nil {
			return err
		}
		for _, candidate := range active {
			// Re-read under the row lock; a transition may have committed
			// since the listing.
			ticket, err := s.tickets.GetForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if !ticket.IsAssignedTo(fromTechnicianID) || !ticket.Status.IsActive() {
				continue
			}
			loads, err := s.rankedLoads(ctx, fromTechnicianID)
			if err != nil {
				return err
			}
			if len(loads) == 0 {
				return apperrors.NewNoTechnicianAvailable()
			}
			next := loads[0].Technician.ID
			ok, err := s.tickets.MoveTechnician(ctx, ticket.ID, fromTechnicianID, next, s.now())
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			s.audit.RecordReassignment(ctx, ticket.ID, actor.ID, fromTechnicianID, next, "automatic reassignment", "")
			buf.add(events.Event{
				Type:       events.EventTicketAssigned,
				TicketID:   ticket.ID,
				TicketCode: ticket.Code,
				ActorID:    actor.ID,
				Payload: events.TicketAssignedPayload{
					CreatorID:            ticket.CreatorID,
					TechnicianID:         next,
					PreviousTechnicianID: ptr(fromTechnicianID),
				},
			})
			moved++
		}
		return nil
	})
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	buf.flush(ctx)
	s.logger.Info("technician queue reassigned",
		zap.String("from_technician_id", fromTechnicianID),
		zap.Int("tickets", moved))
	return moved, nil
}

func (s *AssignmentService) queueAssigned(ctx context.Context, buf *eventBuffer, ticketID, actorID, fromID, toID string) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		s.logger.Warn("ticket lookup for notification failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return
	}
	buf.add(events.Event{
		Type:       events.EventTicketAssigned,
		TicketID:   ticket.ID,
		TicketCode: ticket.Code,
		ActorID:    actorID,
		Payload: events.TicketAssignedPayload{
			CreatorID:            ticket.CreatorID,
			TechnicianID:         toID,
			PreviousTechnicianID: ptr(fromID),
		},
	})
}

func (s *AssignmentService) requireTechnician(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "technician", id)
	}
	if user.Role != domain.RoleTechnician {
		return nil, apperrors.NewNotFound("technician", map[string]any{"technician_id": id})
	}
	return user, nil
}

// rankedLoads orders active technicians by load, then id, leaving out
// excludeID.
func (s *AssignmentService) rankedLoads(ctx context.Context, excludeID string) ([]domain.TechnicianLoad, error) {
	loads, err := s.users.ListActiveTechnicianLoads(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ranked := make([]domain.TechnicianLoad, 0, len(loads))
	for _, load := range loads {
		if load.Technician.ID == excludeID {
			continue
		}
		ranked = append(ranked, load)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].ActiveCount != ranked[j].ActiveCount {
			return ranked[i].ActiveCount < ranked[j].ActiveCount
		}
		return ranked[i].Technician.ID < ranked[j].Technician.ID
	})
	return ranked, nil
}
