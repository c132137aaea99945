package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/workflow"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

const (
	maxTitleLength = 200
	defaultLimit   = 20
	maxLimit       = 100
)

// TicketService is the only component that changes a ticket's status.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	audit      *AuditService
	assignment *AssignmentService
	engine     *workflow.Engine
	tx         Transactor
	dispatcher events.Dispatcher
	metrics    TransitionRecorder
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Audit      *AuditService
	Assignment *AssignmentService
	Engine     *workflow.Engine
	Tx         Transactor
	Dispatcher events.Dispatcher
	Metrics    TransitionRecorder
	Logger     *zap.Logger
	Now        func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Category    domain.TicketCategory
	Subcategory string
	Priority    domain.TicketPriority
	Address     string
	Latitude    *float64
	Longitude   *float64
	ContactInfo map[string]any
}

// TicketPatch carries optional field edits; nil fields are left unchanged.
type TicketPatch struct {
	Title       *string
	Description *string
	Category    *domain.TicketCategory
	Subcategory *string
	Priority    *domain.TicketPriority
	Address     *string
	Latitude    *float64
	Longitude   *float64
	ContactInfo map[string]any
}

// TicketListFilter describes listing filters. Scope by creator or
// technician is derived from the caller's role.
type TicketListFilter struct {
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	Categories   []domain.TicketCategory
	TechnicianID *string
	SearchTerm   *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// TicketView is a ticket with its derived SLA and workflow fields.
type TicketView struct {
	domain.Ticket
	Overdue        bool
	HoursRemaining int
	NextStates     []domain.TicketStatus
}

// TicketPage is one page of a ticket listing.
type TicketPage struct {
	Items  []TicketView
	Total  int
	Limit  int
	Offset int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := deps.Engine
	if engine == nil {
		engine = workflow.NewEngine()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		audit:      deps.Audit,
		assignment: deps.Assignment,
		engine:     engine,
		tx:         orTx(deps.Tx),
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        orNow(deps.Now),
	}
}

// Create opens a new ticket for the actor. No technician is assigned.
func (s *TicketService) Create(ctx context.Context, input TicketCreateInput, actor domain.Actor) (*domain.Ticket, error) {
	if err := validateCreate(&input); err != nil {
		return nil, err
	}
	now := s.now()
	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		Code:        generateTicketCode(),
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Subcategory: strings.TrimSpace(input.Subcategory),
		Priority:    input.Priority,
		Status:      domain.TicketStatusOpen,
		CreatorID:   actor.ID,
		Address:     strings.TrimSpace(input.Address),
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		ContactInfo: input.ContactInfo,
		SLADeadline: s.engine.CalculateSLA(input.Priority, now),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	buf := s.newBuffer()
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return err
		}
		s.audit.RecordCreation(ctx, ticket, actor.ID)
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	buf.add(events.Event{
		Type:       events.EventTicketCreated,
		TicketID:   ticket.ID,
		TicketCode: ticket.Code,
		ActorID:    actor.ID,
		Payload: events.TicketCreatedPayload{
			CreatorID: ticket.CreatorID,
			Priority:  ticket.Priority,
			Title:     ticket.Title,
		},
	})
	buf.flush(ctx)
	return ticket, nil
}

// Get returns a ticket visible to actor.
func (s *TicketService) Get(ctx context.Context, ticketID string, actor domain.Actor) (*TicketView, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	if !canView(ticket, actor) {
		return nil, apperrors.NewForbidden("access denied")
	}
	view := s.view(*ticket)
	return &view, nil
}

// List returns tickets visible to actor matching filter.
func (s *TicketService) List(ctx context.Context, filter TicketListFilter, actor domain.Actor) (*TicketPage, error) {
	repoFilter, err := s.scopedFilter(filter, actor)
	if err != nil {
		return nil, err
	}
	tickets, total, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	items := make([]TicketView, 0, len(tickets))
	for _, ticket := range tickets {
		items = append(items, s.view(ticket))
	}
	return &TicketPage{Items: items, Total: total, Limit: repoFilter.Limit, Offset: repoFilter.Offset}, nil
}

// Stats aggregates tickets visible to actor.
func (s *TicketService) Stats(ctx context.Context, actor domain.Actor) (*domain.TicketStats, error) {
	repoFilter, err := s.scopedFilter(TicketListFilter{}, actor)
	if err != nil {
		return nil, err
	}
	stats, err := s.tickets.Stats(ctx, repoFilter, s.now())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return stats, nil
}

// Update edits descriptive fields. A priority change recomputes the SLA
// deadline from the creation time.
func (s *TicketService) Update(ctx context.Context, ticketID string, patch TicketPatch, actor domain.Actor) (*domain.Ticket, error) {
	if err := validatePatch(&patch); err != nil {
		return nil, err
	}
	var ticket *domain.Ticket
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return notFoundOr(err, "ticket", ticketID)
		}
		if err := authorizeEdit(ticket, actor); err != nil {
			return err
		}

		oldPriority := ticket.Priority
		before, after := applyPatch(ticket, patch)
		priorityChanged := ticket.Priority != oldPriority
		if len(after) == 0 && !priorityChanged {
			return nil
		}
		if priorityChanged {
			ticket.SLADeadline = s.engine.CalculateSLA(ticket.Priority, ticket.CreatedAt)
		}
		ticket.UpdatedAt = s.now()
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		if len(after) > 0 {
			s.audit.RecordUpdate(ctx, ticket.ID, actor.ID, before, after)
		}
		if priorityChanged {
			s.audit.RecordPriorityChange(ctx, ticket.ID, actor.ID, oldPriority, ticket.Priority)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// Assign hands a ticket to a technician. An empty technicianID lets staff
// pick the least loaded technician. Technicians may only assign
// themselves.
func (s *TicketService) Assign(ctx context.Context, ticketID, technicianID, notes string, actor domain.Actor) (*domain.Ticket, error) {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleSupervisor:
	case domain.RoleTechnician:
		if technicianID == "" {
			technicianID = actor.ID
		}
		if technicianID != actor.ID {
			return nil, apperrors.NewForbiddenWithDetails("technicians can only assign tickets to themselves",
				map[string]any{"technician_id": technicianID})
		}
	default:
		return nil, apperrors.NewForbidden("role cannot assign tickets")
	}

	technician, err := s.resolveTechnician(ctx, technicianID)
	if err != nil {
		return nil, err
	}

	var (
		ticket   *domain.Ticket
		previous *string
		from     domain.TicketStatus
	)
	buf := s.newBuffer()
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return notFoundOr(err, "ticket", ticketID)
		}
		if !canAssign(ticket, actor) {
			return apperrors.NewForbidden("access denied")
		}
		from = ticket.Status
		// Permission is checked against the assignment target.
		if err := s.engine.Validate(from, domain.TicketStatusAssigned, actor.Role, technician.ID == actor.ID); err != nil {
			return err
		}

		now := s.now()
		previous = ticket.TechnicianID
		ticket.TechnicianID = ptr(technician.ID)
		ticket.Status = domain.TicketStatusAssigned
		ticket.AssignedAt = ptr(now)
		ticket.UpdatedAt = now
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		if previous != nil && *previous != technician.ID {
			s.audit.RecordReassignment(ctx, ticket.ID, actor.ID, *previous, technician.ID, notes, from)
		} else {
			s.audit.RecordAssignment(ctx, ticket.ID, actor.ID, technician, from, notes)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.recordTransition(from, domain.TicketStatusAssigned)
	buf.add(events.Event{
		Type:       events.EventTicketAssigned,
		TicketID:   ticket.ID,
		TicketCode: ticket.Code,
		ActorID:    actor.ID,
		Payload: events.TicketAssignedPayload{
			CreatorID:            ticket.CreatorID,
			TechnicianID:         technician.ID,
			PreviousTechnicianID: previous,
		},
	})
	buf.flush(ctx)
	return ticket, nil
}

// ChangeState moves a ticket to next after workflow validation. An
// identity transition returns the ticket unchanged.
func (s *TicketService) ChangeState(ctx context.Context, ticketID string, next domain.TicketStatus, motive string, actor domain.Actor) (*domain.Ticket, error) {
	if !next.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": string(next)})
	}
	return s.transition(ctx, ticketID, next, actor, func(ctx context.Context, ticket *domain.Ticket, from domain.TicketStatus) {
		s.audit.RecordStateChange(ctx, ticket.ID, actor.ID, from, next, s.engine.TransitionMessage(from, next), motive)
	}, func(ticket *domain.Ticket, from domain.TicketStatus) events.Event {
		return s.stateEvent(ticket, from, actor, motive)
	})
}

// Close finishes a ticket with a solution. Staff only.
func (s *TicketService) Close(ctx context.Context, ticketID, solution, notes string, actor domain.Actor) (*domain.Ticket, error) {
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("only supervisors and admins can close tickets")
	}
	solution = strings.TrimSpace(solution)
	if solution == "" {
		return nil, apperrors.NewValidationError("solution is required", map[string]any{"field": "solution"})
	}
	return s.transition(ctx, ticketID, domain.TicketStatusClosed, actor, func(ctx context.Context, ticket *domain.Ticket, from domain.TicketStatus) {
		s.audit.RecordClosure(ctx, ticket.ID, actor.ID, from, solution)
	}, func(ticket *domain.Ticket, from domain.TicketStatus) events.Event {
		event := s.stateEvent(ticket, from, actor, "")
		event.Type = events.EventTicketClosed
		return event
	}, func(ticket *domain.Ticket) {
		ticket.Solution = solution
		if notes = strings.TrimSpace(notes); notes != "" {
			ticket.ResolutionNotes = notes
		}
	})
}

// Reject ends a ticket with a reason. Staff only.
func (s *TicketService) Reject(ctx context.Context, ticketID, reason string, actor domain.Actor) (*domain.Ticket, error) {
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("only supervisors and admins can reject tickets")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("reason is required", map[string]any{"field": "reason"})
	}
	return s.transition(ctx, ticketID, domain.TicketStatusRejected, actor, func(ctx context.Context, ticket *domain.Ticket, from domain.TicketStatus) {
		s.audit.RecordRejection(ctx, ticket.ID, actor.ID, from, reason)
	}, func(ticket *domain.Ticket, from domain.TicketStatus) events.Event {
		event := s.stateEvent(ticket, from, actor, reason)
		event.Type = events.EventTicketRejected
		return event
	}, func(ticket *domain.Ticket) {
		ticket.RejectionReason = reason
	})
}

type (
	auditFunc  func(ctx context.Context, ticket *domain.Ticket, from domain.TicketStatus)
	eventFunc  func(ticket *domain.Ticket, from domain.TicketStatus) events.Event
	mutateFunc func(ticket *domain.Ticket)
)

// transition is the single write path for ticket status: lock, validate,
// stamp milestones, persist, audit, then publish after commit.
func (s *TicketService) transition(ctx context.Context, ticketID string, next domain.TicketStatus, actor domain.Actor, audit auditFunc, event eventFunc, mutate ...mutateFunc) (*domain.Ticket, error) {
	var (
		ticket  *domain.Ticket
		from    domain.TicketStatus
		changed bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return notFoundOr(err, "ticket", ticketID)
		}
		if !canView(ticket, actor) {
			return apperrors.NewForbidden("access denied")
		}
		from = ticket.Status
		if err := s.engine.Validate(from, next, actor.Role, ticket.IsAssignedTo(actor.ID)); err != nil {
			return err
		}
		if from == next {
			// Close and Reject carry a solution or reason that an identity
			// move would silently drop.
			if len(mutate) > 0 {
				return apperrors.NewConflict(fmt.Sprintf("ticket is already %s", from), map[string]any{"status": string(from)})
			}
			return nil
		}
		if next == domain.TicketStatusAssigned && ticket.TechnicianID == nil {
			return apperrors.NewValidationError("ticket has no technician; assign one instead", map[string]any{
				"from": string(from),
				"to":   string(next),
			})
		}

		s.applyMilestones(ticket, next, actor)
		for _, m := range mutate {
			m(ticket)
		}
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		audit(ctx, ticket, from)
		changed = true
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if changed {
		s.recordTransition(from, next)
		buf := s.newBuffer()
		buf.add(event(ticket, from))
		buf.flush(ctx)
		s.logger.Info("ticket transitioned",
			zap.String("ticket_id", ticket.ID),
			zap.String("from", string(from)),
			zap.String("to", string(next)),
			zap.String("actor_id", actor.ID))
	}
	return ticket, nil
}

func (s *TicketService) applyMilestones(ticket *domain.Ticket, next domain.TicketStatus, actor domain.Actor) {
	now := s.now()
	previous := ticket.Status
	ticket.Status = next
	ticket.UpdatedAt = now
	switch next {
	case domain.TicketStatusOpen:
		ticket.TechnicianID = nil
		if previous == domain.TicketStatusRejected {
			ticket.RejectionReason = ""
			ticket.ClosedAt = nil
			ticket.ClosedByID = nil
		}
	case domain.TicketStatusAssigned:
		if ticket.AssignedAt == nil {
			ticket.AssignedAt = ptr(now)
		}
	case domain.TicketStatusInProgress:
		if ticket.StartedAt == nil {
			ticket.StartedAt = ptr(now)
		}
	case domain.TicketStatusInReview:
		ticket.ResolvedAt = ptr(now)
	case domain.TicketStatusClosed, domain.TicketStatusRejected:
		ticket.ClosedAt = ptr(now)
		ticket.ClosedByID = ptr(actor.ID)
	}
}

func (s *TicketService) stateEvent(ticket *domain.Ticket, from domain.TicketStatus, actor domain.Actor, reason string) events.Event {
	return events.Event{
		Type:       events.EventTicketStateChanged,
		TicketID:   ticket.ID,
		TicketCode: ticket.Code,
		ActorID:    actor.ID,
		Payload: events.TicketStateChangedPayload{
			CreatorID:    ticket.CreatorID,
			TechnicianID: ticket.TechnicianID,
			OldStatus:    from,
			NewStatus:    ticket.Status,
			Message:      s.engine.TransitionMessage(from, ticket.Status),
			Reason:       reason,
		},
	}
}

func (s *TicketService) resolveTechnician(ctx context.Context, technicianID string) (*domain.User, error) {
	if technicianID == "" {
		if s.assignment == nil {
			return nil, apperrors.NewValidationError("technician_id is required", map[string]any{"field": "technician_id"})
		}
		return s.assignment.SelectTechnician(ctx)
	}
	technician, err := s.users.GetByID(ctx, technicianID)
	if err != nil {
		return nil, notFoundOr(err, "technician", technicianID)
	}
	if technician.Role != domain.RoleTechnician {
		return nil, apperrors.NewNotFound("technician", map[string]any{"technician_id": technicianID})
	}
	if !technician.Active {
		return nil, apperrors.NewValidationError("technician is inactive", map[string]any{"technician_id": technicianID})
	}
	return technician, nil
}

func (s *TicketService) scopedFilter(filter TicketListFilter, actor domain.Actor) (repository.TicketFilter, error) {
	for _, status := range filter.Statuses {
		if !status.Valid() {
			return repository.TicketFilter{}, apperrors.NewValidationError("unknown status", map[string]any{"status": string(status)})
		}
	}
	for _, priority := range filter.Priorities {
		if priority == "" || !priority.Valid() {
			return repository.TicketFilter{}, apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(priority)})
		}
	}
	for _, category := range filter.Categories {
		if !category.Valid() {
			return repository.TicketFilter{}, apperrors.NewValidationError("unknown category", map[string]any{"category": string(category)})
		}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	out := repository.TicketFilter{
		TechnicianID: filter.TechnicianID,
		Statuses:     filter.Statuses,
		Priorities:   filter.Priorities,
		Categories:   filter.Categories,
		SearchTerm:   filter.SearchTerm,
		CreatedFrom:  filter.CreatedFrom,
		CreatedTo:    filter.CreatedTo,
		Limit:        limit,
		Offset:       offset,
	}
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleSupervisor:
	case domain.RoleTechnician:
		out.TechnicianID = ptr(actor.ID)
	case domain.RoleClient:
		out.CreatorID = ptr(actor.ID)
	default:
		return repository.TicketFilter{}, apperrors.NewForbidden("unknown role")
	}
	return out, nil
}

func (s *TicketService) view(ticket domain.Ticket) TicketView {
	now := s.now()
	return TicketView{
		Ticket:         ticket,
		Overdue:        !ticket.Status.IsFinal() && s.engine.IsOverdue(ticket.SLADeadline, now),
		HoursRemaining: s.engine.TimeRemainingHours(ticket.SLADeadline, now),
		NextStates:     s.engine.NextStates(ticket.Status),
	}
}

func (s *TicketService) recordTransition(from, to domain.TicketStatus) {
	if s.metrics == nil || from == to {
		return
	}
	s.metrics.RecordTransition(string(from), string(to))
}

func (s *TicketService) newBuffer() *eventBuffer {
	return &eventBuffer{dispatcher: s.dispatcher, now: s.now}
}

func validateCreate(input *TicketCreateInput) error {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if input.Title == "" {
		return apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	if len(input.Title) > maxTitleLength {
		return apperrors.NewValidationError("title too long", map[string]any{"field": "title", "max": maxTitleLength})
	}
	if input.Description == "" {
		return apperrors.NewValidationError("description is required", map[string]any{"field": "description"})
	}
	if !input.Category.Valid() {
		return apperrors.NewValidationError("invalid category", map[string]any{"field": "category", "value": string(input.Category)})
	}
	if !input.Priority.Valid() {
		return apperrors.NewValidationError("invalid priority", map[string]any{"field": "priority", "value": string(input.Priority)})
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityLow
	}
	return validateCoordinates(input.Latitude, input.Longitude)
}

func validatePatch(patch *TicketPatch) error {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" || len(title) > maxTitleLength {
			return apperrors.NewValidationError("invalid title", map[string]any{"field": "title"})
		}
		patch.Title = &title
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		if description == "" {
			return apperrors.NewValidationError("description is required", map[string]any{"field": "description"})
		}
		patch.Description = &description
	}
	if patch.Category != nil && !patch.Category.Valid() {
		return apperrors.NewValidationError("invalid category", map[string]any{"field": "category"})
	}
	if patch.Priority != nil && (*patch.Priority == "" || !patch.Priority.Valid()) {
		return apperrors.NewValidationError("invalid priority", map[string]any{"field": "priority"})
	}
	return validateCoordinates(patch.Latitude, patch.Longitude)
}

func validateCoordinates(lat, lng *float64) error {
	if lat != nil && (*lat < -90 || *lat > 90) {
		return apperrors.NewValidationError("latitude out of range", map[string]any{"field": "latitude"})
	}
	if lng != nil && (*lng < -180 || *lng > 180) {
		return apperrors.NewValidationError("longitude out of range", map[string]any{"field": "longitude"})
	}
	return nil
}

// authorizeEdit allows clients to edit their own OPEN tickets, assigned
// technicians and staff to edit any non-final ticket.
func authorizeEdit(ticket *domain.Ticket, actor domain.Actor) error {
	if !canView(ticket, actor) {
		return apperrors.NewForbidden("access denied")
	}
	if ticket.Status.IsFinal() {
		return apperrors.NewConflict("ticket can no longer be edited", map[string]any{"status": string(ticket.Status)})
	}
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleSupervisor:
		return nil
	case domain.RoleTechnician:
		if ticket.IsAssignedTo(actor.ID) {
			return nil
		}
	case domain.RoleClient:
		if ticket.CreatorID == actor.ID && ticket.Status == domain.TicketStatusOpen {
			return nil
		}
	}
	return apperrors.NewForbidden("access denied")
}

// applyPatch writes patch into ticket and returns the previous and new
// values of changed fields other than priority.
func applyPatch(ticket *domain.Ticket, patch TicketPatch) (map[string]any, map[string]any) {
	before := map[string]any{}
	after := map[string]any{}
	setString := func(field string, dst *string, src *string) {
		if src != nil && *src != *dst {
			before[field], after[field] = *dst, *src
			*dst = *src
		}
	}
	setFloat := func(field string, dst **float64, src *float64) {
		if src == nil || (*dst != nil && **dst == *src) {
			return
		}
		if *dst != nil {
			before[field] = **dst
		} else {
			before[field] = nil
		}
		after[field] = *src
		*dst = ptr(*src)
	}

	setString("title", &ticket.Title, patch.Title)
	setString("description", &ticket.Description, patch.Description)
	setString("subcategory", &ticket.Subcategory, patch.Subcategory)
	setString("address", &ticket.Address, patch.Address)
	if patch.Category != nil && *patch.Category != ticket.Category {
		before["category"], after["category"] = string(ticket.Category), string(*patch.Category)
		ticket.Category = *patch.Category
	}
	setFloat("latitude", &ticket.Latitude, patch.Latitude)
	setFloat("longitude", &ticket.Longitude, patch.Longitude)
	if patch.ContactInfo != nil {
		before["contact_info"], after["contact_info"] = ticket.ContactInfo, patch.ContactInfo
		ticket.ContactInfo = patch.ContactInfo
	}
	if patch.Priority != nil {
		ticket.Priority = *patch.Priority
	}
	return before, after
}
