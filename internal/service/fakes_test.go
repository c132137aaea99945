package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/workflow"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]domain.Ticket{}}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r *fakeTicketRepo) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.Ticket
	for _, ticket := range r.tickets {
		if matchesFilter(ticket, filter) {
			matched = append(matched, ticket)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	total := len(matched)
	if filter.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (r *fakeTicketRepo) ListActiveByTechnician(_ context.Context, technicianID string, limit int) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.IsAssignedTo(technicianID) && ticket.Status.IsActive() {
			result = append(result, ticket)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority.Rank() != result[j].Priority.Rank() {
			return result[i].Priority.Rank() > result[j].Priority.Rank()
		}
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *fakeTicketRepo) ReassignActive(_ context.Context, fromID, toID string, now time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, ticket := range r.tickets {
		if ticket.IsAssignedTo(fromID) && ticket.Status.IsActive() {
			ticket.TechnicianID = ptr(toID)
			ticket.AssignedAt = ptr(now)
			ticket.UpdatedAt = now
			r.tickets[id] = ticket
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *fakeTicketRepo) MoveTechnician(_ context.Context, ticketID, fromID, toID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[ticketID]
	if !ok || !ticket.IsAssignedTo(fromID) || !ticket.Status.IsActive() {
		return false, nil
	}
	ticket.TechnicianID = ptr(toID)
	ticket.AssignedAt = ptr(now)
	ticket.UpdatedAt = now
	r.tickets[ticketID] = ticket
	return true, nil
}

func (r *fakeTicketRepo) Stats(_ context.Context, filter repository.TicketFilter, now time.Time) (*domain.TicketStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &domain.TicketStats{
		ByStatus:   map[domain.TicketStatus]int{},
		ByPriority: map[domain.TicketPriority]int{},
	}
	for _, ticket := range r.tickets {
		if !matchesFilter(ticket, filter) {
			continue
		}
		stats.Total++
		stats.ByStatus[ticket.Status]++
		stats.ByPriority[ticket.Priority]++
		if !ticket.Status.IsFinal() && now.After(ticket.SLADeadline) {
			stats.Overdue++
		}
	}
	return stats, nil
}

func (r *fakeTicketRepo) put(ticket domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[ticket.ID] = ticket
}

// get returns a copy of the stored ticket.
func (r *fakeTicketRepo) get(id string) *domain.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket := r.tickets[id]
	return &ticket
}

func matchesFilter(ticket domain.Ticket, filter repository.TicketFilter) bool {
	if filter.CreatorID != nil && ticket.CreatorID != *filter.CreatorID {
		return false
	}
	if filter.TechnicianID != nil && !ticket.IsAssignedTo(*filter.TechnicianID) {
		return false
	}
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
		return false
	}
	if len(filter.Priorities) > 0 {
		found := false
		for _, p := range filter.Priorities {
			found = found || p == ticket.Priority
		}
		if !found {
			return false
		}
	}
	return true
}

func containsStatus(list []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, candidate := range list {
		if candidate == status {
			return true
		}
	}
	return false
}

type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[string]domain.User
	tickets *fakeTicketRepo
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

// ListActiveTechnicianLoads returns rows in map order so callers must not
// rely on the store for ranking.
func (r *fakeUserRepo) ListActiveTechnicianLoads(ctx context.Context) ([]domain.TechnicianLoad, error) {
	r.mu.Lock()
	users := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, user)
	}
	r.mu.Unlock()

	var loads []domain.TechnicianLoad
	for _, user := range users {
		if user.Role != domain.RoleTechnician || !user.Active {
			continue
		}
		active, err := r.tickets.ListActiveByTechnician(ctx, user.ID, 0)
		if err != nil {
			return nil, err
		}
		loads = append(loads, domain.TechnicianLoad{Technician: user, ActiveCount: len(active)})
	}
	return loads, nil
}

func (r *fakeUserRepo) add(id string, role domain.Role, active bool) domain.Actor {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id] = domain.User{
		ID:        id,
		FirstName: id,
		LastName:  "Tester",
		Email:     id + "@example.com",
		Role:      role,
		Active:    active,
	}
	return domain.Actor{ID: id, Role: role}
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	fail    bool
}

func (r *fakeAuditRepo) Create(_ context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("audit store unavailable")
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.AuditRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var records []domain.AuditRecord
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].TicketID == ticketID {
			records = append(records, domain.AuditRecord{AuditEntry: r.entries[i]})
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

func (r *fakeAuditRepo) Stats(_ context.Context, filter domain.AuditFilter, recent int) (*domain.AuditStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &domain.AuditStats{ByAction: map[domain.AuditAction]int{}}
	for i := len(r.entries) - 1; i >= 0; i-- {
		entry := r.entries[i]
		if filter.From != nil && entry.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && entry.CreatedAt.After(*filter.To) {
			continue
		}
		stats.Total++
		stats.ByAction[entry.Action]++
		if len(stats.Recent) < recent {
			stats.Recent = append(stats.Recent, domain.AuditRecord{AuditEntry: entry})
		}
	}
	return stats, nil
}

func (r *fakeAuditRepo) count(ticketID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			n++
		}
	}
	return n
}

type fakeCommentRepo struct {
	mu       sync.Mutex
	comments []domain.Comment
}

func (r *fakeCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comments = append(r.comments, *comment)
	return nil
}

func (r *fakeCommentRepo) Update(_ context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.comments {
		if r.comments[i].ID == comment.ID {
			r.comments[i] = *comment
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeCommentRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.comments {
		if r.comments[i].ID == id {
			r.comments = append(r.comments[:i], r.comments[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeCommentRepo) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, comment := range r.comments {
		if comment.ID == id {
			c := comment
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCommentRepo) ListByTicket(_ context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Comment
	for i := len(r.comments) - 1; i >= 0; i-- {
		comment := r.comments[i]
		if comment.TicketID != ticketID || (comment.Internal && !includeInternal) {
			continue
		}
		result = append(result, comment)
	}
	return result, nil
}

type fakeAttachmentRepo struct {
	mu          sync.Mutex
	attachments map[string]domain.Attachment
}

func (r *fakeAttachmentRepo) Create(_ context.Context, attachment *domain.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attachments[attachment.ID] = *attachment
	return nil
}

func (r *fakeAttachmentRepo) GetByID(_ context.Context, id string) (*domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	attachment, ok := r.attachments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &attachment, nil
}

func (r *fakeAttachmentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Attachment
	for _, attachment := range r.attachments {
		if attachment.TicketID == ticketID {
			result = append(result, attachment)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeAttachmentRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.attachments[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.attachments, id)
	return nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, event := range d.events {
		out = append(out, event.Type)
	}
	return out
}

type fixture struct {
	clock       *fakeClock
	tickets     *fakeTicketRepo
	users       *fakeUserRepo
	audits      *fakeAuditRepo
	comments    *fakeCommentRepo
	attachments *fakeAttachmentRepo
	dispatcher  *recordingDispatcher
	metrics     *observability.Metrics

	audit         *AuditService
	assignment    *AssignmentService
	ticketSvc     *TicketService
	commentSvc    *CommentService
	attachmentSvc *AttachmentService

	admin      domain.Actor
	supervisor domain.Actor
	client     domain.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:       &fakeClock{now: t0},
		tickets:     newFakeTicketRepo(),
		audits:      &fakeAuditRepo{},
		comments:    &fakeCommentRepo{},
		attachments: &fakeAttachmentRepo{attachments: map[string]domain.Attachment{}},
		dispatcher:  &recordingDispatcher{},
		metrics:     observability.NewMetrics(),
	}
	f.users = &fakeUserRepo{users: map[string]domain.User{}, tickets: f.tickets}

	f.audit = NewAuditService(AuditDependencies{
		AuditRepo: f.audits,
		Metrics:   f.metrics,
		Now:       f.clock.Now,
	})
	f.assignment = NewAssignmentService(AssignmentDependencies{
		TicketRepo: f.tickets,
		UserRepo:   f.users,
		Audit:      f.audit,
		Dispatcher: f.dispatcher,
		Now:        f.clock.Now,
	})
	f.ticketSvc = NewTicketService(TicketDependencies{
		TicketRepo: f.tickets,
		UserRepo:   f.users,
		Audit:      f.audit,
		Assignment: f.assignment,
		Engine:     workflow.NewEngine(),
		Dispatcher: f.dispatcher,
		Metrics:    f.metrics,
		Now:        f.clock.Now,
	})
	f.commentSvc = NewCommentService(CommentDependencies{
		CommentRepo: f.comments,
		TicketRepo:  f.tickets,
		Dispatcher:  f.dispatcher,
		Now:         f.clock.Now,
	})
	f.attachmentSvc = NewAttachmentService(AttachmentDependencies{
		AttachmentRepo: f.attachments,
		TicketRepo:     f.tickets,
		Config: config.AttachmentConfig{
			MaxSizeBytes:     1024,
			AllowedMimeTypes: []string{"image/png", "application/pdf"},
		},
		Now: f.clock.Now,
	})

	f.admin = f.users.add("admin-1", domain.RoleAdmin, true)
	f.supervisor = f.users.add("sup-1", domain.RoleSupervisor, true)
	f.client = f.users.add("client-1", domain.RoleClient, true)
	return f
}

func (f *fixture) createTicket(t *testing.T, priority domain.TicketPriority) *domain.Ticket {
	t.Helper()
	ticket, err := f.ticketSvc.Create(context.Background(), TicketCreateInput{
		Title:       "No internet",
		Description: "Fiber link down since this morning",
		Category:    domain.CategoryInternetFiber,
		Priority:    priority,
	}, f.client)
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

// activeTicket seeds a ticket already assigned to technicianID.
func (f *fixture) activeTicket(id, technicianID string, priority domain.TicketPriority, status domain.TicketStatus) {
	f.tickets.put(domain.Ticket{
		ID:           id,
		Code:         "REC-" + id,
		Title:        id,
		Description:  id,
		Category:     domain.CategoryTV,
		Priority:     priority,
		Status:       status,
		CreatorID:    f.client.ID,
		TechnicianID: ptr(technicianID),
		SLADeadline:  t0.Add(72 * time.Hour),
		CreatedAt:    t0,
		UpdatedAt:    t0,
	})
}
