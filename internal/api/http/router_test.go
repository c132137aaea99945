package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

var errNotStubbed = errors.New("not stubbed")

type stubUsers map[string]*domain.User

func (s stubUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if user, ok := s[id]; ok {
		return user, nil
	}
	return nil, pgx.ErrNoRows
}

type stubTickets struct {
	calls       []string
	changeState error
	created     domain.Actor
}

func (s *stubTickets) Create(_ context.Context, input service.TicketCreateInput, actor domain.Actor) (*domain.Ticket, error) {
	s.calls = append(s.calls, "create")
	s.created = actor
	return &domain.Ticket{ID: "t-1", Code: "REC-00000001", Title: input.Title, Priority: input.Priority, Status: domain.TicketStatusOpen, CreatorID: actor.ID}, nil
}

func (s *stubTickets) Get(_ context.Context, id string, _ domain.Actor) (*service.TicketView, error) {
	s.calls = append(s.calls, "get")
	return &service.TicketView{Ticket: domain.Ticket{ID: id, Status: domain.TicketStatusOpen}, HoursRemaining: 12,
		NextStates: []domain.TicketStatus{domain.TicketStatusAssigned, domain.TicketStatusRejected}}, nil
}

func (s *stubTickets) List(context.Context, service.TicketListFilter, domain.Actor) (*service.TicketPage, error) {
	return nil, errNotStubbed
}

func (s *stubTickets) Stats(context.Context, domain.Actor) (*domain.TicketStats, error) {
	return nil, errNotStubbed
}

func (s *stubTickets) Update(context.Context, string, service.TicketPatch, domain.Actor) (*domain.Ticket, error) {
	return nil, errNotStubbed
}

func (s *stubTickets) Assign(context.Context, string, string, string, domain.Actor) (*domain.Ticket, error) {
	return nil, errNotStubbed
}

func (s *stubTickets) ChangeState(_ context.Context, _ string, next domain.TicketStatus, _ string, _ domain.Actor) (*domain.Ticket, error) {
	s.calls = append(s.calls, "state:"+string(next))
	return nil, s.changeState
}

func (s *stubTickets) Close(context.Context, string, string, string, domain.Actor) (*domain.Ticket, error) {
	s.calls = append(s.calls, "close")
	return nil, errNotStubbed
}

func (s *stubTickets) Reject(context.Context, string, string, domain.Actor) (*domain.Ticket, error) {
	return nil, errNotStubbed
}

type stubAudit struct{}

func (stubAudit) History(_ context.Context, ticketID string) ([]domain.AuditRecord, error) {
	return []domain.AuditRecord{{AuditEntry: domain.AuditEntry{ID: "a-1", TicketID: ticketID, Action: domain.AuditCreated}}}, nil
}

func (stubAudit) Statistics(context.Context, domain.AuditFilter) (*domain.AuditStats, error) {
	return &domain.AuditStats{ByAction: map[domain.AuditAction]int{}}, nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type testServer struct {
	app     *fiber.App
	tokens  *auth.TokenManager
	tickets *stubTickets
	metrics *observability.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	tokens := auth.NewTokenManager("test-secret", 5)
	users := stubUsers{
		"client-1": {ID: "client-1", Role: domain.RoleClient, Active: true},
		"sup-1":    {ID: "sup-1", Role: domain.RoleSupervisor, Active: true},
	}
	tickets := &stubTickets{}
	metrics := observability.NewMetrics()

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("complaint-service", "test", metrics, map[string]handlers.Pinger{"postgres": failingPinger{}}),
		Tickets:        handlers.NewTicketsHandler(tickets, nil, stubAudit{}),
		Activity:       handlers.NewActivityHandler(nil, nil),
		Technicians:    handlers.NewTechniciansHandler(nil, stubAudit{}),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, users),
	})
	return &testServer{app: app, tokens: tokens, tickets: tickets, metrics: metrics}
}

func (s *testServer) do(t *testing.T, method, path, userID, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		token, _, err := s.tokens.GenerateToken(userID, "")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func errorCode(body map[string]any) string {
	envelope, _ := body["error"].(map[string]any)
	code, _ := envelope["code"].(string)
	return code
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, nethttp.MethodGet, "/health/live", "", "")
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = s.do(t, nethttp.MethodGet, "/health/ready", "", "")
	assert.Equal(t, nethttp.StatusServiceUnavailable, status)
	assert.Equal(t, apperrors.CodeDependencyUnavailable, errorCode(body))

	status, body = s.do(t, nethttp.MethodGet, "/metrics", "", "")
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Contains(t, body, "requests")
}

func TestAPIRequiresAuthentication(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, nethttp.MethodGet, "/api/v1/tickets/t-1", "", "")
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeUnauthorized, errorCode(body))
	assert.Empty(t, s.tickets.calls)

	status, body = s.do(t, nethttp.MethodGet, "/nowhere", "", "")
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, apperrors.CodeNotFound, errorCode(body))
}

func TestCreateTicketUsesAuthenticatedActor(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, nethttp.MethodPost, "/api/v1/tickets", "client-1", `{"title":"No signal","priority":"ALTA"}`)
	require.Equal(t, nethttp.StatusCreated, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "REC-00000001", data["code"])
	assert.Equal(t, "client-1", data["creator_id"])
	assert.Equal(t, domain.Actor{ID: "client-1", Role: domain.RoleClient}, s.tickets.created)

	status, _ = s.do(t, nethttp.MethodPost, "/api/v1/tickets", "client-1", `{"title":`)
	assert.Equal(t, nethttp.StatusBadRequest, status)
}

func TestGetTicketCarriesDerivedFields(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, nethttp.MethodGet, "/api/v1/tickets/t-9", "client-1", "")
	require.Equal(t, nethttp.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "t-9", data["id"])
	assert.Equal(t, false, data["overdue"])
	assert.EqualValues(t, 12, data["hours_remaining"])
	assert.Equal(t, []any{"ASSIGNED", "REJECTED"}, data["next_states"])
}

func TestRoleGatesRunBeforeServices(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, nethttp.MethodPost, "/api/v1/tickets/t-1/close", "client-1", `{"solution":"fixed"}`)
	assert.Equal(t, nethttp.StatusForbidden, status)
	assert.Equal(t, apperrors.CodeForbidden, errorCode(body))

	status, _ = s.do(t, nethttp.MethodGet, "/api/v1/tickets/t-1/audit", "client-1", "")
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, _ = s.do(t, nethttp.MethodGet, "/api/v1/audit/stats", "client-1", "")
	assert.Equal(t, nethttp.StatusForbidden, status)
	assert.Empty(t, s.tickets.calls)

	status, body = s.do(t, nethttp.MethodGet, "/api/v1/tickets/t-1/audit", "sup-1", "")
	require.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, body["data"], 1)
}

func TestDomainErrorsAreRendered(t *testing.T) {
	s := newTestServer(t)
	s.tickets.changeState = apperrors.NewInvalidTransition("OPEN", "CLOSED")

	status, body := s.do(t, nethttp.MethodPatch, "/api/v1/tickets/t-1/state/closed", "sup-1", "")
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeInvalidTransition, errorCode(body))
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "OPEN", details["from"])
	assert.Equal(t, "CLOSED", details["to"])
	assert.Equal(t, []string{"state:CLOSED"}, s.tickets.calls)

	status, body = s.do(t, nethttp.MethodGet, "/api/v1/audit/stats?from=yesterday", "sup-1", "")
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeValidation, errorCode(body))

	snapshot := s.metrics.Snapshot()
	assert.NotEmpty(t, snapshot.Errors)
}
