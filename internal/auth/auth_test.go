package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-service/internal/domain"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

type mapUsers map[string]*domain.User

func (m mapUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if user, ok := m[id]; ok {
		return user, nil
	}
	return nil, pgx.ErrNoRows
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, expires, err := tm.GenerateToken("u-1", domain.RoleTechnician)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), expires, time.Minute)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, domain.RoleTechnician, claims.Role)

	_, err = NewTokenManager("other", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	token, _, err := tm.GenerateToken("u-1", domain.RoleClient)
	require.NoError(t, err)

	tm.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func newAuthApp(users mapUsers, tm *TokenManager, gate fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
		},
	})
	mw := NewAuthMiddleware(tm, users)
	app.Get("/me", mw.Handle, gate, func(c *fiber.Ctx) error {
		actor, _ := ActorFromContext(c)
		return c.SendString(actor.ID + ":" + string(actor.Role))
	})
	return app
}

func TestMiddlewareLoadsActorAndGatesRoles(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	users := mapUsers{
		"sup-1":  {ID: "sup-1", Role: domain.RoleSupervisor, Active: true},
		"cli-1":  {ID: "cli-1", Role: domain.RoleClient, Active: true},
		"gone-1": {ID: "gone-1", Role: domain.RoleAdmin, Active: false},
	}
	app := newAuthApp(users, tm, RequireStaff())

	call := func(header string) *http.Response {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}
	bearer := func(id string, role domain.Role) string {
		token, _, err := tm.GenerateToken(id, role)
		require.NoError(t, err)
		return "Bearer " + token
	}

	assert.Equal(t, http.StatusUnauthorized, call("").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, call("Basic abc").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, call("Bearer not-a-token").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, call(bearer("nobody", domain.RoleAdmin)).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, call(bearer("gone-1", domain.RoleAdmin)).StatusCode)
	// The stored role wins over the claim.
	assert.Equal(t, http.StatusForbidden, call(bearer("cli-1", domain.RoleAdmin)).StatusCode)
	assert.Equal(t, http.StatusOK, call(bearer("sup-1", domain.RoleSupervisor)).StatusCode)
}
