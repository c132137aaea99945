package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/domain"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// RequireRole ensures the caller holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[actor.Role]; !exists {
			return apperrors.NewForbiddenWithDetails("insufficient role", map[string]any{"role": string(actor.Role)})
		}
		return c.Next()
	}
}

// RequireStaff allows ADMIN and SUPERVISOR.
func RequireStaff() fiber.Handler {
	return RequireRole(domain.RoleAdmin, domain.RoleSupervisor)
}

// RequireAuthenticated ensures some actor is attached.
func RequireAuthenticated() fiber.Handler {
	return RequireRole()
}
