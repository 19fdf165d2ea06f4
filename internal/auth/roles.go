package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hrdesk/helpdesk-service/internal/domain"
)

// RequireKind gates a route to accounts of the given kinds. Admins pass
// every gate.
func RequireKind(allowed ...domain.RoleKind) fiber.Handler {
	allowedSet := make(map[domain.RoleKind]struct{}, len(allowed))
	for _, kind := range allowed {
		allowedSet[kind] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		account, ok := AccountFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if account.IsAdmin() || len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[account.RoleKind]; !exists {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}

// RequireAgent gates a route to agents and admins.
func RequireAgent() fiber.Handler {
	return RequireKind(domain.RoleKindAgent)
}

// RequireAdmin gates a route to admins only.
func RequireAdmin() fiber.Handler {
	return RequireKind(domain.RoleKindAdmin)
}
