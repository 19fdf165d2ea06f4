package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/hrdesk/helpdesk-service/internal/domain"
	"github.com/hrdesk/helpdesk-service/internal/repository"
	apperrors "github.com/hrdesk/helpdesk-service/pkg/util"
)

const principalKey = "auth_principal"

// Middleware validates bearer tokens and loads the calling account.
type Middleware struct {
	tokens   *TokenManager
	accounts repository.AccountRepository
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, accounts repository.AccountRepository) *Middleware {
	return &Middleware{tokens: tokens, accounts: accounts}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	account, err := m.accounts.GetByID(c.Context(), claims.AccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("account not found")
		}
		return apperrors.MapError(err)
	}
	if !account.Active {
		return apperrors.NewUnauthorized("account is disabled")
	}

	c.Locals(principalKey, account)
	return c.Next()
}

// AccountFromContext retrieves the authenticated account.
func AccountFromContext(c *fiber.Ctx) (*domain.Account, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	account, ok := val.(*domain.Account)
	return account, ok
}
