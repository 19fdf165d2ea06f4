package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hrdesk/helpdesk-service/internal/api/dto"
	"github.com/hrdesk/helpdesk-service/internal/auth"
	"github.com/hrdesk/helpdesk-service/internal/domain"
	"github.com/hrdesk/helpdesk-service/internal/service"
	apperrors "github.com/hrdesk/helpdesk-service/pkg/util"
)

// AccountsHandler manages signup, login and admin account provisioning.
type AccountsHandler struct {
	service *service.AuthService
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(authService *service.AuthService) *AccountsHandler {
	return &AccountsHandler{service: authService}
}

// Register POST /auth/register.
func (h *AccountsHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	account, token, exp, err := h.service.Register(c.UserContext(), req.Username, req.Email, req.Password, req.AreaID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AuthResponse{
		Account:   accountResponse(account),
		Token:     token,
		ExpiresAt: exp,
	}})
}

// Login POST /auth/login.
func (h *AccountsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	account, token, exp, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Account:   accountResponse(account),
		Token:     token,
		ExpiresAt: exp,
	}})
}

// Me GET /auth/me.
func (h *AccountsHandler) Me(c *fiber.Ctx) error {
	account, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": accountResponse(account)})
}

// CreateAccount POST /admin/accounts.
func (h *AccountsHandler) CreateAccount(c *fiber.Ctx) error {
	var req dto.CreateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	account, err := h.service.CreateAccount(c.UserContext(), req.Username, req.Email, req.Password, req.RoleID, req.AreaID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": accountResponse(account)})
}

func accountResponse(account *domain.Account) dto.AccountResponse {
	return dto.AccountResponse{
		ID:       account.ID,
		Username: account.Username,
		Email:    account.Email,
		RoleID:   account.RoleID,
		Kind:     account.RoleKind,
		AreaID:   account.AreaID,
		Active:   account.Active,
	}
}
