package dto

import (
	"time"

	"github.com/hrdesk/helpdesk-service/internal/domain"
)

// RegisterRequest payload for self-service signup.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	AreaID   *int64 `json:"area_id"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateAccountRequest payload for admin provisioning.
type CreateAccountRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleID   int64  `json:"role_id"`
	AreaID   *int64 `json:"area_id"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID       int64           `json:"id"`
	Username string          `json:"username"`
	Email    string          `json:"email"`
	RoleID   *int64          `json:"role_id"`
	Kind     domain.RoleKind `json:"kind"`
	AreaID   *int64          `json:"area_id"`
	Active   bool            `json:"active"`
}

// AuthResponse carries an account plus its session token.
type AuthResponse struct {
	Account   AccountResponse `json:"account"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
}
