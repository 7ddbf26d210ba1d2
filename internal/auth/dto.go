package auth

import (
	"github.com/tilldesk/tilldesk-backend/internal/users"
	"github.com/tilldesk/tilldesk-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest captures a new portal account signup.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=12"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

// RefreshRequest carries the rotation inputs for a new token pair.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// GrantSummary lists one active grant so clients can draw navigation
// without extra round trips. The resolver remains the authority at
// request time.
type GrantSummary struct {
	Scope   enums.Scope `json:"scope"`
	ScopeID int64       `json:"scope_id"`
	Role    enums.Role  `json:"role"`
}

// LoginResponse contains the token pair, user, and grant list produced
// by a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	Grants       []GrantSummary `json:"grants"`
	User         *users.UserDTO `json:"user"`
}

// RegisterResponse mirrors LoginResponse for the signup flow; fresh
// accounts hold no grants until someone assigns them.
type RegisterResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}

// RefreshResponse carries the rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
