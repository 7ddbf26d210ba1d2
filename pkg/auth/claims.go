package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
// Scope roles are resolved per request from the membership graph, so the
// token carries identity only.
type AccessTokenPayload struct {
	UserID          uuid.UUID
	ActiveCompanyID *int64
	JTI             string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID          uuid.UUID `json:"user_id"`
	ActiveCompanyID *int64    `json:"active_company_id,omitempty"`
	jwt.RegisteredClaims
}
