package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID string
	Email  string
	// JTI doubles as the Redis session key; generated when empty.
	JTI string
}

// AccessTokenClaims represents the typed JWT issued to clients. The role is
// deliberately absent: it is resolved from the user profile per session.
type AccessTokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
