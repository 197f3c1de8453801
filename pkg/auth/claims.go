package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	AccountID uuid.UUID
	Email     string
	Roles     []enums.Role
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	AccountID uuid.UUID    `json:"account_id"`
	Email     string       `json:"email"`
	Roles     []enums.Role `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims carry role.
func (c *AccessTokenClaims) HasRole(role enums.Role) bool {
	if c == nil {
		return false
	}
	return slices.Contains(c.Roles, role)
}
