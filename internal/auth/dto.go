package auth

import (
	"strings"

	"github.com/krishnaroyalclub/krc-backend/internal/accounts"
	"github.com/krishnaroyalclub/krc-backend/internal/leads"
)

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionTokens is the bearer session established at login.
type SessionTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// LoginResponse carries the profile, the lead registered under the same email
// when there is one, and the session.
type LoginResponse struct {
	Message string            `json:"message"`
	User    *accounts.Profile `json:"user"`
	Lead    *leads.Summary    `json:"lead,omitempty"`
	Session SessionTokens     `json:"session"`
}

// RefreshRequest rotates a session. The access token may be expired.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ForgotPasswordRequest asks for a reset link.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest redeems a reset link. The link key may be sent as
// either key or token.
type ResetPasswordRequest struct {
	Key         string `json:"key"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ResetKey returns the supplied link key.
func (r ResetPasswordRequest) ResetKey() string {
	if key := strings.TrimSpace(r.Key); key != "" {
		return key
	}
	return strings.TrimSpace(r.Token)
}
