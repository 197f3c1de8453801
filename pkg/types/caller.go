package types

import (
	"strings"

	"github.com/google/uuid"
)

// Caller identifies who invoked a guest endpoint. AccountID and Email are set
// only when the request carried a valid session.
type Caller struct {
	AccountID uuid.UUID
	Email     string
}

// Authenticated reports whether a session identity is present.
func (c Caller) Authenticated() bool {
	return c.AccountID != uuid.Nil && c.Email != ""
}

// ResolveEmail returns the session email, else the first non-blank fallback,
// lower-cased and trimmed.
func (c Caller) ResolveEmail(fallbacks ...string) string {
	if c.Authenticated() {
		return normalize(c.Email)
	}
	for _, candidate := range fallbacks {
		if email := normalize(candidate); email != "" {
			return email
		}
	}
	return ""
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
