package accounts

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/krishnaroyalclub/krc-backend/pkg/security"
)

const defaultMinPasswordLength = 6

var (
	emailValidate = validator.New()
	emailTLD      = regexp.MustCompile(`@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email is a local@domain.tld address.
func ValidEmail(email string) bool {
	if emailValidate.Var(email, "required,email") != nil {
		return false
	}
	return emailTLD.MatchString(email)
}

// PasswordLengthMessage returns the validation message for a password shorter
// than minLen, or "" when it is long enough.
func PasswordLengthMessage(password string, minLen int) string {
	if minLen <= 0 {
		minLen = defaultMinPasswordLength
	}
	if security.CheckPasswordLength(password, minLen) {
		return ""
	}
	return fmt.Sprintf("Password must be at least %d characters long", minLen)
}
