package accounts

import (
	"github.com/krishnaroyalclub/krc-backend/internal/leads"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
)

// CreateAccountInput is the guest registration payload.
type CreateAccountInput struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// CreateAccountResult is returned after a successful registration.
type CreateAccountResult struct {
	Lead *leads.Summary `json:"lead"`
}

// Profile is the public shape of an account.
type Profile struct {
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	FullName  string   `json:"full_name"`
	MobileNo  string   `json:"mobile_no"`
	Roles     []string `json:"roles"`
}

// ProfileFromModel maps an account to its public profile.
func ProfileFromModel(a *models.Account) *Profile {
	if a == nil {
		return nil
	}
	return &Profile{
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		FullName:  a.FullName,
		MobileNo:  a.MobileNo,
		Roles:     a.Roles.Strings(),
	}
}
