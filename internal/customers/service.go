package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/config"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
	"github.com/krishnaroyalclub/krc-backend/pkg/naming"
	"github.com/krishnaroyalclub/krc-backend/pkg/types"
)

const fallbackCustomerName = "Customer"

// Profile identifies the person a customer is looked up or created for.
type Profile struct {
	Email     string
	FullName  string
	FirstName string
	LastName  string
	MobileNo  string
}

// DisplayName returns the full name, else first and last name joined, else
// "Customer".
func (p Profile) DisplayName() string {
	if name := strings.TrimSpace(p.FullName); name != "" {
		return name
	}
	if name := naming.FullName(p.FirstName, p.LastName); name != "" {
		return name
	}
	return fallbackCustomerName
}

// GetOrCreate returns the customer registered for profile.Email, creating one
// with a unique name when none exists. The boolean reports creation.
func GetOrCreate(ctx context.Context, repo *Repository, profile Profile, defaults config.DefaultsConfig) (*models.Customer, bool, error) {
	email := strings.ToLower(strings.TrimSpace(profile.Email))
	if email == "" {
		return nil, false, errors.New("customer email is required")
	}

	existing, err := repo.FindByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	name, err := naming.ResolveUniqueName(ctx, profile.DisplayName(), repo.NameExists)
	if err != nil {
		return nil, false, err
	}
	customer := &models.Customer{
		Name:          name,
		CustomerName:  name,
		Email:         email,
		MobileNo:      strings.TrimSpace(profile.MobileNo),
		CustomerGroup: defaults.CustomerGroup,
		CustomerType:  defaults.CustomerType,
		Territory:     defaults.Territory,
	}
	if err := repo.Create(ctx, customer); err != nil {
		return nil, false, err
	}
	return customer, true, nil
}

// AddressFromInput builds an unsaved address for customer. It returns nil
// when the input lacks a required field.
func AddressFromInput(customer *models.Customer, in *types.AddressInput, fallbackEmail string, defaults config.DefaultsConfig) *models.Address {
	if customer == nil || !in.IsComplete() {
		return nil
	}
	addressType := enums.AddressTypeShipping
	if t := strings.TrimSpace(in.AddressType); t != "" {
		addressType = enums.AddressType(t)
	}
	title := strings.TrimSpace(in.AddressTitle)
	if title == "" {
		title = fmt.Sprintf("%s-%s", customer.Name, addressType)
	}
	country := strings.TrimSpace(in.Country)
	if country == "" {
		country = defaults.Country
	}
	email := strings.TrimSpace(in.EmailID)
	if email == "" {
		email = fallbackEmail
	}
	return &models.Address{
		CustomerID:  customer.ID,
		Title:       title,
		AddressType: addressType,
		Line1:       strings.TrimSpace(in.AddressLine1),
		Line2:       strings.TrimSpace(in.AddressLine2),
		City:        strings.TrimSpace(in.City),
		State:       strings.TrimSpace(in.State),
		Pincode:     strings.TrimSpace(in.Pincode),
		Country:     country,
		Phone:       strings.TrimSpace(in.Phone),
		Email:       email,
	}
}

// AddressID returns a pointer to the address id, or nil for a nil address.
func AddressID(address *models.Address) *uuid.UUID {
	if address == nil {
		return nil
	}
	id := address.ID
	return &id
}

// ProfileFromAccount describes the customer an account books as.
func ProfileFromAccount(account *models.Account) Profile {
	if account == nil {
		return Profile{}
	}
	return Profile{
		Email:     account.Email,
		FullName:  account.FullName,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		MobileNo:  account.MobileNo,
	}
}

// Ensure is GetOrCreate with errors typed for API callers. Losing an insert
// race to a concurrent request for the same email is a CONFLICT.
func Ensure(ctx context.Context, repo *Repository, profile Profile, defaults config.DefaultsConfig) (*models.Customer, error) {
	customer, _, err := GetOrCreate(ctx, repo, profile, defaults)
	if err != nil {
		if IsDuplicate(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "Customer is being created by another request, please retry")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve customer")
	}
	return customer, nil
}
