package leads

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/config"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
	"github.com/krishnaroyalclub/krc-backend/pkg/naming"
)

const fallbackLeadName = "Customer"

// GetOrCreate returns the lead registered for profile.Email, creating one
// with a unique name when none exists. The boolean reports creation.
func GetOrCreate(ctx context.Context, repo *Repository, profile Profile, defaults config.DefaultsConfig) (*models.Lead, bool, error) {
	email := strings.ToLower(strings.TrimSpace(profile.Email))
	if email == "" {
		return nil, false, errors.New("lead email is required")
	}

	existing, err := repo.FindByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	lead, err := NewLead(ctx, repo, profile, defaults)
	if err != nil {
		return nil, false, err
	}
	if err := repo.Create(ctx, lead); err != nil {
		return nil, false, err
	}
	return lead, true, nil
}

// NewLead builds an unsaved lead for profile, resolving a unique name.
func NewLead(ctx context.Context, repo *Repository, profile Profile, defaults config.DefaultsConfig) (*models.Lead, error) {
	display := strings.TrimSpace(profile.Name)
	if display == "" {
		display = fallbackLeadName
	}
	name, err := naming.ResolveUniqueName(ctx, display, repo.NameExists)
	if err != nil {
		return nil, err
	}
	return &models.Lead{
		Name:      name,
		LeadName:  display,
		Email:     strings.ToLower(strings.TrimSpace(profile.Email)),
		Phone:     strings.TrimSpace(profile.Phone),
		Status:    enums.LeadStatusNew,
		Territory: defaults.Territory,
		Company:   defaults.Company,
	}, nil
}
