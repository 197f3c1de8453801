// Package leads persists prospective customers and the opportunities raised
// for them.
package leads

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/db"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
)

// Repository exposes lead and opportunity persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to db, usually a transaction.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByEmail returns the lead registered under the normalized email or
// gorm.ErrRecordNotFound.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Lead, error) {
	var lead models.Lead
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&lead).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

// FindByID loads a lead by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	if err := r.db.WithContext(ctx).First(&lead, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

// NameExists reports whether a lead already uses name.
func (r *Repository) NameExists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Lead{}).Where("name = ?", name).Count(&count).Error
	return count > 0, err
}

// Create inserts lead.
func (r *Repository) Create(ctx context.Context, lead *models.Lead) error {
	return r.db.WithContext(ctx).Create(lead).Error
}

// CreateOpportunity inserts an opportunity.
func (r *Repository) CreateOpportunity(ctx context.Context, opp *models.Opportunity) error {
	return r.db.WithContext(ctx).Create(opp).Error
}

// ListOpportunities returns every opportunity raised for a lead, newest first.
func (r *Repository) ListOpportunities(ctx context.Context, leadID uuid.UUID) ([]models.Opportunity, error) {
	var out []models.Opportunity
	err := r.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// IsDuplicateEmail reports whether err is the lead email unique violation.
func IsDuplicateEmail(err error) bool {
	return db.IsUniqueViolationOn(err, "ux_leads_email", "leads.email")
}

// IsDuplicate reports whether err is any lead unique violation.
func IsDuplicate(err error) bool {
	return db.IsUniqueViolationOn(err, "ux_leads_email", "leads.email", "ux_leads_name", "leads.name")
}
