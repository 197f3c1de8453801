// Package customers persists billable parties and their addresses.
package customers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/db"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
)

// Repository exposes customer and address persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to db, usually a transaction.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByEmail returns the customer for the normalized email or
// gorm.ErrRecordNotFound.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindByID loads a customer by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// NameExists reports whether a customer already uses name.
func (r *Repository) NameExists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Customer{}).Where("name = ?", name).Count(&count).Error
	return count > 0, err
}

// Create inserts customer.
func (r *Repository) Create(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

// CreateAddress inserts an address linked to its customer.
func (r *Repository) CreateAddress(ctx context.Context, address *models.Address) error {
	return r.db.WithContext(ctx).Create(address).Error
}

// ListAddresses returns the customer's addresses, oldest first.
func (r *Repository) ListAddresses(ctx context.Context, customerID uuid.UUID) ([]models.Address, error) {
	var out []models.Address
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// IsDuplicate reports whether err is a customer unique violation.
func IsDuplicate(err error) bool {
	return db.IsUniqueViolationOn(err, "ux_customers_email", "customers.email", "ux_customers_name", "customers.name")
}
