// Package accounts provisions guest login identities together with their lead.
package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/db"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	dbtypes "github.com/krishnaroyalclub/krc-backend/pkg/db/types"
)

// Repository exposes account persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to db, usually a transaction.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts account.
func (r *Repository) Create(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// FindByEmail returns the account for the normalized email or
// gorm.ErrRecordNotFound.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByID loads an account by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByResetKey returns the account holding the given reset key digest.
func (r *Repository) FindByResetKey(ctx context.Context, keyHash string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("reset_password_key = ?", keyHash).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// SetRoles overwrites the account's role set.
func (r *Repository) SetRoles(ctx context.Context, id uuid.UUID, roles dbtypes.RoleSet) error {
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		UpdateColumn("roles", roles).Error
}

// SetResetKey stores the digest of a freshly issued reset token.
func (r *Repository) SetResetKey(ctx context.Context, id uuid.UUID, keyHash string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"reset_password_key":     keyHash,
			"reset_key_generated_at": at,
		}).Error
}

// ClearResetKey forgets any outstanding reset token.
func (r *Repository) ClearResetKey(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"reset_password_key":     nil,
			"reset_key_generated_at": nil,
		}).Error
}

// UpdatePassword replaces the credential and clears the reset token.
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"password_hash":          passwordHash,
			"reset_password_key":     nil,
			"reset_key_generated_at": nil,
			"updated_at":             time.Now().UTC(),
		}).Error
}

// ConsumeResetKey swaps the credential only while keyHash is still the
// stored reset key. It reports false when another redeem got there first.
func (r *Repository) ConsumeResetKey(ctx context.Context, id uuid.UUID, keyHash, passwordHash string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ? AND reset_password_key = ?", id, keyHash).
		UpdateColumns(map[string]any{
			"password_hash":          passwordHash,
			"reset_password_key":     nil,
			"reset_key_generated_at": nil,
			"updated_at":             time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ClearResetKeysIssuedBefore drops reset tokens generated before cutoff.
func (r *Repository) ClearResetKeysIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("reset_password_key IS NOT NULL AND reset_key_generated_at < ?", cutoff).
		UpdateColumns(map[string]any{
			"reset_password_key":     nil,
			"reset_key_generated_at": nil,
		})
	return res.RowsAffected, res.Error
}

// UpdateLastLogin refreshes last_login_at.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// IsDuplicateEmail reports whether err is the account email unique violation.
func IsDuplicateEmail(err error) bool {
	return db.IsUniqueViolationOn(err, "ux_accounts_email", "accounts.email")
}
