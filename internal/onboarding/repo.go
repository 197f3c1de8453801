package onboarding

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
)

// Repository persists guest onboardings with their service and roommate rows.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts rec together with its child rows.
func (r *Repository) Create(ctx context.Context, rec *models.GuestOnboarding) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.GuestOnboarding, error) {
	var rec models.GuestOnboarding
	err := r.db.WithContext(ctx).
		Preload("Services", func(db *gorm.DB) *gorm.DB { return db.Order("idx ASC") }).
		Preload("Roommates", func(db *gorm.DB) *gorm.DB { return db.Order("idx ASC") }).
		First(&rec, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarkOnboarded moves a live draft to Onboarded. It reports false when the
// record was no longer a live draft.
func (r *Repository) MarkOnboarded(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.GuestOnboarding{}).
		Where("id = ? AND status = ? AND cancelled_at IS NULL", id, enums.OnboardingStatusDraft).
		UpdateColumns(map[string]any{
			"status":       enums.OnboardingStatusOnboarded,
			"submitted_at": at,
			"updated_at":   at,
		})
	return res.RowsAffected == 1, res.Error
}

// SaveDetails writes the staff-editable fields of a live draft. It reports
// false when the record was no longer a live draft.
func (r *Repository) SaveDetails(ctx context.Context, rec *models.GuestOnboarding, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.GuestOnboarding{}).
		Where("id = ? AND status = ? AND cancelled_at IS NULL", rec.ID, enums.OnboardingStatusDraft).
		UpdateColumns(map[string]any{
			"check_in_time":   rec.CheckInTime,
			"check_out_time":  rec.CheckOutTime,
			"nationality":     rec.Nationality,
			"id_proof_type":   rec.IDProofType,
			"id_number":       rec.IDNumber,
			"passport_number": rec.PassportNumber,
			"visa_number":     rec.VisaNumber,
			"updated_at":      at,
		})
	return res.RowsAffected == 1, res.Error
}

// MarkCancelled stamps cancelled_at once.
func (r *Repository) MarkCancelled(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.GuestOnboarding{}).
		Where("id = ? AND cancelled_at IS NULL", id).
		UpdateColumns(map[string]any{
			"cancelled_at": at,
			"updated_at":   at,
		})
	return res.RowsAffected == 1, res.Error
}

// SetUserPhoto stores the uploaded guest photo URL.
func (r *Repository) SetUserPhoto(ctx context.Context, id uuid.UUID, url string) error {
	return r.db.WithContext(ctx).Model(&models.GuestOnboarding{}).
		Where("id = ?", id).
		UpdateColumn("user_photo", url).Error
}

// SetRoommatePhoto stores the uploaded photo URL on one roommate row.
func (r *Repository) SetRoommatePhoto(ctx context.Context, roommateID uuid.UUID, url string) error {
	return r.db.WithContext(ctx).Model(&models.GuestRoommate{}).
		Where("id = ?", roommateID).
		UpdateColumn("photo", url).Error
}
