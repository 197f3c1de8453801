package notifications

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/db"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
)

const defaultListLimit = 20

// Repository persists the delivery log of notification emails.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	ListByRecipient(ctx context.Context, recipient string, limit int) ([]models.Notification, error)
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// Create inserts the log row. A row already recorded for the same event is
// left untouched.
func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	err := r.db.WithContext(ctx).Create(notification).Error
	if db.IsUniqueViolationOn(err, "ux_notifications_event_id", "notifications.event_id") {
		return nil
	}
	return err
}

// ListByRecipient returns the newest deliveries for an address.
func (r *repositoryImpl) ListByRecipient(ctx context.Context, recipient string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var rows []models.Notification
	err := r.db.WithContext(ctx).
		Where("lower(recipient) = ?", strings.ToLower(strings.TrimSpace(recipient))).
		Order("sent_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// DeleteOlderThan prunes log rows sent before cutoff.
func (r *repositoryImpl) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	res := conn.WithContext(ctx).Where("sent_at < ?", cutoff).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
