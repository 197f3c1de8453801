package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("idx ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindActiveByCustomer returns the oldest non-cancelled order of customerID
// other than exclude, or gorm.ErrRecordNotFound.
func (r *repository) FindActiveByCustomer(ctx context.Context, customerID uuid.UUID, exclude uuid.UUID) (*models.Order, error) {
	var order models.Order
	query := r.db.WithContext(ctx).
		Where("customer_id = ? AND docstatus < ?", customerID, enums.DocStatusCancelled)
	if exclude != uuid.Nil {
		query = query.Where("id <> ?", exclude)
	}
	if err := query.Order("created_at ASC").First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// TransitionStatus moves the order from one docstatus to another. It reports
// false when the order was not in from, which makes concurrent transitions
// lose cleanly.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.DocStatus, at time.Time) (bool, error) {
	updates := map[string]any{
		"docstatus":  to,
		"updated_at": at,
	}
	switch to {
	case enums.DocStatusSubmitted:
		updates["submitted_at"] = at
	case enums.DocStatusCancelled:
		updates["cancelled_at"] = at
	}
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND docstatus = ?", id, from).
		UpdateColumns(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) TemplateExists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TaskTemplate{}).Where("name = ?", name).Count(&count).Error
	return count > 0, err
}

func (r *repository) CreateTask(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// CreateTemplate inserts the template together with its ordered task entries.
func (r *repository) CreateTemplate(ctx context.Context, template *models.TaskTemplate) error {
	return r.db.WithContext(ctx).Create(template).Error
}

func (r *repository) FindTemplateByName(ctx context.Context, name string) (*models.TaskTemplate, error) {
	var template models.TaskTemplate
	err := r.db.WithContext(ctx).
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("idx ASC") }).
		Where("name = ?", name).
		First(&template).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}
