package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
)

// Repository defines persistence operations for orders and the task
// templates materialized from them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindActiveByCustomer(ctx context.Context, customerID uuid.UUID, exclude uuid.UUID) (*models.Order, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.DocStatus, at time.Time) (bool, error)
	TemplateExists(ctx context.Context, name string) (bool, error)
	CreateTask(ctx context.Context, task *models.Task) error
	CreateTemplate(ctx context.Context, template *models.TaskTemplate) error
	FindTemplateByName(ctx context.Context, name string) (*models.TaskTemplate, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
