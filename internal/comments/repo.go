// Package comments stores free-text annotations on leads, orders and
// onboardings.
package comments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/db"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
)

// Repository persists comments.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to db, usually a transaction.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Add attaches content to the referenced record.
func (r *Repository) Add(ctx context.Context, refType enums.ReferenceType, refID uuid.UUID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("comment content is required")
	}
	comment := &models.Comment{
		ReferenceType: refType,
		ReferenceID:   refID,
		Content:       content,
	}
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// List returns the comments of a record, oldest first.
func (r *Repository) List(ctx context.Context, refType enums.ReferenceType, refID uuid.UUID) ([]models.Comment, error) {
	var out []models.Comment
	err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", refType, refID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// Annotate adds a comment inside a savepoint of tx. A failure is logged and
// swallowed; the caller's transaction is left intact.
func Annotate(ctx context.Context, tx *gorm.DB, logg *logger.Logger, refType enums.ReferenceType, refID uuid.UUID, content string) {
	err := db.Attempt(tx, "sp_comment", func(tx *gorm.DB) error {
		_, err := NewRepository(tx).Add(ctx, refType, refID, content)
		return err
	})
	if err != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"reference_type": string(refType),
			"reference_id":   refID.String(),
		})
		logg.Warn(logg.WithStep(ctx, "comment.add"), fmt.Sprintf("could not add comment: %v", err))
	}
}
