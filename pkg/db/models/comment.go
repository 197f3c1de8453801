package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
)

// Comment is a free-text annotation attached to a lead, order or onboarding.
type Comment struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey"`
	ReferenceType enums.ReferenceType `gorm:"column:reference_type;type:text;not null;index:ix_comments_reference"`
	ReferenceID   uuid.UUID           `gorm:"column:reference_id;type:uuid;not null;index:ix_comments_reference"`
	Content       string              `gorm:"column:content;type:text;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (c *Comment) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
