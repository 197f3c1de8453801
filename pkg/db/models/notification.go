package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
)

// Notification records one email delivered for an outbox event.
type Notification struct {
	ID                uuid.UUID              `gorm:"type:uuid;primaryKey"`
	EventID           uuid.UUID              `gorm:"column:event_id;type:uuid;not null;uniqueIndex:ux_notifications_event_id"`
	EventType         enums.OutboxEventType  `gorm:"column:event_type;type:text;not null"`
	Type              enums.NotificationType `gorm:"column:type;type:text;not null"`
	Recipient         string                 `gorm:"column:recipient;type:text;not null"`
	Subject           string                 `gorm:"column:subject;type:text;not null"`
	ProviderMessageID string                 `gorm:"column:provider_message_id;type:text"`
	SentAt            time.Time              `gorm:"column:sent_at;type:timestamptz;not null"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
