package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task is a unit of project work created when an order is submitted.
type Task struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Subject     string    `gorm:"column:subject;not null"`
	Description string    `gorm:"column:description;not null;default:''"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// TaskTemplate mirrors a submitted order's lines as an ordered task list.
type TaskTemplate struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null;uniqueIndex:ux_task_templates_name"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`

	Tasks []TaskTemplateTask `gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE"`
}

func (t *TaskTemplate) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// TaskTemplateTask is one ordered entry of a task template.
type TaskTemplateTask struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	TemplateID uuid.UUID `gorm:"column:template_id;type:uuid;not null;index"`
	Idx        int       `gorm:"column:idx;not null"`
	TaskID     uuid.UUID `gorm:"column:task_id;type:uuid;not null"`
	Subject    string    `gorm:"column:subject;not null"`
}

func (t *TaskTemplateTask) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
