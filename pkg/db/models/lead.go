package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
)

// Lead is a prospective customer.
type Lead struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Name      string           `gorm:"column:name;not null;uniqueIndex:ux_leads_name"`
	LeadName  string           `gorm:"column:lead_name;not null"`
	Email     string           `gorm:"column:email;type:text;not null;uniqueIndex:ux_leads_email"`
	Phone     string           `gorm:"column:phone;not null;default:''"`
	Status    enums.LeadStatus `gorm:"column:status;type:text;not null"`
	Territory string           `gorm:"column:territory;not null"`
	Company   string           `gorm:"column:company;not null"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *Lead) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

// Opportunity records sales interest raised for a lead.
type Opportunity struct {
	ID              uuid.UUID               `gorm:"type:uuid;primaryKey"`
	OpportunityFrom enums.OpportunityFrom   `gorm:"column:opportunity_from;type:text;not null"`
	PartyName       string                  `gorm:"column:party_name;not null"`
	LeadID          uuid.UUID               `gorm:"column:lead_id;type:uuid;not null;index"`
	Status          enums.OpportunityStatus `gorm:"column:status;type:text;not null"`
	Company         string                  `gorm:"column:company;not null"`
	ContactEmail    string                  `gorm:"column:contact_email;not null;default:''"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (o *Opportunity) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
