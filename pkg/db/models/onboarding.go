package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
)

// GuestOnboarding is a guest stay record. Its OrderID and the order's
// OnboardingID are maintained together and only through the links package.
type GuestOnboarding struct {
	ID             uuid.UUID              `gorm:"type:uuid;primaryKey"`
	CustomerID     uuid.UUID              `gorm:"column:customer_id;type:uuid;not null;index"`
	Guest          string                 `gorm:"column:guest;not null"`
	FromDate       time.Time              `gorm:"column:from_date;type:date;not null"`
	ToDate         time.Time              `gorm:"column:to_date;type:date;not null"`
	CheckInTime    string                 `gorm:"column:check_in_time;not null;default:''"`
	CheckOutTime   string                 `gorm:"column:check_out_time;not null;default:''"`
	NoOfGuests     int                    `gorm:"column:no_of_guests;not null"`
	Nationality    string                 `gorm:"column:nationality;not null"`
	IDProofType    enums.IDProofType      `gorm:"column:id_proof_type;type:text;not null;default:''"`
	IDNumber       string                 `gorm:"column:id_number;not null;default:''"`
	PassportNumber string                 `gorm:"column:passport_number;not null;default:''"`
	VisaNumber     string                 `gorm:"column:visa_number;not null;default:''"`
	UserPhoto      string                 `gorm:"column:user_photo;not null;default:''"`
	Status         enums.OnboardingStatus `gorm:"column:status;type:text;not null"`
	OrderID        *uuid.UUID             `gorm:"column:order_id;type:uuid;index"`
	SubmittedAt    *time.Time             `gorm:"column:submitted_at"`
	CancelledAt    *time.Time             `gorm:"column:cancelled_at"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time              `gorm:"column:updated_at;autoUpdateTime"`

	Services  []GuestOnboardingService `gorm:"foreignKey:OnboardingID;constraint:OnDelete:CASCADE"`
	Roommates []GuestRoommate          `gorm:"foreignKey:OnboardingID;constraint:OnDelete:CASCADE"`
}

func (g *GuestOnboarding) BeforeCreate(*gorm.DB) error {
	ensureID(&g.ID)
	if g.Status == "" {
		g.Status = enums.OnboardingStatusDraft
	}
	return nil
}

// GuestOnboardingService is one selected service on an onboarding.
type GuestOnboardingService struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OnboardingID uuid.UUID       `gorm:"column:onboarding_id;type:uuid;not null;index"`
	Idx          int             `gorm:"column:idx;not null"`
	ItemCode     string          `gorm:"column:item_code;not null"`
	Rate         decimal.Decimal `gorm:"column:rate;type:numeric(18,2);not null;default:0"`
}

func (s *GuestOnboardingService) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// GuestRoommate is an additional occupant sharing the stay.
type GuestRoommate struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey"`
	OnboardingID uuid.UUID         `gorm:"column:onboarding_id;type:uuid;not null;index"`
	Idx          int               `gorm:"column:idx;not null"`
	Guest        string            `gorm:"column:guest;not null;default:''"`
	ServiceType  string            `gorm:"column:service_type;not null;default:''"`
	FromDate     *time.Time        `gorm:"column:from_date;type:date"`
	ToDate       *time.Time        `gorm:"column:to_date;type:date"`
	CheckInTime  string            `gorm:"column:check_in_time;not null;default:''"`
	CheckOutTime string            `gorm:"column:check_out_time;not null;default:''"`
	NoOfGuests   int               `gorm:"column:no_of_guests;not null;default:1"`
	Nationality  string            `gorm:"column:nationality;not null;default:''"`
	IDProofType  enums.IDProofType `gorm:"column:id_proof_type;type:text;not null;default:''"`
	IDNumber     string            `gorm:"column:id_number;not null;default:''"`
	Photo        string            `gorm:"column:photo;not null;default:''"`
}

func (r *GuestRoommate) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
