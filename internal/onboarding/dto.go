package onboarding

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
)

// CreateInput is the guest stay payload posted by the booking site.
type CreateInput struct {
	UserEmail         string          `json:"user_email"`
	Email             string          `json:"email"`
	FromDate          string          `json:"from_date"`
	ToDate            string          `json:"to_date"`
	NoOfGuests        int             `json:"no_of_guests"`
	Nationality       string          `json:"nationality"`
	IDProofType       string          `json:"id_proof_type"`
	IDProofNumber     string          `json:"id_proof_number"`
	PassportNumber    string          `json:"passport_number"`
	VisaNumber        string          `json:"visa_number"`
	UserPhoto         string          `json:"user_photo"`
	UserPhotoFilename string          `json:"user_photo_filename"`
	Services          []ServiceInput  `json:"service_type"`
	Roommates         []RoommateInput `json:"roommates"`
}

// ServiceInput is one selected service row. Either code field may be used.
type ServiceInput struct {
	ServiceType string          `json:"service_type"`
	ItemCode    string          `json:"item_code"`
	Rate        decimal.Decimal `json:"rate"`
}

// Code returns the item code of the row, or "" when none was given.
func (s ServiceInput) Code() string {
	if code := strings.TrimSpace(s.ServiceType); code != "" {
		return code
	}
	return strings.TrimSpace(s.ItemCode)
}

// RoommateInput is one additional occupant.
type RoommateInput struct {
	Guest             string `json:"guest"`
	ServiceType       string `json:"service_type"`
	FromDate          string `json:"from_date"`
	ToDate            string `json:"to_date"`
	CheckInTime       string `json:"check_in_time"`
	CheckOutTime      string `json:"check_out_time"`
	NoOfGuests        int    `json:"no_of_guests"`
	Nationality       string `json:"nationality"`
	IDProofType       string `json:"id_proof_type"`
	IDProofNumber     string `json:"id_proof_number"`
	UserPhoto         string `json:"user_photo"`
	UserPhotoFilename string `json:"user_photo_filename"`
}

// CreateResult is returned by a successful intake.
type CreateResult struct {
	Message      string    `json:"message"`
	OnboardingID uuid.UUID `json:"onboarding_id"`
	Notices      []string  `json:"notices"`
}

// TransitionResult is returned by the staff lifecycle endpoints.
type TransitionResult struct {
	OnboardingID uuid.UUID              `json:"onboarding_id"`
	Status       enums.OnboardingStatus `json:"status"`
	Cancelled    bool                   `json:"cancelled"`
	Notices      []string               `json:"notices"`
}

// TransitionInput identifies the onboarding and the staff member acting on it.
type TransitionInput struct {
	OnboardingID uuid.UUID
	ActorID      uuid.UUID
	ActorRole    enums.Role
}

// DetailsInput is a staff correction of a draft onboarding. Nil fields keep
// their stored value.
type DetailsInput struct {
	CheckInTime    *string `json:"check_in_time"`
	CheckOutTime   *string `json:"check_out_time"`
	Nationality    *string `json:"nationality"`
	IDProofType    *string `json:"id_proof_type"`
	IDProofNumber  *string `json:"id_proof_number"`
	PassportNumber *string `json:"passport_number"`
	VisaNumber     *string `json:"visa_number"`
}

func (d DetailsInput) empty() bool {
	return d.CheckInTime == nil && d.CheckOutTime == nil && d.Nationality == nil &&
		d.IDProofType == nil && d.IDProofNumber == nil && d.PassportNumber == nil && d.VisaNumber == nil
}

// UpdateInput is a staff edit of one onboarding.
type UpdateInput struct {
	TransitionInput
	Details DetailsInput
}

// UpdateResult echoes the saved stay times with any save notices.
type UpdateResult struct {
	OnboardingID uuid.UUID              `json:"onboarding_id"`
	Status       enums.OnboardingStatus `json:"status"`
	CheckInTime  string                 `json:"check_in_time"`
	CheckOutTime string                 `json:"check_out_time"`
	Notices      []string               `json:"notices"`
}
