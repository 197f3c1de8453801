package booking

import (
	"strings"

	"github.com/google/uuid"

	"github.com/krishnaroyalclub/krc-backend/pkg/types"
)

// BookingInput is the checkout payload of the guest site.
type BookingInput struct {
	ItemCodes      []string            `json:"item_codes"`
	ItemCode       string              `json:"item_code"`
	FromDate       string              `json:"from_date"`
	ToDate         string              `json:"to_date"`
	NumberOfPeople int                 `json:"number_of_people"`
	UserEmail      string              `json:"user_email"`
	Email          string              `json:"email"`
	Address        *types.AddressInput `json:"address_data"`
}

// Codes returns the requested item codes, accepting the single item_code
// form, trimmed and without blanks.
func (in BookingInput) Codes() []string {
	raw := in.ItemCodes
	if len(raw) == 0 && in.ItemCode != "" {
		raw = []string{in.ItemCode}
	}
	codes := make([]string, 0, len(raw))
	for _, code := range raw {
		if code = strings.TrimSpace(code); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

// BookingResult identifies the draft order created for the booking.
type BookingResult struct {
	Message      string    `json:"message"`
	OrderID      uuid.UUID `json:"order_id"`
	CustomerID   uuid.UUID `json:"customer_id"`
	CustomerName string    `json:"customer"`
}

// OpportunityInput carries the fallback identity of an unauthenticated caller.
type OpportunityInput struct {
	UserEmail string `json:"user_email"`
	Email     string `json:"email"`
}

// OpportunityResult identifies the recorded opportunity.
type OpportunityResult struct {
	Message       string    `json:"message"`
	OpportunityID uuid.UUID `json:"opportunity_id"`
	LeadName      string    `json:"lead"`
}
