// Package onboarding implements the guest onboarding lifecycle: intake from
// the guest site, save-time validation and the Draft to Onboarded transition
// that confirms the guest's order.
package onboarding

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
	"github.com/krishnaroyalclub/krc-backend/pkg/types"
)

const (
	LateCheckoutNotice = "Checkout after 11 AM — 1 extra day will be charged."
	PassportRequired   = "For Non-Indian Guests, Passport and Visa details are mandatory when ID Proof Type is Passport."

	lateCheckoutAfter = 11 * time.Hour
)

// Validate runs the save-time rules. Notices are advisory; an error blocks the
// save.
func Validate(rec *models.GuestOnboarding) (types.Notices, error) {
	if rec == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "onboarding required")
	}
	var notices types.Notices

	if rec.CheckInTime != "" && rec.CheckOutTime != "" {
		if _, err := ParseClock(rec.CheckInTime); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("Invalid check-in time %q", rec.CheckInTime))
		}
		checkOut, err := ParseClock(rec.CheckOutTime)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("Invalid check-out time %q", rec.CheckOutTime))
		}
		if checkOut > lateCheckoutAfter {
			notices.Add(LateCheckoutNotice)
		}
	}

	nationality := strings.TrimSpace(rec.Nationality)
	if nationality != "" && !enums.IsIndianNationality(nationality) && rec.IDProofType == enums.IDProofPassport {
		if strings.TrimSpace(rec.PassportNumber) == "" || strings.TrimSpace(rec.VisaNumber) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, PassportRequired)
		}
	}
	return notices, nil
}

// ParseClock parses HH:MM:SS into the offset from midnight.
func ParseClock(value string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("clock %q: want HH:MM:SS", value)
	}
	limits := []int{23, 59, 59}
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	var total time.Duration
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("clock %q: bad component %q", value, part)
		}
		total += time.Duration(n) * units[i]
	}
	return total, nil
}

// NormalizeClock turns HH:MM into HH:MM:SS and checks the result. Blank stays
// blank.
func NormalizeClock(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if strings.Count(value, ":") == 1 {
		value += ":00"
	}
	d, err := ParseClock(value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60), nil
}
