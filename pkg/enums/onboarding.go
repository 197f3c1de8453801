package enums

import (
	"fmt"
	"strings"
)

// OnboardingStatus tracks a guest onboarding record through its one-way lifecycle.
type OnboardingStatus string

const (
	OnboardingStatusDraft     OnboardingStatus = "Draft"
	OnboardingStatusOnboarded OnboardingStatus = "Onboarded"
)

var validOnboardingStatuses = []OnboardingStatus{
	OnboardingStatusDraft,
	OnboardingStatusOnboarded,
}

// IsValid reports whether the value is a known OnboardingStatus.
func (s OnboardingStatus) IsValid() bool {
	for _, candidate := range validOnboardingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOnboardingStatus converts raw input into an OnboardingStatus.
func ParseOnboardingStatus(value string) (OnboardingStatus, error) {
	for _, candidate := range validOnboardingStatuses {
		if strings.EqualFold(string(candidate), value) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid onboarding status %q", value)
}

// IDProofType is the identity document a guest presents at check-in.
type IDProofType string

const (
	IDProofAadhaar        IDProofType = "Aadhaar Card"
	IDProofPassport       IDProofType = "Passport"
	IDProofDrivingLicense IDProofType = "Driving License"
	IDProofVoterID        IDProofType = "Voter ID"
	IDProofPAN            IDProofType = "PAN Card"
	IDProofOther          IDProofType = "Other"
)

var validIDProofTypes = []IDProofType{
	IDProofAadhaar,
	IDProofPassport,
	IDProofDrivingLicense,
	IDProofVoterID,
	IDProofPAN,
	IDProofOther,
}

// IsValid reports whether the value is a known IDProofType. Empty is allowed.
func (t IDProofType) IsValid() bool {
	if t == "" {
		return true
	}
	for _, candidate := range validIDProofTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseIDProofType converts raw input into an IDProofType, case-insensitively.
func ParseIDProofType(value string) (IDProofType, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	for _, candidate := range validIDProofTypes {
		if strings.EqualFold(string(candidate), value) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid id proof type %q", value)
}

var indianNationalities = map[string]struct{}{
	"india":  {},
	"indian": {},
	"in":     {},
	"ind":    {},
}

// IsIndianNationality reports whether the nationality designates an Indian guest.
func IsIndianNationality(nationality string) bool {
	_, ok := indianNationalities[strings.ToLower(strings.TrimSpace(nationality))]
	return ok
}
