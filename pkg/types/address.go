package types

import "strings"

// AddressInput is the optional address block accepted by booking requests.
type AddressInput struct {
	AddressTitle string `json:"address_title"`
	AddressType  string `json:"address_type"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
	EmailID      string `json:"email_id"`
}

// IsComplete reports whether the fields required to persist an address are
// all present. Incomplete addresses are skipped rather than rejected.
func (a *AddressInput) IsComplete() bool {
	if a == nil {
		return false
	}
	for _, v := range []string{a.AddressLine1, a.City, a.State, a.Pincode} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// MissingFields lists the required fields that are blank, in payload order.
func (a *AddressInput) MissingFields() []string {
	if a == nil {
		return []string{"address_line1", "city", "state", "pincode"}
	}
	missing := []string{}
	for _, f := range []struct {
		name  string
		value string
	}{
		{"address_line1", a.AddressLine1},
		{"city", a.City},
		{"state", a.State},
		{"pincode", a.Pincode},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
