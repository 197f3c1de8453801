package leads

import (
	"github.com/google/uuid"

	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
)

// Summary is the lead shape returned to guests.
type Summary struct {
	ID       uuid.UUID        `json:"id"`
	Name     string           `json:"name"`
	LeadName string           `json:"lead_name"`
	Email    string           `json:"email"`
	Phone    string           `json:"phone"`
	Status   enums.LeadStatus `json:"status"`
}

// SummaryFromModel maps a lead to its public summary.
func SummaryFromModel(l *models.Lead) *Summary {
	if l == nil {
		return nil
	}
	return &Summary{
		ID:       l.ID,
		Name:     l.Name,
		LeadName: l.LeadName,
		Email:    l.Email,
		Phone:    l.Phone,
		Status:   l.Status,
	}
}

// Profile identifies the person a lead is looked up or created for.
type Profile struct {
	Email string
	Name  string
	Phone string
}
