package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountCreatedEvent is emitted once a registrant has both a lead and an
// account. The notifications consumer turns it into a welcome email.
type AccountCreatedEvent struct {
	AccountID uuid.UUID `json:"account_id"`
	LeadID    uuid.UUID `json:"lead_id"`
	LeadName  string    `json:"lead_name"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
}

// PasswordResetRequestedEvent carries the reset link. The raw token only ever
// lives in this payload and the email; the account row stores its hash.
type PasswordResetRequestedEvent struct {
	AccountID uuid.UUID `json:"account_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	ResetURL  string    `json:"reset_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// BookingCreatedEvent describes a draft order produced by the booking flow.
type BookingCreatedEvent struct {
	OrderID      uuid.UUID       `json:"order_id"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	ItemCodes    []string        `json:"item_codes"`
	FromDate     string          `json:"from_date"`
	ToDate       string          `json:"to_date"`
	Days         int             `json:"days"`
	Occupants    int             `json:"occupants"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
}

// OrderSubmittedEvent is emitted when an order leaves draft.
type OrderSubmittedEvent struct {
	OrderID        uuid.UUID  `json:"order_id"`
	CustomerID     uuid.UUID  `json:"customer_id"`
	OnboardingID   *uuid.UUID `json:"onboarding_id,omitempty"`
	TaskTemplateID *uuid.UUID `json:"task_template_id,omitempty"`
	SubmittedAt    time.Time  `json:"submitted_at"`
}

// OrderCancelledEvent is emitted when an order is cancelled.
type OrderCancelledEvent struct {
	OrderID      uuid.UUID  `json:"order_id"`
	CustomerID   uuid.UUID  `json:"customer_id"`
	OnboardingID *uuid.UUID `json:"onboarding_id,omitempty"`
	CancelledAt  time.Time  `json:"cancelled_at"`
}

// OnboardingSubmittedEvent is emitted when a guest onboarding becomes Onboarded.
type OnboardingSubmittedEvent struct {
	OnboardingID uuid.UUID  `json:"onboarding_id"`
	CustomerID   uuid.UUID  `json:"customer_id"`
	OrderID      *uuid.UUID `json:"order_id,omitempty"`
	SubmittedAt  time.Time  `json:"submitted_at"`
}

// OnboardingCancelledEvent is emitted when a guest onboarding is cancelled.
type OnboardingCancelledEvent struct {
	OnboardingID    uuid.UUID  `json:"onboarding_id"`
	CustomerID      uuid.UUID  `json:"customer_id"`
	UnlinkedOrderID *uuid.UUID `json:"unlinked_order_id,omitempty"`
	CancelledAt     time.Time  `json:"cancelled_at"`
}
