package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
)

// Order is a sales order for a customer's stay. At most one order per
// customer may have docstatus below cancelled.
type Order struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CustomerID        uuid.UUID       `gorm:"column:customer_id;type:uuid;not null;uniqueIndex:ux_orders_customer_active,where:docstatus < 2"`
	CustomerName      string          `gorm:"column:customer_name;not null"`
	Company           string          `gorm:"column:company;not null"`
	TransactionDate   time.Time       `gorm:"column:transaction_date;type:date;not null"`
	DeliveryDate      time.Time       `gorm:"column:delivery_date;type:date;not null"`
	DocStatus         enums.DocStatus `gorm:"column:docstatus;type:smallint;not null;default:0"`
	ShippingAddressID *uuid.UUID      `gorm:"column:shipping_address_id;type:uuid"`
	OnboardingID      *uuid.UUID      `gorm:"column:onboarding_id;type:uuid;index"`
	GrandTotal        decimal.Decimal `gorm:"column:grand_total;type:numeric(18,2);not null;default:0"`
	SubmittedAt       *time.Time      `gorm:"column:submitted_at"`
	CancelledAt       *time.Time      `gorm:"column:cancelled_at"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem is one service line on an order.
type OrderItem struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID      uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	Idx          int             `gorm:"column:idx;not null"`
	ItemCode     string          `gorm:"column:item_code;not null"`
	ItemName     string          `gorm:"column:item_name;not null;default:''"`
	Description  string          `gorm:"column:description;not null;default:''"`
	Qty          decimal.Decimal `gorm:"column:qty;type:numeric(18,2);not null"`
	Rate         decimal.Decimal `gorm:"column:rate;type:numeric(18,2);not null"`
	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(18,2);not null"`
	UOM          string          `gorm:"column:uom;not null"`
	DeliveryDate time.Time       `gorm:"column:delivery_date;type:date;not null"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// TaskSubject returns the item name, falling back to the description and
// then to the item code.
func (i OrderItem) TaskSubject() string {
	switch {
	case i.ItemName != "":
		return i.ItemName
	case i.Description != "":
		return i.Description
	default:
		return i.ItemCode
	}
}
