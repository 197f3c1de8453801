package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/enums"
)

// Customer is a billable party referenced by orders and onboardings.
type Customer struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name          string    `gorm:"column:name;not null;uniqueIndex:ux_customers_name"`
	CustomerName  string    `gorm:"column:customer_name;not null"`
	Email         string    `gorm:"column:email;type:text;not null;uniqueIndex:ux_customers_email"`
	MobileNo      string    `gorm:"column:mobile_no;not null;default:''"`
	CustomerGroup string    `gorm:"column:customer_group;not null"`
	CustomerType  string    `gorm:"column:customer_type;not null"`
	Territory     string    `gorm:"column:territory;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Address is a postal address linked to a customer.
type Address struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey"`
	CustomerID  uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index"`
	Title       string            `gorm:"column:title;not null"`
	AddressType enums.AddressType `gorm:"column:address_type;type:text;not null"`
	Line1       string            `gorm:"column:line1;not null"`
	Line2       string            `gorm:"column:line2;not null;default:''"`
	City        string            `gorm:"column:city;not null"`
	State       string            `gorm:"column:state;not null"`
	Pincode     string            `gorm:"column:pincode;not null"`
	Country     string            `gorm:"column:country;not null"`
	Phone       string            `gorm:"column:phone;not null;default:''"`
	Email       string            `gorm:"column:email;not null;default:''"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (a *Address) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
