package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Item is a sellable service in the catalog.
type Item struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ItemCode     string          `gorm:"column:item_code;not null;uniqueIndex:ux_items_item_code"`
	ItemName     string          `gorm:"column:item_name;not null;default:''"`
	ItemGroup    string          `gorm:"column:item_group;not null;index"`
	Description  string          `gorm:"column:description;not null;default:''"`
	Image        string          `gorm:"column:image;not null;default:''"`
	StandardRate decimal.Decimal `gorm:"column:standard_rate;type:numeric(18,2);not null;default:0"`
	StockUOM     string          `gorm:"column:stock_uom;not null;default:''"`
	Disabled     bool            `gorm:"column:disabled;not null;default:false"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Item) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// DisplayName returns the item name, falling back to its code.
func (i Item) DisplayName() string {
	if i.ItemName != "" {
		return i.ItemName
	}
	return i.ItemCode
}

// PriceList groups item prices.
type PriceList struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null;uniqueIndex:ux_price_lists_name"`
	Selling   bool      `gorm:"column:selling;not null;default:false"`
	Enabled   bool      `gorm:"column:enabled;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (p *PriceList) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ItemPrice is the rate of one item within one price list.
type ItemPrice struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PriceList     string          `gorm:"column:price_list;not null;uniqueIndex:ux_item_prices_list_item"`
	ItemCode      string          `gorm:"column:item_code;not null;uniqueIndex:ux_item_prices_list_item"`
	PriceListRate decimal.Decimal `gorm:"column:price_list_rate;type:numeric(18,2);not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (p *ItemPrice) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
