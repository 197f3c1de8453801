// Package catalog reads bookable service items and resolves their rates.
package catalog

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
)

// Repository reads items and price lists.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListByGroup returns the enabled items of group ordered by item name.
func (r *Repository) ListByGroup(ctx context.Context, group string) ([]models.Item, error) {
	var items []models.Item
	err := r.db.WithContext(ctx).
		Where("item_group = ? AND disabled = ?", group, false).
		Order("item_name ASC").
		Order("item_code ASC").
		Find(&items).Error
	return items, err
}

// FindByCodes loads the items matching codes keyed by item code. Codes with no
// item are simply absent from the map.
func (r *Repository) FindByCodes(ctx context.Context, codes []string) (map[string]models.Item, error) {
	out := make(map[string]models.Item, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	var items []models.Item
	if err := r.db.WithContext(ctx).Where("item_code IN ?", codes).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.ItemCode] = item
	}
	return out, nil
}

// SellingPriceList returns the enabled selling price list to price from.
// preferred wins when it names an enabled selling list, otherwise the first
// enabled selling list by name. An empty name means none is configured.
func (r *Repository) SellingPriceList(ctx context.Context, preferred string) (string, error) {
	enabled := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.PriceList{}).
			Where("selling = ? AND enabled = ?", true, true)
	}

	if preferred != "" {
		var count int64
		if err := enabled().Where("name = ?", preferred).Count(&count).Error; err != nil {
			return "", err
		}
		if count > 0 {
			return preferred, nil
		}
	}

	var names []string
	if err := enabled().Order("name ASC").Limit(1).Pluck("name", &names).Error; err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}
	return names[0], nil
}

// PriceListRates returns the rates of codes within list.
func (r *Repository) PriceListRates(ctx context.Context, list string, codes []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(codes))
	if list == "" || len(codes) == 0 {
		return out, nil
	}
	var prices []models.ItemPrice
	if err := r.db.WithContext(ctx).
		Where("price_list = ? AND item_code IN ?", list, codes).
		Find(&prices).Error; err != nil {
		return nil, err
	}
	for _, p := range prices {
		out[p.ItemCode] = p.PriceListRate
	}
	return out, nil
}
