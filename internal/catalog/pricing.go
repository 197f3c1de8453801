package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
)

// PricedItem is an item paired with the rate a booking charges per day.
type PricedItem struct {
	Item models.Item
	Rate decimal.Decimal
}

// EffectiveRate prefers the item's own standard rate, then the selling price
// list rate, then zero.
func EffectiveRate(item models.Item, listRates map[string]decimal.Decimal) decimal.Decimal {
	if !item.StandardRate.IsZero() {
		return item.StandardRate
	}
	if rate, ok := listRates[item.ItemCode]; ok {
		return rate
	}
	return decimal.Zero
}

// Price attaches effective rates to items, reading the selling price list only
// when some item lacks a standard rate.
func Price(ctx context.Context, repo *Repository, preferredList string, items []models.Item) ([]PricedItem, error) {
	var missing []string
	for _, item := range items {
		if item.StandardRate.IsZero() {
			missing = append(missing, item.ItemCode)
		}
	}

	listRates := map[string]decimal.Decimal{}
	if len(missing) > 0 {
		list, err := repo.SellingPriceList(ctx, preferredList)
		if err != nil {
			return nil, err
		}
		listRates, err = repo.PriceListRates(ctx, list, missing)
		if err != nil {
			return nil, err
		}
	}

	out := make([]PricedItem, 0, len(items))
	for _, item := range items {
		out = append(out, PricedItem{Item: item, Rate: EffectiveRate(item, listRates)})
	}
	return out, nil
}

// Resolve loads and prices codes in the order given. The first code without an
// item fails with ITEM_NOT_FOUND.
func Resolve(ctx context.Context, repo *Repository, preferredList string, codes []string) ([]PricedItem, error) {
	found, err := repo.FindByCodes(ctx, codes)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load items")
	}
	items := make([]models.Item, 0, len(codes))
	for _, code := range codes {
		item, ok := found[code]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeItemNotFound, fmt.Sprintf("Service item '%s' not found", code)).
				WithDetails(map[string]any{"item_code": code})
		}
		items = append(items, item)
	}
	priced, err := Price(ctx, repo, preferredList, items)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "price items")
	}
	return priced, nil
}
