package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/krishnaroyalclub/krc-backend/pkg/config"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
	"github.com/krishnaroyalclub/krc-backend/pkg/metrics"
)

const defaultItemGroup = "Services"

// ItemView is the public shape of a catalog item.
type ItemView struct {
	Name        string          `json:"name"`
	ItemCode    string          `json:"item_code"`
	ItemName    string          `json:"item_name"`
	ItemGroup   string          `json:"item_group"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Rate        decimal.Decimal `json:"rate"`
}

// ItemList is the list_items result.
type ItemList struct {
	Items []ItemView `json:"items"`
	Count int        `json:"count"`
}

// Reader lists bookable items.
type Reader interface {
	ListItems(ctx context.Context, group string) (*ItemList, error)
}

type dbProvider interface {
	DB() *gorm.DB
}

type reader struct {
	db       dbProvider
	defaults config.DefaultsConfig
	logg     *logger.Logger
	metrics  *metrics.LifecycleMetrics
}

// NewReader builds the catalog reader.
func NewReader(db dbProvider, defaults config.DefaultsConfig, logg *logger.Logger, m *metrics.LifecycleMetrics) (Reader, error) {
	if db == nil {
		return nil, fmt.Errorf("database client is required")
	}
	return &reader{db: db, defaults: defaults, logg: logg, metrics: m}, nil
}

func (r *reader) ListItems(ctx context.Context, group string) (list *ItemList, err error) {
	started := time.Now()
	defer func() { r.metrics.ObserveOperation("list_items", started, err) }()

	group = strings.TrimSpace(group)
	if group == "" {
		group = r.defaults.ItemGroup
	}
	if group == "" {
		group = defaultItemGroup
	}

	repo := NewRepository(r.db.DB())
	items, err := repo.ListByGroup(ctx, group)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list items")
	}
	priced, err := Price(ctx, repo, r.defaults.SellingPriceList, items)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "price items")
	}

	views := make([]ItemView, 0, len(priced))
	for _, p := range priced {
		views = append(views, ItemView{
			Name:        p.Item.ItemCode,
			ItemCode:    p.Item.ItemCode,
			ItemName:    p.Item.DisplayName(),
			ItemGroup:   p.Item.ItemGroup,
			Description: p.Item.Description,
			Image:       p.Item.Image,
			Rate:        p.Rate,
		})
	}
	return &ItemList{Items: views, Count: len(views)}, nil
}
