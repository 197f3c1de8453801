package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishnaroyalclub/krc-backend/pkg/config"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/dbtest"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
	"github.com/krishnaroyalclub/krc-backend/pkg/logger"
)

func TestEffectiveRate(t *testing.T) {
	listRates := map[string]decimal.Decimal{"ROOM": decimal.NewFromInt(900)}

	own := models.Item{ItemCode: "ROOM", StandardRate: decimal.NewFromInt(1500)}
	assert.True(t, decimal.NewFromInt(1500).Equal(EffectiveRate(own, listRates)))

	fromList := models.Item{ItemCode: "ROOM"}
	assert.True(t, decimal.NewFromInt(900).Equal(EffectiveRate(fromList, listRates)))

	unpriced := models.Item{ItemCode: "SPA"}
	assert.True(t, EffectiveRate(unpriced, listRates).IsZero())
}

func TestListItemsOrdersAndPrices(t *testing.T) {
	client := dbtest.Open(t)
	dbtest.SeedItem(t, client, "YOGA", "Yoga Session", "0")
	dbtest.SeedItem(t, client, "ROOM", "Deluxe Room", "2500")
	dbtest.SeedItem(t, client, "NONAME", "", "10")
	disabled := dbtest.SeedItem(t, client, "OLD", "Archived", "100")
	require.NoError(t, client.DB().Model(disabled).Update("disabled", true).Error)
	require.NoError(t, client.DB().Create(&models.Item{ItemCode: "BUS", ItemName: "Bus", ItemGroup: "Transport"}).Error)
	dbtest.SeedSellingPriceList(t, client, "Standard Selling", map[string]string{"YOGA": "400", "ROOM": "1"})

	reader, err := NewReader(client, config.DefaultsConfig{}, logger.Nop(), nil)
	require.NoError(t, err)

	list, err := reader.ListItems(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, 3, list.Count)

	codes := []string{list.Items[0].ItemCode, list.Items[1].ItemCode, list.Items[2].ItemCode}
	assert.Equal(t, []string{"NONAME", "ROOM", "YOGA"}, codes)
	assert.Equal(t, "NONAME", list.Items[0].ItemName)
	assert.True(t, decimal.NewFromInt(2500).Equal(list.Items[1].Rate))
	assert.True(t, decimal.NewFromInt(400).Equal(list.Items[2].Rate))
}

func TestListItemsEmptyGroup(t *testing.T) {
	client := dbtest.Open(t)
	reader, err := NewReader(client, config.DefaultsConfig{ItemGroup: "Services"}, logger.Nop(), nil)
	require.NoError(t, err)

	list, err := reader.ListItems(context.Background(), "Spa")
	require.NoError(t, err)
	assert.Equal(t, 0, list.Count)
	assert.NotNil(t, list.Items)
}

func TestSellingPriceListPrefersConfigured(t *testing.T) {
	client := dbtest.Open(t)
	dbtest.SeedSellingPriceList(t, client, "A List", nil)
	dbtest.SeedSellingPriceList(t, client, "Guest Rates", nil)
	repo := NewRepository(client.DB())

	name, err := repo.SellingPriceList(context.Background(), "Guest Rates")
	require.NoError(t, err)
	assert.Equal(t, "Guest Rates", name)

	name, err = repo.SellingPriceList(context.Background(), "Missing")
	require.NoError(t, err)
	assert.Equal(t, "A List", name)
}

func TestResolveKeepsOrderAndRejectsUnknown(t *testing.T) {
	client := dbtest.Open(t)
	dbtest.SeedItem(t, client, "ROOM", "Deluxe Room", "2500")
	dbtest.SeedItem(t, client, "YOGA", "Yoga Session", "300")
	repo := NewRepository(client.DB())

	priced, err := Resolve(context.Background(), repo, "", []string{"YOGA", "ROOM"})
	require.NoError(t, err)
	require.Len(t, priced, 2)
	assert.Equal(t, "YOGA", priced[0].Item.ItemCode)
	assert.Equal(t, "ROOM", priced[1].Item.ItemCode)

	_, err = Resolve(context.Background(), repo, "", []string{"ROOM", "GHOST"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeItemNotFound))
	assert.Equal(t, "Service item 'GHOST' not found", pkgerrors.As(err).Message())
}
