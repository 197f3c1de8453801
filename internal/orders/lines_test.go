package orders

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishnaroyalclub/krc-backend/internal/catalog"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
)

func day(value string) time.Time {
	d, _ := time.Parse(time.DateOnly, value)
	return d
}

func TestNewStayCountsBothEnds(t *testing.T) {
	stay, err := NewStay(day("2025-11-22"), day("2025-11-24"), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, stay.Days)

	stay, err = NewStay(day("2025-11-22"), day("2025-11-22"), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, stay.Days)
	assert.Equal(t, 1, stay.Occupants)

	_, err = NewStay(day("2025-11-24"), day("2025-11-22"), 1)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNewStayAcrossMonthEnd(t *testing.T) {
	stay, err := NewStay(day("2025-02-27"), day("2025-03-02"), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, stay.Days)
}

func TestLineDescriptionPluralizes(t *testing.T) {
	stay, err := NewStay(day("2025-11-22"), day("2025-11-24"), 2)
	require.NoError(t, err)
	assert.Equal(t, "Double Room for 2 Occupants from 22-11-2025 till 24-11-2025", stay.LineDescription("Double Room"))

	stay.Occupants = 1
	assert.Equal(t, "Double Room for 1 Occupant from 22-11-2025 till 24-11-2025", stay.LineDescription("Double Room"))
}

func TestBuildLines(t *testing.T) {
	stay, err := NewStay(day("2025-11-22"), day("2025-11-24"), 2)
	require.NoError(t, err)

	lines, total := BuildLines([]catalog.PricedItem{
		{Item: models.Item{ItemCode: "ROOM", ItemName: "Double Room", StockUOM: "Night"}, Rate: decimal.NewFromInt(1500)},
		{Item: models.Item{ItemCode: "YOGA"}, Rate: decimal.NewFromInt(200)},
	}, stay, "")

	require.Len(t, lines, 2)
	assert.Equal(t, 1, lines[0].Idx)
	assert.Equal(t, "Night", lines[0].UOM)
	assert.True(t, decimal.NewFromInt(4500).Equal(lines[0].Amount))
	assert.True(t, decimal.NewFromInt(3).Equal(lines[0].Qty))
	assert.Equal(t, "Day", lines[1].UOM)
	assert.Equal(t, "YOGA", lines[1].ItemName)
	assert.Equal(t, "YOGA for 2 Occupants from 22-11-2025 till 24-11-2025", lines[1].Description)
	assert.True(t, decimal.NewFromInt(5100).Equal(total))
	assert.True(t, stay.From.Equal(lines[0].DeliveryDate))
}
