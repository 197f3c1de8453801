package orders

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/krishnaroyalclub/krc-backend/internal/catalog"
	"github.com/krishnaroyalclub/krc-backend/pkg/db/models"
	pkgerrors "github.com/krishnaroyalclub/krc-backend/pkg/errors"
)

const (
	defaultUOM        = "Day"
	displayDateLayout = "02-01-2006"
)

// Stay is the booked window. Days counts both ends.
type Stay struct {
	From      time.Time
	To        time.Time
	Days      int
	Occupants int
}

// NewStay validates the window and computes its length in days.
func NewStay(from, to time.Time, occupants int) (Stay, error) {
	from = dateOnly(from)
	to = dateOnly(to)
	if to.Before(from) {
		return Stay{}, pkgerrors.New(pkgerrors.CodeValidation, "To Date must be after or equal to From Date")
	}
	days := int(to.Sub(from).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	if occupants < 1 {
		occupants = 1
	}
	return Stay{From: from, To: to, Days: days, Occupants: occupants}, nil
}

// LineDescription renders "Deluxe Room for 2 Occupants from 22-11-2025 till
// 24-11-2025".
func (s Stay) LineDescription(itemName string) string {
	occupant := "Occupant"
	if s.Occupants > 1 {
		occupant = "Occupants"
	}
	return fmt.Sprintf("%s for %d %s from %s till %s",
		itemName, s.Occupants, occupant,
		s.From.Format(displayDateLayout), s.To.Format(displayDateLayout))
}

// BuildLines prices one order line per item for the whole stay and returns the
// lines with their grand total.
func BuildLines(priced []catalog.PricedItem, stay Stay, fallbackUOM string) ([]models.OrderItem, decimal.Decimal) {
	if fallbackUOM == "" {
		fallbackUOM = defaultUOM
	}
	qty := decimal.NewFromInt(int64(stay.Days))
	total := decimal.Zero
	lines := make([]models.OrderItem, 0, len(priced))
	for i, p := range priced {
		uom := p.Item.StockUOM
		if uom == "" {
			uom = fallbackUOM
		}
		amount := p.Rate.Mul(qty)
		total = total.Add(amount)
		lines = append(lines, models.OrderItem{
			Idx:          i + 1,
			ItemCode:     p.Item.ItemCode,
			ItemName:     p.Item.DisplayName(),
			Description:  stay.LineDescription(p.Item.DisplayName()),
			Qty:          qty,
			Rate:         p.Rate,
			Amount:       amount,
			UOM:          uom,
			DeliveryDate: stay.From,
		})
	}
	return lines, total
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
