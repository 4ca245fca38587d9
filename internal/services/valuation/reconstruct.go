package valuation

import (
	"time"

	"github.com/rmarchal/folioval/internal/common"
	"github.com/rmarchal/folioval/internal/models"
)

// calendarDays returns every UTC calendar day from from to to inclusive.
// The reporting calendar is dense: weekends and market holidays get a row
// like any trading day.
func calendarDays(from, to time.Time) []time.Time {
	from = dayOf(from)
	to = dayOf(to)
	if to.Before(from) {
		return nil
	}

	days := make([]time.Time, 0, int(to.Sub(from).Hours()/24)+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// buildSeries replays an instrument's transactions over a dense calendar and
// produces one position row per day. Transactions must be sorted ascending;
// they feed the FIFO ledger in that order so realized costs match the lots
// actually consumed.
//
// Invested capital follows the day's trades: a day ending flat resets it to
// exactly 0, a day with sells subtracts the realized cost of the units sold,
// and a day with only buys adds the buy outlay including fees. Market value
// is the day's close (nearest prior quote when the market was shut) times
// the open quantity.
func buildSeries(inst *models.Instrument, prices *PriceLookup, from, to time.Time, logger *common.Logger) *models.InstrumentSeries {
	ledger := NewLedger()
	days := calendarDays(from, to)

	// Index transactions by day; inst.Transactions is already ascending so
	// each bucket preserves intra-day order.
	byDay := make(map[time.Time][]models.Transaction)
	for _, tx := range inst.Transactions {
		d := tx.Date()
		byDay[d] = append(byDay[d], tx)
	}

	var invested float64
	positions := make([]models.DailyPosition, 0, len(days))

	for _, day := range days {
		var buyOutlay, sellCost float64
		var hadSell, hadBuy bool

		for _, tx := range byDay[day] {
			realized := ledger.RealizedCost(tx)
			switch {
			case tx.IsSell():
				hadSell = true
				sellCost += realized * -tx.Quantity
			case tx.IsBuy():
				hadBuy = true
				buyOutlay += tx.Price*tx.Quantity + tx.AbsFees()
			}
		}

		quantity := ledger.OpenQuantity()

		if quantity == 0 {
			invested = 0
		} else if hadSell {
			invested -= sellCost
		} else if hadBuy {
			invested += buyOutlay
		}

		pos := models.DailyPosition{
			Date:           day,
			ISIN:           inst.ISIN,
			ProductName:    inst.Name,
			Venue:          inst.Venue,
			ExecutionVenue: inst.ExecutionVenue,
			Quantity:       quantity,
			Invested:       invested,
			MarketValue:    prices.CloseOn(day) * quantity,
		}
		if inst.Metadata != nil {
			pos.AssetClass = inst.Metadata.AssetClass
			pos.Sector = inst.Metadata.Sector
			pos.Country = inst.Metadata.Country
		}
		positions = append(positions, pos)
	}

	if gap := ledger.GapUnits(); gap > 0 {
		logger.Warn().
			Str("isin", inst.ISIN).
			Str("product", inst.Name).
			Float64("units", gap).
			Msg("Sells exceeded recorded buys, cost basis incomplete")
	}

	return &models.InstrumentSeries{
		Instrument: inst,
		Positions:  positions,
	}
}
