// Package valuation reconstructs daily holdings, cost basis and market value
// from normalized transactions and resolved price history.
package valuation

import "github.com/rmarchal/folioval/internal/models"

// lot is a FIFO purchase batch: remaining units at their acquisition cost.
type lot struct {
	quantity float64
	unitCost float64 // price plus fee magnitude at purchase
}

// Ledger is the FIFO cost-basis queue for a single instrument. One Ledger is
// constructed fresh per instrument per run and fed that instrument's
// transactions in ascending timestamp order; feeding it out of order produces
// wrong realized costs.
type Ledger struct {
	lots     []lot
	gapUnits float64 // sell units that found no matching purchase history
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// RealizedCost applies one transaction to the ledger and returns the realized
// unit cost: 0.0 for a buy (nothing realized), the weighted FIFO unit cost of
// the consumed lots for a sell.
//
// A sell exceeding the recorded purchase history does not fail: the matched
// portion is costed normally, the unmatched units are counted as an
// accounting gap, and a sell with no lots at all realizes 0.0.
func (l *Ledger) RealizedCost(tx models.Transaction) float64 {
	if tx.Quantity > 0 {
		l.lots = append(l.lots, lot{quantity: tx.Quantity, unitCost: tx.UnitCost()})
		return 0
	}
	if tx.Quantity == 0 {
		return 0
	}

	sellQty := -tx.Quantity
	var totalCost, consumed float64

	for sellQty > 0 && len(l.lots) > 0 {
		front := &l.lots[0]
		if front.quantity <= sellQty {
			// Front lot fully consumed
			totalCost += front.quantity * front.unitCost
			consumed += front.quantity
			sellQty -= front.quantity
			l.lots = l.lots[1:]
		} else {
			// Partial consumption, front lot survives with fewer units
			totalCost += sellQty * front.unitCost
			consumed += sellQty
			front.quantity -= sellQty
			sellQty = 0
		}
	}

	l.gapUnits += sellQty

	if consumed == 0 {
		return 0
	}
	return totalCost / consumed
}

// OpenQuantity returns the total units still held across open lots.
func (l *Ledger) OpenQuantity() float64 {
	var q float64
	for _, lt := range l.lots {
		q += lt.quantity
	}
	return q
}

// GapUnits returns the cumulative sell units that could not be matched
// against purchase history. Non-zero means realized-gain figures carry an
// accounting gap, not that the run failed.
func (l *Ledger) GapUnits() float64 {
	return l.gapUnits
}
