// Package models defines data structures for Folioval
package models

import (
	"math"
	"time"
)

// RawBatch is one parsed tabular export: rows of positional cells, plus the
// originating file name for error reporting. Header row excluded.
type RawBatch struct {
	Source string
	Header []string
	Rows   [][]string
}

// Transaction is one row of brokerage activity, shaped and typed by the
// normalizer. Immutable once created.
type Transaction struct {
	Timestamp      time.Time // trade date + time, sortable
	ProductName    string
	ISIN           string
	Venue          string // trading venue code (e.g. "EAM")
	ExecutionVenue string
	Quantity       float64 // positive = buy, negative = sell
	Price          float64 // unit price in trade currency
	Fees           float64 // as exported; brokers store these negative
	TotalAmount    float64 // signed negotiated amount
	OrderID        string
}

// Date returns the calendar day of the trade, UTC midnight.
func (t Transaction) Date() time.Time {
	return time.Date(t.Timestamp.Year(), t.Timestamp.Month(), t.Timestamp.Day(), 0, 0, 0, 0, time.UTC)
}

// IsBuy reports whether the transaction adds to the position.
func (t Transaction) IsBuy() bool { return t.Quantity > 0 }

// IsSell reports whether the transaction reduces the position.
func (t Transaction) IsSell() bool { return t.Quantity < 0 }

// AbsFees returns the fee magnitude, treating missing fees as 0.
func (t Transaction) AbsFees() float64 {
	if math.IsNaN(t.Fees) {
		return 0
	}
	return math.Abs(t.Fees)
}

// UnitCost returns the per-unit acquisition cost for a buy: price plus fees.
func (t Transaction) UnitCost() float64 {
	return t.Price + t.AbsFees()
}
