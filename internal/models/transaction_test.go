package models

import (
	"math"
	"testing"
	"time"
)

func TestTransactionDate(t *testing.T) {
	tx := Transaction{Timestamp: time.Date(2023, 2, 1, 15, 42, 9, 0, time.UTC)}
	want := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	if !tx.Date().Equal(want) {
		t.Errorf("Date() = %v, want %v", tx.Date(), want)
	}
}

func TestTransactionDirection(t *testing.T) {
	if !(Transaction{Quantity: 5}).IsBuy() {
		t.Error("positive quantity must be a buy")
	}
	if !(Transaction{Quantity: -5}).IsSell() {
		t.Error("negative quantity must be a sell")
	}
	zero := Transaction{Quantity: 0}
	if zero.IsBuy() || zero.IsSell() {
		t.Error("zero quantity is neither buy nor sell")
	}
}

func TestAbsFees(t *testing.T) {
	if got := (Transaction{Fees: -2.5}).AbsFees(); got != 2.5 {
		t.Errorf("AbsFees(-2.5) = %v, want 2.5", got)
	}
	if got := (Transaction{Fees: 2.5}).AbsFees(); got != 2.5 {
		t.Errorf("AbsFees(2.5) = %v, want 2.5", got)
	}
	if got := (Transaction{Fees: math.NaN()}).AbsFees(); got != 0 {
		t.Errorf("AbsFees(NaN) = %v, want 0", got)
	}
}

func TestUnitCostIncludesFees(t *testing.T) {
	tx := Transaction{Price: 100, Fees: -2}
	if got := tx.UnitCost(); got != 102 {
		t.Errorf("UnitCost = %v, want 102", got)
	}
}

func TestGroupInstruments(t *testing.T) {
	txs := []Transaction{
		{ISIN: "IE00B4L5Y983", ProductName: "IWDA", Venue: "EAM", Quantity: 10},
		{ISIN: "NL0010273215", ProductName: "ASML", Venue: "EAM", Quantity: 2},
		{ISIN: "IE00B4L5Y983", ProductName: "IWDA", Venue: "EAM", Quantity: -5},
	}

	instruments := GroupInstruments(txs)
	if len(instruments) != 2 {
		t.Fatalf("got %d instruments, want 2", len(instruments))
	}

	// First-appearance order preserved
	if instruments[0].ISIN != "IE00B4L5Y983" || instruments[1].ISIN != "NL0010273215" {
		t.Errorf("order = [%s, %s]", instruments[0].ISIN, instruments[1].ISIN)
	}
	if len(instruments[0].Transactions) != 2 {
		t.Errorf("IWDA has %d transactions, want 2", len(instruments[0].Transactions))
	}
	if instruments[0].Name != "IWDA" || instruments[0].Venue != "EAM" {
		t.Errorf("display metadata = %q %q", instruments[0].Name, instruments[0].Venue)
	}
}

func TestFirstTradeDate(t *testing.T) {
	inst := &Instrument{Transactions: []Transaction{
		{Timestamp: time.Date(2023, 2, 1, 9, 5, 0, 0, time.UTC)},
		{Timestamp: time.Date(2023, 3, 1, 9, 5, 0, 0, time.UTC)},
	}}

	want := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	if !inst.FirstTradeDate().Equal(want) {
		t.Errorf("FirstTradeDate = %v, want %v", inst.FirstTradeDate(), want)
	}

	empty := &Instrument{}
	if !empty.FirstTradeDate().IsZero() {
		t.Error("empty instrument must report zero time")
	}
}

func TestPriceSeriesCloseMap(t *testing.T) {
	s := &PriceSeries{Bars: []EODBar{
		{Date: time.Date(2024, 1, 2, 16, 30, 0, 0, time.UTC), Close: 50},
	}}

	m := s.CloseMap()
	if got := m[time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)]; got != 50 {
		t.Errorf("close map keyed off midnight = %v, want 50", got)
	}
}

func TestPriceSeriesLastBarDate(t *testing.T) {
	empty := &PriceSeries{}
	if !empty.LastBarDate().IsZero() {
		t.Error("empty series must report zero time")
	}

	s := &PriceSeries{Bars: []EODBar{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)},
	}}
	if !s.LastBarDate().Equal(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("LastBarDate = %v", s.LastBarDate())
	}
}
