package models

import "time"

// Instrument groups all transactions sharing an ISIN, carrying the display
// metadata and the resolved market-data ticker for the run.
type Instrument struct {
	ISIN           string
	Name           string
	Venue          string
	ExecutionVenue string
	Ticker         string              // resolved market-data ticker, empty until resolution
	Metadata       *InstrumentMetadata // descriptive metadata, fetched once per instrument
	Transactions   []Transaction       // ascending timestamp order
}

// InstrumentMetadata holds descriptive classification data fetched once per
// instrument from the market-data service. All fields optional.
type InstrumentMetadata struct {
	AssetClass string `json:"asset_class"` // "Common Stock", "ETF", ...
	Sector     string `json:"sector"`
	Industry   string `json:"industry"`
	Country    string `json:"country"`
}

// FirstTradeDate returns the calendar day of the earliest transaction, or the
// zero time when the instrument has none. The normalizer keeps transactions
// sorted ascending, so the first element is the earliest.
func (i *Instrument) FirstTradeDate() time.Time {
	if len(i.Transactions) == 0 {
		return time.Time{}
	}
	return i.Transactions[0].Date()
}

// GroupInstruments groups normalized transactions by ISIN, preserving each
// instrument's transaction order and first-seen display metadata. Instruments
// are returned in order of first appearance.
func GroupInstruments(txs []Transaction) []*Instrument {
	byISIN := make(map[string]*Instrument)
	var ordered []*Instrument

	for _, tx := range txs {
		inst, ok := byISIN[tx.ISIN]
		if !ok {
			inst = &Instrument{
				ISIN:           tx.ISIN,
				Name:           tx.ProductName,
				Venue:          tx.Venue,
				ExecutionVenue: tx.ExecutionVenue,
			}
			byISIN[tx.ISIN] = inst
			ordered = append(ordered, inst)
		}
		inst.Transactions = append(inst.Transactions, tx)
	}
	return ordered
}
