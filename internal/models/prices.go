package models

import "time"

// EODBar represents a single day's price data
type EODBar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adjusted_close"`
	Volume   int64     `json:"volume"`
}

// EODResponse wraps the bars returned by the market-data service.
type EODResponse struct {
	Data []EODBar `json:"data"`
}

// PriceSeries holds the cached daily closes for one ticker, sorted ascending
// by date. Sparse: weekends, holidays and pre-listing days have no bar.
// CoveredFrom records the earliest date ever requested from the market-data
// service; bar dates alone cannot distinguish "never fetched" from "no quote
// existed" for the head of a range.
type PriceSeries struct {
	Ticker            string              `json:"ticker" badgerhold:"key"`
	Bars              []EODBar            `json:"bars"`
	CoveredFrom       time.Time           `json:"covered_from"`
	EODUpdatedAt      time.Time           `json:"eod_updated_at"`
	Metadata          *InstrumentMetadata `json:"metadata,omitempty"`
	MetadataUpdatedAt time.Time           `json:"metadata_updated_at"`
}

// LastBarDate returns the date of the newest bar, or the zero time when empty.
func (p *PriceSeries) LastBarDate() time.Time {
	if len(p.Bars) == 0 {
		return time.Time{}
	}
	return p.Bars[len(p.Bars)-1].Date
}

// CloseMap flattens the bars into a sparse date → close mapping keyed by
// UTC-midnight day.
func (p *PriceSeries) CloseMap() map[time.Time]float64 {
	m := make(map[time.Time]float64, len(p.Bars))
	for _, b := range p.Bars {
		day := time.Date(b.Date.Year(), b.Date.Month(), b.Date.Day(), 0, 0, 0, 0, time.UTC)
		m[day] = b.Close
	}
	return m
}
