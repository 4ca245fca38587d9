package models

import "time"

// DailyPosition is one record per (date, instrument): the running state of a
// holding on one calendar day. Emitted for every day in the global range,
// including days with zero holdings.
type DailyPosition struct {
	Date           time.Time `json:"date"`
	ISIN           string    `json:"isin"`
	ProductName    string    `json:"product_name"`
	Venue          string    `json:"venue"`
	ExecutionVenue string    `json:"execution_venue"`
	AssetClass     string    `json:"asset_class,omitempty"`
	Sector         string    `json:"sector,omitempty"`
	Country        string    `json:"country,omitempty"`
	Quantity       float64   `json:"quantity"`
	Invested       float64   `json:"invested"`     // cost basis of currently held units
	MarketValue    float64   `json:"market_value"` // close price × quantity
	SharePct       float64   `json:"share_pct"`    // % of that day's total market value, set by the aggregator
}

// PortfolioSnapshot aggregates all instruments for one date. Derived, never
// persisted; recomputed from the per-instrument series.
type PortfolioSnapshot struct {
	Date          time.Time `json:"date"`
	TotalInvested float64   `json:"total_invested"`
	TotalValue    float64   `json:"total_value"`
	ValueDiff     float64   `json:"value_diff"`
	PctDiff       float64   `json:"pct_diff"` // 0 when TotalInvested is 0, never NaN
}

// KPISummary condenses the latest snapshot plus worst historical gap for the
// head of a report.
type KPISummary struct {
	AsOf           time.Time `json:"as_of"`
	TotalInvested  float64   `json:"total_invested"`
	TotalValue     float64   `json:"total_value"`
	AbsoluteDelta  float64   `json:"absolute_delta"`
	PctDelta       float64   `json:"pct_delta"`
	MaxNegativeGap float64   `json:"max_negative_gap"`     // largest invested-over-value shortfall seen
	MaxNegativePct float64   `json:"max_negative_gap_pct"` // same, as % of invested
}

// InstrumentSeries pairs an instrument with its full daily position series.
type InstrumentSeries struct {
	Instrument *Instrument
	Positions  []DailyPosition
}

// ValuationResult is the joined output of one pipeline run: every surviving
// instrument's series plus the portfolio-wide aggregation, and the ISINs that
// were excluded with the reason they were dropped.
type ValuationResult struct {
	RunID     string
	From      time.Time
	To        time.Time
	Series    []*InstrumentSeries
	Snapshots []PortfolioSnapshot
	KPI       KPISummary
	Skipped   map[string]string // ISIN → reason
}
