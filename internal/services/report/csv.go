package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/rmarchal/folioval/internal/models"
)

// WritePositionsCSV writes the per-instrument daily position table: one row
// per instrument per calendar day.
func WritePositionsCSV(w io.Writer, series []*models.InstrumentSeries) error {
	cw := csv.NewWriter(w)

	header := []string{
		"date", "isin", "product", "venue", "ticker",
		"asset_class", "sector", "country",
		"quantity", "invested", "market_value", "share_pct",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, s := range series {
		for _, p := range s.Positions {
			row := []string{
				p.Date.Format("2006-01-02"),
				p.ISIN,
				p.ProductName,
				p.Venue,
				s.Instrument.Ticker,
				p.AssetClass,
				p.Sector,
				p.Country,
				formatQuantity(p.Quantity),
				formatAmount(p.Invested),
				formatAmount(p.MarketValue),
				formatAmount(p.SharePct),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write position row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// WritePortfolioCSV writes the daily portfolio totals, one row per day.
func WritePortfolioCSV(w io.Writer, snapshots []models.PortfolioSnapshot) error {
	cw := csv.NewWriter(w)

	header := []string{"date", "total_invested", "total_value", "value_diff", "pct_diff"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, s := range snapshots {
		row := []string{
			s.Date.Format("2006-01-02"),
			formatAmount(s.TotalInvested),
			formatAmount(s.TotalValue),
			formatAmount(s.ValueDiff),
			formatAmount(s.PctDiff),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write snapshot row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes the headline figures as a two-column key/value table.
func WriteSummaryCSV(w io.Writer, kpi models.KPISummary, skipped map[string]string) error {
	cw := csv.NewWriter(w)

	rows := [][]string{
		{"as_of", kpi.AsOf.Format("2006-01-02")},
		{"total_invested", formatAmount(kpi.TotalInvested)},
		{"total_value", formatAmount(kpi.TotalValue)},
		{"absolute_delta", formatAmount(kpi.AbsoluteDelta)},
		{"pct_delta", formatAmount(kpi.PctDelta)},
		{"max_negative_gap", formatAmount(kpi.MaxNegativeGap)},
		{"max_negative_pct", formatAmount(kpi.MaxNegativePct)},
		{"instruments_skipped", strconv.Itoa(len(skipped))},
	}
	isins := make([]string, 0, len(skipped))
	for isin := range skipped {
		isins = append(isins, isin)
	}
	sort.Strings(isins)
	for _, isin := range isins {
		rows = append(rows, []string{"skipped_" + isin, skipped[isin]})
	}

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return cw.Error()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatQuantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
