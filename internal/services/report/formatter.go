package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rmarchal/folioval/internal/models"
)

// formatSummary generates the run summary markdown: headline figures plus a
// per-instrument table of the latest positions.
func formatSummary(result *models.ValuationResult) string {
	var sb strings.Builder

	kpi := result.KPI
	sb.WriteString(fmt.Sprintf("# Portfolio Valuation: %s\n\n", kpi.AsOf.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("**Run:** %s\n", result.RunID))
	sb.WriteString(fmt.Sprintf("**Period:** %s to %s\n", result.From.Format("2006-01-02"), result.To.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("**Total Invested:** %s\n", formatMoney(kpi.TotalInvested)))
	sb.WriteString(fmt.Sprintf("**Total Value:** %s\n", formatMoney(kpi.TotalValue)))
	sb.WriteString(fmt.Sprintf("**Gain:** %s (%s)\n", formatSignedMoney(kpi.AbsoluteDelta), formatSignedPct(kpi.PctDelta)))
	sb.WriteString(fmt.Sprintf("**Worst Drawdown:** %s (%s)\n\n", formatSignedMoney(kpi.MaxNegativeGap), formatSignedPct(kpi.MaxNegativePct)))

	sb.WriteString("## Holdings\n\n")
	sb.WriteString("| Product | Ticker | Quantity | Invested | Value | Share |\n")
	sb.WriteString("|---------|--------|----------|----------|-------|-------|\n")

	holdings := make([]*models.InstrumentSeries, len(result.Series))
	copy(holdings, result.Series)
	sort.Slice(holdings, func(i, j int) bool {
		return latestPosition(holdings[i]).MarketValue > latestPosition(holdings[j]).MarketValue
	})

	for _, s := range holdings {
		p := latestPosition(s)
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %.1f%% |\n",
			p.ProductName,
			s.Instrument.Ticker,
			formatQuantity(p.Quantity),
			formatMoney(p.Invested),
			formatMoney(p.MarketValue),
			p.SharePct,
		))
	}

	if len(result.Skipped) > 0 {
		sb.WriteString("\n## Skipped\n\n")
		isins := make([]string, 0, len(result.Skipped))
		for isin := range result.Skipped {
			isins = append(isins, isin)
		}
		sort.Strings(isins)
		for _, isin := range isins {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", isin, result.Skipped[isin]))
		}
	}

	return sb.String()
}

// latestPosition returns the last row of a series. Series always cover the
// full run calendar, so the slice is never empty when reporting runs.
func latestPosition(s *models.InstrumentSeries) models.DailyPosition {
	return s.Positions[len(s.Positions)-1]
}

func formatMoney(v float64) string {
	return fmt.Sprintf("€%.2f", v)
}

func formatSignedMoney(v float64) string {
	if v >= 0 {
		return fmt.Sprintf("+€%.2f", v)
	}
	return fmt.Sprintf("-€%.2f", -v)
}

func formatSignedPct(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}
