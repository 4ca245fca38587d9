package valuation

import (
	"time"

	"github.com/rmarchal/folioval/internal/models"
)

// aggregate rolls per-instrument series up into daily portfolio snapshots
// and stamps each position with its share of that day's total market value.
// All series span the same dense calendar, so rows align by index.
func aggregate(days []time.Time, series []*models.InstrumentSeries) []models.PortfolioSnapshot {
	snapshots := make([]models.PortfolioSnapshot, len(days))

	for i, day := range days {
		var totalInvested, totalValue float64
		for _, s := range series {
			totalInvested += s.Positions[i].Invested
			totalValue += s.Positions[i].MarketValue
		}

		diff := totalValue - totalInvested
		var pct float64
		if totalInvested != 0 {
			pct = diff / totalInvested * 100
		}

		snapshots[i] = models.PortfolioSnapshot{
			Date:          day,
			TotalInvested: totalInvested,
			TotalValue:    totalValue,
			ValueDiff:     diff,
			PctDiff:       pct,
		}

		for _, s := range series {
			if totalValue != 0 {
				s.Positions[i].SharePct = s.Positions[i].MarketValue / totalValue * 100
			} else {
				s.Positions[i].SharePct = 0
			}
		}
	}

	return snapshots
}

// summarize condenses the snapshot history into the headline figures: the
// latest standing of the portfolio plus the worst drawdown below invested
// capital seen anywhere in the history.
func summarize(snapshots []models.PortfolioSnapshot) models.KPISummary {
	if len(snapshots) == 0 {
		return models.KPISummary{}
	}

	latest := snapshots[len(snapshots)-1]
	kpi := models.KPISummary{
		AsOf:          latest.Date,
		TotalInvested: latest.TotalInvested,
		TotalValue:    latest.TotalValue,
		AbsoluteDelta: latest.ValueDiff,
		PctDelta:      latest.PctDiff,
	}

	for _, s := range snapshots {
		if s.ValueDiff < kpi.MaxNegativeGap {
			kpi.MaxNegativeGap = s.ValueDiff
			kpi.MaxNegativePct = s.PctDiff
		}
	}

	return kpi
}
