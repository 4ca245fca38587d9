package valuation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rmarchal/folioval/internal/common"
	"github.com/rmarchal/folioval/internal/interfaces"
	"github.com/rmarchal/folioval/internal/models"
)

// PriceLookup wraps a sparse date → close mapping with nearest-prior-date
// fallback: a date with no quote resolves to the latest quote at or before
// it, and a date preceding all quotes resolves to 0. Market data has no bars
// for weekends, holidays or pre-listing days while the reporting calendar is
// dense, so most lookups take the fallback path.
type PriceLookup struct {
	dates  []time.Time // ascending
	closes map[time.Time]float64
}

// NewPriceLookup builds a lookup over a sparse close map keyed by
// UTC-midnight day.
func NewPriceLookup(closes map[time.Time]float64) *PriceLookup {
	dates := make([]time.Time, 0, len(closes))
	for d := range closes {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return &PriceLookup{dates: dates, closes: closes}
}

// Len returns the number of quoted dates.
func (p *PriceLookup) Len() int { return len(p.dates) }

// CloseOn returns the close for a day, falling back to the nearest prior
// quoted date. Returns 0 when the day precedes all quotes.
func (p *PriceLookup) CloseOn(day time.Time) float64 {
	if c, ok := p.closes[day]; ok {
		return c
	}

	// First index with date > day; the entry before it is the nearest prior.
	idx := sort.Search(len(p.dates), func(i int) bool {
		return p.dates[i].After(day)
	})
	if idx == 0 {
		return 0
	}
	return p.closes[p.dates[idx-1]]
}

// PriceResolver produces per-ticker price lookups, reading through the local
// cache and fetching only the missing tail from the market-data service.
// Safe for concurrent use by instrument workers.
type PriceResolver struct {
	market interfaces.MarketDataClient
	store  interfaces.PriceStore
	logger *common.Logger
}

// NewPriceResolver creates a resolver over a market-data client and a cache.
// The store may be nil, in which case every series is fetched fresh.
func NewPriceResolver(market interfaces.MarketDataClient, store interfaces.PriceStore, logger *common.Logger) *PriceResolver {
	return &PriceResolver{market: market, store: store, logger: logger}
}

// Series returns the close lookup for a ticker across [from, to], plus the
// instrument metadata attached to the cached series. An empty lookup means
// the service has no price history for the ticker.
func (r *PriceResolver) Series(ctx context.Context, ticker string, from, to time.Time) (*PriceLookup, *models.InstrumentMetadata, error) {
	var cached *models.PriceSeries
	if r.store != nil {
		var err error
		cached, err = r.store.GetSeries(ctx, ticker)
		if err != nil {
			r.logger.Warn().Err(err).Str("ticker", ticker).Msg("Price cache read failed, fetching fresh")
			cached = nil
		}
	}

	series := cached
	if series == nil {
		series = &models.PriceSeries{Ticker: ticker}
	}

	coveredFrom := series.CoveredFrom
	if coveredFrom.IsZero() && len(series.Bars) > 0 {
		// Series cached before coverage tracking; assume it starts at its
		// first bar so an earlier request back-fills the head once.
		coveredFrom = dayOf(series.Bars[0].Date)
	}

	var fetchFrom time.Time
	switch last := series.LastBarDate(); {
	case len(series.Bars) == 0:
		fetchFrom = from
	case from.Before(coveredFrom):
		// A rerun with older transactions starts before the cached range;
		// re-fetch the whole window, the merge deduplicates the overlap.
		fetchFrom = from
	case last.Before(to) && !common.IsFresh(series.EODUpdatedAt, common.FreshnessEOD):
		fetchFrom = last.AddDate(0, 0, 1)
	}

	if !fetchFrom.IsZero() && !fetchFrom.After(to) {
		resp, err := r.market.GetEOD(ctx, ticker, interfaces.WithDateRange(fetchFrom, to))
		if err != nil {
			if len(series.Bars) > 0 {
				// Stale cache beats no data for an isolated fetch failure.
				r.logger.Warn().Err(err).Str("ticker", ticker).Msg("EOD fetch failed, using cached bars")
			} else {
				return nil, nil, fmt.Errorf("failed to fetch price history for %s: %w", ticker, err)
			}
		} else {
			series.Bars = mergeBars(series.Bars, resp.Data)
			series.EODUpdatedAt = time.Now()
			if series.CoveredFrom.IsZero() || fetchFrom.Before(series.CoveredFrom) {
				series.CoveredFrom = fetchFrom
			}
		}
	}

	if series.Metadata == nil || !common.IsFresh(series.MetadataUpdatedAt, common.FreshnessMetadata) {
		if meta, err := r.market.GetMetadata(ctx, ticker); err == nil {
			series.Metadata = meta
			series.MetadataUpdatedAt = time.Now()
		} else {
			r.logger.Debug().Err(err).Str("ticker", ticker).Msg("Instrument metadata unavailable")
		}
	}

	if r.store != nil && len(series.Bars) > 0 {
		if err := r.store.PutSeries(ctx, series); err != nil {
			r.logger.Warn().Err(err).Str("ticker", ticker).Msg("Price cache write failed")
		}
	}

	return NewPriceLookup(series.CloseMap()), series.Metadata, nil
}

// mergeBars merges newly fetched bars into the existing series, deduplicating
// by date and keeping ascending order.
func mergeBars(existing, fetched []models.EODBar) []models.EODBar {
	if len(fetched) == 0 {
		return existing
	}

	byDay := make(map[time.Time]models.EODBar, len(existing)+len(fetched))
	for _, b := range existing {
		byDay[dayOf(b.Date)] = b
	}
	for _, b := range fetched {
		byDay[dayOf(b.Date)] = b
	}

	merged := make([]models.EODBar, 0, len(byDay))
	for _, b := range byDay {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
	return merged
}

// dayOf truncates an instant to its UTC calendar day.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
