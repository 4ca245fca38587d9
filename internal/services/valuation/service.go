package valuation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rmarchal/folioval/internal/common"
	"github.com/rmarchal/folioval/internal/interfaces"
	"github.com/rmarchal/folioval/internal/models"
)

// DefaultWorkers bounds concurrent per-instrument valuation when the
// configuration does not say otherwise.
const DefaultWorkers = 4

// ErrNoTransactions is returned when a run is started with nothing to value.
var ErrNoTransactions = errors.New("no transactions to value")

// Service runs the valuation pipeline: ticker resolution, price retrieval,
// daily reconstruction and portfolio aggregation. Instruments are processed
// concurrently; one instrument failing to resolve or price does not abort
// the run.
type Service struct {
	resolver interfaces.TickerResolver
	prices   *PriceResolver
	venues   common.VenuesConfig
	workers  int
	logger   *common.Logger
}

// NewService creates a valuation service.
func NewService(resolver interfaces.TickerResolver, prices *PriceResolver, venues common.VenuesConfig, workers int, logger *common.Logger) *Service {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Service{
		resolver: resolver,
		prices:   prices,
		venues:   venues,
		workers:  workers,
		logger:   logger,
	}
}

// Run values the full transaction history from the earliest trade to today.
// Transactions must be normalized and sorted ascending. Instruments that
// cannot be resolved or priced are reported in the result's Skipped map and
// excluded from the portfolio totals.
func (s *Service) Run(ctx context.Context, txs []models.Transaction) (*models.ValuationResult, error) {
	if len(txs) == 0 {
		return nil, ErrNoTransactions
	}

	instruments := models.GroupInstruments(txs)

	from := instruments[0].FirstTradeDate()
	for _, inst := range instruments[1:] {
		if d := inst.FirstTradeDate(); d.Before(from) {
			from = d
		}
	}
	to := dayOf(time.Now().UTC())
	days := calendarDays(from, to)

	s.logger.Info().
		Int("instruments", len(instruments)).
		Str("from", from.Format("2006-01-02")).
		Str("to", to.Format("2006-01-02")).
		Msg("Valuation run started")

	built := make([]*models.InstrumentSeries, len(instruments))
	skipped := make(map[string]string)

	var wg sync.WaitGroup
	var mu sync.Mutex
	sem := make(chan struct{}, s.workers)

	for i, inst := range instruments {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, inst *models.Instrument) {
			defer wg.Done()
			defer func() { <-sem }()

			series, err := s.valueInstrument(ctx, inst, from, to)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn().
					Str("isin", inst.ISIN).
					Str("product", inst.Name).
					Err(err).
					Msg("Instrument skipped")
				skipped[inst.ISIN] = err.Error()
				return
			}
			built[i] = series
		}(i, inst)
	}
	wg.Wait()

	series := make([]*models.InstrumentSeries, 0, len(built))
	for _, sr := range built {
		if sr != nil {
			series = append(series, sr)
		}
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("no instrument could be valued (%d skipped)", len(skipped))
	}

	snapshots := aggregate(days, series)
	kpi := summarize(snapshots)

	s.logger.Info().
		Int("valued", len(series)).
		Int("skipped", len(skipped)).
		Float64("total_value", kpi.TotalValue).
		Msg("Valuation run complete")

	return &models.ValuationResult{
		RunID:     uuid.NewString(),
		From:      from,
		To:        to,
		Series:    series,
		Snapshots: snapshots,
		KPI:       kpi,
		Skipped:   skipped,
	}, nil
}

// valueInstrument resolves one instrument to a quotable ticker, fetches its
// price history and replays its transactions over the run calendar.
func (s *Service) valueInstrument(ctx context.Context, inst *models.Instrument, from, to time.Time) (*models.InstrumentSeries, error) {
	suffix, ok := s.venues.SuffixFor(inst.Venue)
	if !ok {
		return nil, fmt.Errorf("no ticker suffix configured for venue %q", inst.Venue)
	}

	base, err := s.resolver.ResolveISIN(ctx, inst.ISIN)
	if err != nil {
		if errors.Is(err, interfaces.ErrNoMapping) {
			return nil, fmt.Errorf("no ticker mapping for ISIN %s", inst.ISIN)
		}
		return nil, fmt.Errorf("ticker resolution failed: %w", err)
	}
	inst.Ticker = base + suffix

	lookup, meta, err := s.prices.Series(ctx, inst.Ticker, from, to)
	if err != nil {
		return nil, err
	}
	if lookup.Len() == 0 {
		return nil, fmt.Errorf("no price history for %s", inst.Ticker)
	}
	if inst.Metadata == nil {
		inst.Metadata = meta
	}

	return buildSeries(inst, lookup, from, to, s.logger), nil
}
