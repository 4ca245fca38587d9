package valuation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rmarchal/folioval/internal/common"
	"github.com/rmarchal/folioval/internal/interfaces"
	"github.com/rmarchal/folioval/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPriceLookupExactDate(t *testing.T) {
	p := NewPriceLookup(map[time.Time]float64{
		day(2024, 1, 5): 100,
		day(2024, 1, 8): 105,
	})

	if got := p.CloseOn(day(2024, 1, 8)); got != 105 {
		t.Errorf("CloseOn(quoted day) = %v, want 105", got)
	}
}

func TestPriceLookupFallsBackToNearestPrior(t *testing.T) {
	p := NewPriceLookup(map[time.Time]float64{
		day(2024, 1, 5): 100, // Friday
		day(2024, 1, 8): 105, // Monday
	})

	// Saturday and Sunday resolve to Friday's close
	if got := p.CloseOn(day(2024, 1, 6)); got != 100 {
		t.Errorf("CloseOn(Saturday) = %v, want 100", got)
	}
	if got := p.CloseOn(day(2024, 1, 7)); got != 100 {
		t.Errorf("CloseOn(Sunday) = %v, want 100", got)
	}

	// Past the last quote the latest close carries forward
	if got := p.CloseOn(day(2024, 2, 1)); got != 105 {
		t.Errorf("CloseOn(after last quote) = %v, want 105", got)
	}
}

func TestPriceLookupBeforeFirstQuoteIsZero(t *testing.T) {
	p := NewPriceLookup(map[time.Time]float64{
		day(2024, 1, 5): 100,
	})

	if got := p.CloseOn(day(2024, 1, 4)); got != 0 {
		t.Errorf("CloseOn(pre-listing) = %v, want 0", got)
	}
}

func TestPriceLookupEmpty(t *testing.T) {
	p := NewPriceLookup(nil)
	if got := p.CloseOn(day(2024, 1, 1)); got != 0 {
		t.Errorf("CloseOn(empty lookup) = %v, want 0", got)
	}
	if p.Len() != 0 {
		t.Errorf("Len() = %d, want 0", p.Len())
	}
}

func TestMergeBarsDeduplicatesByDate(t *testing.T) {
	existing := []models.EODBar{
		{Date: day(2024, 1, 1), Close: 10},
		{Date: day(2024, 1, 2), Close: 11},
	}
	fetched := []models.EODBar{
		{Date: day(2024, 1, 2), Close: 11.5}, // corrected close wins
		{Date: day(2024, 1, 3), Close: 12},
	}

	merged := mergeBars(existing, fetched)
	if len(merged) != 3 {
		t.Fatalf("merged %d bars, want 3", len(merged))
	}
	if merged[1].Close != 11.5 {
		t.Errorf("overlapping bar close = %v, want fetched value 11.5", merged[1].Close)
	}
	for i := 1; i < len(merged); i++ {
		if !merged[i-1].Date.Before(merged[i].Date) {
			t.Errorf("merged bars not ascending at index %d", i)
		}
	}
}

// mockMarket serves canned bars and counts calls. Shared by service_test.go,
// which hits it from concurrent workers.
type mockMarket struct {
	mu       sync.Mutex
	bars     []models.EODBar
	meta     *models.InstrumentMetadata
	eodErr   error
	eodCalls int
	lastFrom time.Time
}

func (m *mockMarket) GetEOD(_ context.Context, _ string, opts ...interfaces.EODOption) (*models.EODResponse, error) {
	params := &interfaces.EODParams{}
	for _, opt := range opts {
		opt(params)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.eodCalls++
	m.lastFrom = params.From
	if m.eodErr != nil {
		return nil, m.eodErr
	}
	return &models.EODResponse{Data: m.bars}, nil
}

func (m *mockMarket) GetMetadata(_ context.Context, _ string) (*models.InstrumentMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.meta == nil {
		return nil, interfaces.ErrNoMapping
	}
	return m.meta, nil
}

// memStore is an in-memory PriceStore for tests.
type memStore struct {
	mu     sync.Mutex
	series map[string]*models.PriceSeries
}

func newMemStore() *memStore {
	return &memStore{series: make(map[string]*models.PriceSeries)}
}

func (s *memStore) GetSeries(_ context.Context, ticker string) (*models.PriceSeries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.series[ticker], nil
}

func (s *memStore) PutSeries(_ context.Context, series *models.PriceSeries) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[series.Ticker] = series
	return nil
}

func (s *memStore) Close() error { return nil }

func TestPriceResolverFetchesAndCaches(t *testing.T) {
	market := &mockMarket{
		bars: []models.EODBar{
			{Date: day(2024, 1, 2), Close: 50},
			{Date: day(2024, 1, 3), Close: 51},
		},
		meta: &models.InstrumentMetadata{AssetClass: "ETF"},
	}
	store := newMemStore()
	r := NewPriceResolver(market, store, common.NewSilentLogger())

	lookup, meta, err := r.Series(context.Background(), "IWDA.AS", day(2024, 1, 1), day(2024, 1, 5))
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if lookup.Len() != 2 {
		t.Errorf("lookup has %d quoted dates, want 2", lookup.Len())
	}
	if meta == nil || meta.AssetClass != "ETF" {
		t.Errorf("metadata = %+v, want ETF", meta)
	}
	if store.series["IWDA.AS"] == nil {
		t.Error("series not written to cache")
	}
}

func TestPriceResolverFetchesOnlyMissingTail(t *testing.T) {
	store := newMemStore()
	store.series["IWDA.AS"] = &models.PriceSeries{
		Ticker:      "IWDA.AS",
		CoveredFrom: day(2024, 1, 1),
		Bars: []models.EODBar{
			{Date: day(2024, 1, 2), Close: 50},
		},
	}

	market := &mockMarket{
		bars: []models.EODBar{{Date: day(2024, 1, 3), Close: 51}},
	}
	r := NewPriceResolver(market, store, common.NewSilentLogger())

	lookup, _, err := r.Series(context.Background(), "IWDA.AS", day(2024, 1, 1), day(2024, 1, 5))
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if market.eodCalls != 1 {
		t.Fatalf("eod calls = %d, want 1", market.eodCalls)
	}
	if want := day(2024, 1, 3); !market.lastFrom.Equal(want) {
		t.Errorf("fetch from = %v, want %v (day after last cached bar)", market.lastFrom, want)
	}
	if lookup.Len() != 2 {
		t.Errorf("lookup has %d quoted dates, want 2 after merge", lookup.Len())
	}
}

func TestPriceResolverFreshCacheSkipsFetch(t *testing.T) {
	store := newMemStore()
	store.series["IWDA.AS"] = &models.PriceSeries{
		Ticker:       "IWDA.AS",
		CoveredFrom:  day(2024, 1, 1),
		Bars:         []models.EODBar{{Date: day(2024, 1, 2), Close: 50}},
		EODUpdatedAt: time.Now(),
	}

	market := &mockMarket{}
	r := NewPriceResolver(market, store, common.NewSilentLogger())

	if _, _, err := r.Series(context.Background(), "IWDA.AS", day(2024, 1, 1), day(2030, 1, 1)); err != nil {
		t.Fatalf("Series: %v", err)
	}
	if market.eodCalls != 0 {
		t.Errorf("eod calls = %d, want 0 for a fresh cache", market.eodCalls)
	}
}

func TestPriceResolverBackfillsHeadOfRange(t *testing.T) {
	// Cached from a run whose transactions started in June; a later export
	// adds older trades, so the requested range now starts in January.
	store := newMemStore()
	store.series["IWDA.AS"] = &models.PriceSeries{
		Ticker:       "IWDA.AS",
		CoveredFrom:  day(2024, 6, 1),
		Bars:         []models.EODBar{{Date: day(2024, 6, 3), Close: 60}},
		EODUpdatedAt: time.Now(),
	}

	market := &mockMarket{
		bars: []models.EODBar{
			{Date: day(2024, 1, 2), Close: 40},
			{Date: day(2024, 6, 3), Close: 60},
		},
	}
	r := NewPriceResolver(market, store, common.NewSilentLogger())

	lookup, _, err := r.Series(context.Background(), "IWDA.AS", day(2024, 1, 1), day(2024, 6, 30))
	if err != nil {
		t.Fatalf("Series: %v", err)
	}

	if market.eodCalls != 1 {
		t.Fatalf("eod calls = %d, want 1 even with a fresh cache", market.eodCalls)
	}
	if want := day(2024, 1, 1); !market.lastFrom.Equal(want) {
		t.Errorf("fetch from = %v, want %v (start of requested range)", market.lastFrom, want)
	}
	if got := lookup.CloseOn(day(2024, 3, 1)); got != 40 {
		t.Errorf("close mid-range = %v, want 40 from the back-filled head", got)
	}
	if got := store.series["IWDA.AS"].CoveredFrom; !got.Equal(day(2024, 1, 1)) {
		t.Errorf("cached covered-from = %v, want extended to 2024-01-01", got)
	}
}

func TestPriceResolverLegacySeriesBackfillsOnce(t *testing.T) {
	// A series cached before coverage tracking has no CoveredFrom; its first
	// bar stands in, so an earlier request still triggers one head fetch.
	store := newMemStore()
	store.series["IWDA.AS"] = &models.PriceSeries{
		Ticker:       "IWDA.AS",
		Bars:         []models.EODBar{{Date: day(2024, 6, 3), Close: 60}},
		EODUpdatedAt: time.Now(),
	}

	market := &mockMarket{
		bars: []models.EODBar{{Date: day(2024, 1, 2), Close: 40}},
	}
	r := NewPriceResolver(market, store, common.NewSilentLogger())

	if _, _, err := r.Series(context.Background(), "IWDA.AS", day(2024, 1, 1), day(2024, 6, 30)); err != nil {
		t.Fatalf("Series: %v", err)
	}
	if market.eodCalls != 1 {
		t.Errorf("eod calls = %d, want 1", market.eodCalls)
	}
	if got := store.series["IWDA.AS"].CoveredFrom; !got.Equal(day(2024, 1, 1)) {
		t.Errorf("cached covered-from = %v, want 2024-01-01", got)
	}
}

func TestPriceResolverNilStore(t *testing.T) {
	market := &mockMarket{
		bars: []models.EODBar{{Date: day(2024, 1, 2), Close: 50}},
	}
	r := NewPriceResolver(market, nil, common.NewSilentLogger())

	lookup, _, err := r.Series(context.Background(), "IWDA.AS", day(2024, 1, 1), day(2024, 1, 5))
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if lookup.Len() != 1 {
		t.Errorf("lookup has %d quoted dates, want 1", lookup.Len())
	}
}
