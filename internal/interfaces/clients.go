// Package interfaces defines service contracts for Folioval
package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/rmarchal/folioval/internal/models"
)

// ErrNoMapping signals that a lookup service has no ticker for an ISIN.
// Callers treat it as "instrument unresolvable": skip, never abort the run.
var ErrNoMapping = errors.New("no ticker mapping")

// TickerResolver maps an ISIN to a bare ticker symbol.
type TickerResolver interface {
	// ResolveISIN returns the primary ticker for an ISIN.
	// Returns ErrNoMapping when the service has no match.
	ResolveISIN(ctx context.Context, isin string) (string, error)
}

// MarketDataClient provides access to a daily-price history service.
type MarketDataClient interface {
	// GetEOD retrieves end-of-day price data for a market ticker.
	// The returned series may be sparse or empty; callers must not assume
	// one bar per calendar day.
	GetEOD(ctx context.Context, ticker string, opts ...EODOption) (*models.EODResponse, error)

	// GetMetadata retrieves descriptive instrument metadata (asset class,
	// sector, country). Best effort: an error leaves metadata empty, it
	// never fails a valuation.
	GetMetadata(ctx context.Context, ticker string) (*models.InstrumentMetadata, error)
}

// EODOption configures EOD data requests
type EODOption func(*EODParams)

// EODParams holds EOD query parameters
type EODParams struct {
	From   time.Time
	To     time.Time
	Period string // d=daily, w=weekly, m=monthly
	Order  string // a=ascending, d=descending
}

// WithDateRange sets the date range for EOD query
func WithDateRange(from, to time.Time) EODOption {
	return func(p *EODParams) {
		p.From = from
		p.To = to
	}
}

// WithPeriod sets the period for EOD query
func WithPeriod(period string) EODOption {
	return func(p *EODParams) {
		p.Period = period
	}
}
