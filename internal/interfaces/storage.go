package interfaces

import (
	"context"

	"github.com/rmarchal/folioval/internal/models"
)

// PriceStore is the local read-through cache of daily-close history.
// Implementations must be safe for concurrent use by instrument workers.
type PriceStore interface {
	// GetSeries returns the cached series for a ticker, or nil when absent.
	GetSeries(ctx context.Context, ticker string) (*models.PriceSeries, error)

	// PutSeries upserts a ticker's series.
	PutSeries(ctx context.Context, series *models.PriceSeries) error

	// Close releases the underlying store.
	Close() error
}
