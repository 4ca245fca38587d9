// Package pricedb provides a BadgerHold-backed local cache of daily-close
// price history, reused across runs so instruments already fetched are not
// re-downloaded.
package pricedb

import (
	"context"
	"fmt"
	"os"

	"github.com/timshannon/badgerhold/v4"

	"github.com/rmarchal/folioval/internal/common"
	"github.com/rmarchal/folioval/internal/interfaces"
	"github.com/rmarchal/folioval/internal/models"
)

// Store wraps a BadgerHold database connection.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// NewStore creates a new BadgerHold store at the given directory path.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create pricedb directory %s: %w", path, err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // Disable default badger logger

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open price database: %w", err)
	}

	logger.Debug().Str("path", path).Msg("Price cache opened")

	return &Store{
		db:     db,
		logger: logger,
	}, nil
}

// GetSeries returns the cached series for a ticker, or nil when absent.
func (s *Store) GetSeries(_ context.Context, ticker string) (*models.PriceSeries, error) {
	var series models.PriceSeries
	err := s.db.Get(ticker, &series)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get price series for '%s': %w", ticker, err)
	}
	return &series, nil
}

// PutSeries upserts a ticker's series.
func (s *Store) PutSeries(_ context.Context, series *models.PriceSeries) error {
	if series == nil || series.Ticker == "" {
		return fmt.Errorf("price series requires a ticker")
	}
	if err := s.db.Upsert(series.Ticker, series); err != nil {
		return fmt.Errorf("failed to store price series for '%s': %w", series.Ticker, err)
	}
	return nil
}

// Close closes the BadgerHold database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure Store implements PriceStore
var _ interfaces.PriceStore = (*Store)(nil)
