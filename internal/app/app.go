// Package app wires configuration, clients, storage and services into the
// runnable application core used by cmd/folioval.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rmarchal/folioval/internal/clients/eodhd"
	"github.com/rmarchal/folioval/internal/clients/openfigi"
	"github.com/rmarchal/folioval/internal/common"
	"github.com/rmarchal/folioval/internal/interfaces"
	"github.com/rmarchal/folioval/internal/models"
	"github.com/rmarchal/folioval/internal/services/ingest"
	"github.com/rmarchal/folioval/internal/services/report"
	"github.com/rmarchal/folioval/internal/services/valuation"
	"github.com/rmarchal/folioval/internal/storage/pricedb"
)

// ErrNoConnectivity means the network probe failed before any API was called.
// Valuation cannot proceed without market data access.
var ErrNoConnectivity = errors.New("no network connectivity")

// App holds all initialized clients, storage and services.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	PriceStore  interfaces.PriceStore
	Valuation   *valuation.Service
	Reports     *report.Service
	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes clients, storage and services. configPath may be empty,
// in which case FOLIOVAL_CONFIG and then the binary directory are checked.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("FOLIOVAL_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "folioval.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/folioval.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative price cache path to binary directory
	if config.Storage.PriceDB.Path != "" && !filepath.IsAbs(config.Storage.PriceDB.Path) {
		config.Storage.PriceDB.Path = filepath.Join(binDir, config.Storage.PriceDB.Path)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	if !common.IsNetworkReachable(common.DefaultProbeTimeout) {
		return nil, ErrNoConnectivity
	}

	if config.Clients.EODHD.APIKey == "" {
		return nil, fmt.Errorf("EODHD API key not configured (set EODHD_API_KEY or clients.eodhd.api_key)")
	}

	// The price cache is an optimization; valuation runs without it.
	var store interfaces.PriceStore
	if s, err := pricedb.NewStore(logger, config.Storage.PriceDB.Path); err != nil {
		logger.Warn().Err(err).Msg("Price cache unavailable, fetching all history fresh")
	} else {
		store = s
	}

	eodhdClient := eodhd.NewClient(config.Clients.EODHD.APIKey,
		eodhd.WithBaseURL(config.Clients.EODHD.BaseURL),
		eodhd.WithLogger(logger),
		eodhd.WithRateLimit(config.Clients.EODHD.RateLimit),
		eodhd.WithTimeout(config.Clients.EODHD.GetTimeout()),
	)

	figiClient := openfigi.NewClient(config.Clients.OpenFIGI.APIKey,
		openfigi.WithBaseURL(config.Clients.OpenFIGI.BaseURL),
		openfigi.WithLogger(logger),
		openfigi.WithRateLimit(config.Clients.OpenFIGI.RateLimit),
		openfigi.WithTimeout(config.Clients.OpenFIGI.GetTimeout()),
	)

	prices := valuation.NewPriceResolver(eodhdClient, store, logger)
	valuationService := valuation.NewService(figiClient, prices, config.Venues, config.Workers, logger)
	reportService := report.NewService(config.OutputDir, logger)

	logger.Debug().
		Str("config", configPath).
		Dur("startup", time.Since(startupStart)).
		Msg("Application initialized")

	return &App{
		Config:      config,
		Logger:      logger,
		PriceStore:  store,
		Valuation:   valuationService,
		Reports:     reportService,
		StartupTime: startupStart,
	}, nil
}

// Run executes the full pipeline: load and normalize the export batches,
// value every instrument, write the run reports. Returns the valuation
// result and the report directory.
func (a *App) Run(ctx context.Context) (*models.ValuationResult, string, error) {
	batches, err := ingest.LoadBatches(a.Config.SourceDir)
	if err != nil {
		return nil, "", err
	}

	normalizer := ingest.NewNormalizer(a.Logger)
	txs, err := normalizer.Normalize(batches)
	if err != nil {
		return nil, "", err
	}

	result, err := a.Valuation.Run(ctx, txs)
	if err != nil {
		return nil, "", err
	}

	dir, err := a.Reports.Write(result)
	if err != nil {
		return result, "", err
	}

	return result, dir, nil
}

// Close releases held resources.
func (a *App) Close() {
	if a.PriceStore != nil {
		if err := a.PriceStore.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Price cache close failed")
		}
	}
}
