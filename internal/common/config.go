// Package common provides shared utilities for Folioval
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Folioval
type Config struct {
	Environment string        `toml:"environment"`
	SourceDir   string        `toml:"source_dir"` // folder containing brokerage CSV exports
	OutputDir   string        `toml:"output_dir"` // root folder for per-run report artifacts
	Workers     int           `toml:"workers"`    // instrument worker pool size
	Storage     StorageConfig `toml:"storage"`
	Clients     ClientsConfig `toml:"clients"`
	Venues      VenuesConfig  `toml:"venues"`
	Logging     LoggingConfig `toml:"logging"`
}

// StorageConfig holds the local price cache location.
type StorageConfig struct {
	PriceDB AreaConfig `toml:"pricedb"` // cached daily closes (BadgerHold)
}

// AreaConfig holds path configuration for a storage area.
type AreaConfig struct {
	Path string `toml:"path"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD    EODHDConfig    `toml:"eodhd"`
	OpenFIGI OpenFIGIConfig `toml:"openfigi"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// OpenFIGIConfig holds OpenFIGI mapping API configuration.
// An API key is optional; without one the service applies stricter rate limits.
type OpenFIGIConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *OpenFIGIConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// VenuesConfig maps brokerage venue codes to market-data ticker suffixes.
// An instrument whose venue has no mapping cannot be priced and is skipped.
type VenuesConfig struct {
	Suffixes map[string]string `toml:"suffixes"`
}

// SuffixFor returns the ticker suffix for a venue code, case-insensitive.
func (v *VenuesConfig) SuffixFor(venue string) (string, bool) {
	s, ok := v.Suffixes[strings.ToUpper(strings.TrimSpace(venue))]
	return s, ok
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		SourceDir:   "source",
		OutputDir:   "output",
		Workers:     4,
		Storage: StorageConfig{
			PriceDB: AreaConfig{Path: "data/pricedb"},
		},
		Clients: ClientsConfig{
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
			OpenFIGI: OpenFIGIConfig{
				BaseURL:   "https://api.openfigi.com/v3",
				RateLimit: 5,
				Timeout:   "30s",
			},
		},
		Venues: VenuesConfig{
			Suffixes: map[string]string{
				"EAM": ".AS", // Euronext Amsterdam
				"EPA": ".PA", // Euronext Paris
				"EBR": ".BR", // Euronext Brussels
				"ELI": ".LS", // Euronext Lisbon
				"XET": ".XETRA",
				"FRA": ".F",
				"LSE": ".LSE",
				"MIL": ".MI",
				"MAD": ".MC",
				"NDQ": ".US",
				"NSY": ".US",
				"ASX": ".AU",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Apply environment overrides
	applyEnvOverrides(config)

	if config.Workers < 1 {
		config.Workers = 1
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FOLIOVAL_ENV"); env != "" {
		config.Environment = env
	}

	if dir := os.Getenv("FOLIOVAL_SOURCE_DIR"); dir != "" {
		config.SourceDir = dir
	}

	if dir := os.Getenv("FOLIOVAL_OUTPUT_DIR"); dir != "" {
		config.OutputDir = dir
	}

	if workers := os.Getenv("FOLIOVAL_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			config.Workers = w
		}
	}

	if level := os.Getenv("FOLIOVAL_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("FOLIOVAL_PRICEDB_PATH"); path != "" {
		config.Storage.PriceDB.Path = path
	}

	if key := os.Getenv("EODHD_API_KEY"); key != "" {
		config.Clients.EODHD.APIKey = key
	}
	if key := os.Getenv("FOLIOVAL_EODHD_API_KEY"); key != "" {
		config.Clients.EODHD.APIKey = key
	}

	if key := os.Getenv("OPENFIGI_API_KEY"); key != "" {
		config.Clients.OpenFIGI.APIKey = key
	}
	if key := os.Getenv("FOLIOVAL_OPENFIGI_API_KEY"); key != "" {
		config.Clients.OpenFIGI.APIKey = key
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
