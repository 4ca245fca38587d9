// Package report writes valuation run artifacts: CSV tables, a markdown
// summary and PNG charts, grouped under a per-run output directory.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rmarchal/folioval/internal/common"
	"github.com/rmarchal/folioval/internal/models"
)

// Service writes run reports under a base output directory.
type Service struct {
	outputDir string
	logger    *common.Logger
}

// NewService creates a report service.
func NewService(outputDir string, logger *common.Logger) *Service {
	return &Service{outputDir: outputDir, logger: logger}
}

// Write renders all artifacts for a valuation run into
// <output>/<run end date>/ and returns the directory path. Chart failures on
// short histories are logged and skipped; table failures abort.
func (s *Service) Write(result *models.ValuationResult) (string, error) {
	dir := filepath.Join(s.outputDir, result.To.Format("2006-01-02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	if err := s.writeCSV(filepath.Join(dir, "positions.csv"), func(f *os.File) error {
		return WritePositionsCSV(f, result.Series)
	}); err != nil {
		return "", err
	}

	if err := s.writeCSV(filepath.Join(dir, "portfolio.csv"), func(f *os.File) error {
		return WritePortfolioCSV(f, result.Snapshots)
	}); err != nil {
		return "", err
	}

	if err := s.writeCSV(filepath.Join(dir, "summary.csv"), func(f *os.File) error {
		return WriteSummaryCSV(f, result.KPI, result.Skipped)
	}); err != nil {
		return "", err
	}

	summaryPath := filepath.Join(dir, "summary.md")
	if err := os.WriteFile(summaryPath, []byte(formatSummary(result)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}

	s.writeCharts(dir, result)

	s.logger.Info().Str("dir", dir).Msg("Run reports written")
	return dir, nil
}

func (s *Service) writeCSV(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	if err := write(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *Service) writeCharts(dir string, result *models.ValuationResult) {
	if png, err := RenderPortfolioChart(result.Snapshots); err != nil {
		s.logger.Warn().Err(err).Msg("Portfolio chart skipped")
	} else if err := os.WriteFile(filepath.Join(dir, "portfolio.png"), png, 0o644); err != nil {
		s.logger.Warn().Err(err).Msg("Portfolio chart write failed")
	}

	chartDir := filepath.Join(dir, "charts")
	if err := os.MkdirAll(chartDir, 0o755); err != nil {
		s.logger.Warn().Err(err).Msg("Chart directory creation failed")
		return
	}

	for _, series := range result.Series {
		png, err := RenderInstrumentChart(series)
		if err != nil {
			s.logger.Warn().Str("ticker", series.Instrument.Ticker).Err(err).Msg("Instrument chart skipped")
			continue
		}
		name := chartFileName(series.Instrument) + ".png"
		if err := os.WriteFile(filepath.Join(chartDir, name), png, 0o644); err != nil {
			s.logger.Warn().Str("ticker", series.Instrument.Ticker).Err(err).Msg("Instrument chart write failed")
		}
	}
}

// chartFileName derives a filesystem-safe name for an instrument chart,
// preferring the resolved ticker and falling back to the ISIN.
func chartFileName(inst *models.Instrument) string {
	name := inst.Ticker
	if name == "" {
		name = inst.ISIN
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
