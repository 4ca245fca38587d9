// Package ingest loads raw brokerage export batches and normalizes them into
// canonical transaction records.
package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rmarchal/folioval/internal/models"
)

// ErrNoSourceFiles is returned when the source folder holds no CSV exports.
type ErrNoSourceFiles struct {
	Dir string
}

func (e *ErrNoSourceFiles) Error() string {
	return fmt.Sprintf("no CSV export files found in %s", e.Dir)
}

// LoadBatches reads every CSV file in dir into a raw batch, sniffing the
// delimiter per file. Files are read in lexical order so repeated runs see
// the same batch sequence.
func LoadBatches(dir string) ([]models.RawBatch, error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan source dir %s: %w", dir, err)
	}
	if len(entries) == 0 {
		return nil, &ErrNoSourceFiles{Dir: dir}
	}
	sort.Strings(entries)

	batches := make([]models.RawBatch, 0, len(entries))
	for _, path := range entries {
		batch, err := readBatch(path)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	return batches, nil
}

// readBatch reads one export file into rows of positional cells.
func readBatch(path string) (models.RawBatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.RawBatch{}, fmt.Errorf("failed to read export file %s: %w", path, err)
	}

	delim := detectDelimiter(string(data))

	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.Comma = delim
	reader.FieldsPerRecord = -1 // schema validation reports ragged rows itself

	records, err := reader.ReadAll()
	if err != nil {
		return models.RawBatch{}, fmt.Errorf("failed to parse export file %s: %w", path, err)
	}
	if len(records) == 0 {
		return models.RawBatch{}, fmt.Errorf("export file %s is empty", path)
	}

	return models.RawBatch{
		Source: filepath.Base(path),
		Header: records[0],
		Rows:   records[1:],
	}, nil
}

// detectDelimiter guesses the field separator from the first line of a file.
// Brokerage exports switch between comma and semicolon depending on locale.
func detectDelimiter(sample string) rune {
	line := sample
	if idx := strings.IndexAny(sample, "\r\n"); idx >= 0 {
		line = sample[:idx]
	}

	best := ','
	bestCount := strings.Count(line, ",")
	for _, cand := range []rune{';', '\t', '|'} {
		if n := strings.Count(line, string(cand)); n > bestCount {
			best = cand
			bestCount = n
		}
	}
	return best
}
