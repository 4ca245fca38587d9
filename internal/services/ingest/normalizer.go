package ingest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rmarchal/folioval/internal/common"
	"github.com/rmarchal/folioval/internal/models"
)

// Column positions of the supported export layout. Fields are identified by
// position once, here; everything downstream addresses them by name.
const (
	colDate          = 0
	colTime          = 1
	colProduct       = 2
	colISIN          = 3
	colVenue         = 4
	colExecVenue     = 5
	colQuantity      = 6
	colPrice         = 7
	colPriceCurrency = 8
	colLocalValue    = 9
	colLocalCurrency = 10
	colValue         = 11
	colValueCurrency = 12
	colExchangeRate  = 13
	colFees          = 14
	colFeesCurrency  = 15
	colTotal         = 16
	colTotalCurrency = 17
	colOrderID       = 18

	columnCount = 19
)

// cellKind is the value kind expected at a column position.
type cellKind int

const (
	kindText cellKind = iota
	kindInt
	kindFloat
)

// columnKinds is the fixed positional schema of a supported export:
// six textual columns, then typed numeric/textual columns.
var columnKinds = [columnCount]cellKind{
	kindText, kindText, kindText, kindText, kindText, kindText,
	kindInt, kindFloat,
	kindText, kindFloat, kindText, kindFloat, kindText, kindFloat,
	kindFloat, kindText, kindFloat, kindText, kindText,
}

// SchemaError is a fatal input error: a batch does not match the supported
// export layout. The whole run aborts; nothing is repaired or skipped.
type SchemaError struct {
	Source string
	Row    int // 1-based data row, 0 when the whole batch is malformed
	Column int
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("batch %s is not a supported export: %s", e.Source, e.Reason)
	}
	return fmt.Sprintf("batch %s is not a supported export: row %d column %d: %s",
		e.Source, e.Row, e.Column, e.Reason)
}

// Normalizer shapes raw export batches into canonical transactions.
type Normalizer struct {
	logger *common.Logger
}

// NewNormalizer creates a normalizer.
func NewNormalizer(logger *common.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize validates each batch against the positional schema, concatenates
// them (subsequent batches column-aligned to the first batch's header order),
// and returns all transactions sorted by ascending timestamp. The sort order
// is load-bearing: FIFO lot consumption depends on it.
func (n *Normalizer) Normalize(batches []models.RawBatch) ([]models.Transaction, error) {
	var all []models.Transaction

	for i, batch := range batches {
		if i > 0 {
			batch = alignBatch(batch, batches[0].Header)
		}

		if err := validateBatch(batch); err != nil {
			return nil, err
		}

		txs, err := convertBatch(batch)
		if err != nil {
			return nil, err
		}
		all = append(all, txs...)

		n.logger.Debug().
			Str("batch", batch.Source).
			Int("rows", len(batch.Rows)).
			Msg("Batch normalized")
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})

	n.logger.Info().
		Int("batches", len(batches)).
		Int("transactions", len(all)).
		Msg("Transaction normalization complete")

	return all, nil
}

// alignBatch reorders a later batch's columns to the reference header order
// when its header names are a permutation of the reference. Exports sometimes
// carry the same columns in a different order; matching by name keeps those
// batches usable. A header that is not a permutation of the reference passes
// through untouched and answers to positional validation instead.
func alignBatch(batch models.RawBatch, ref []string) models.RawBatch {
	if len(batch.Header) != len(ref) || headersMatch(batch.Header, ref) {
		return batch
	}

	perm, ok := headerPermutation(ref, batch.Header)
	if !ok {
		return batch
	}

	aligned := models.RawBatch{
		Source: batch.Source,
		Header: make([]string, len(ref)),
		Rows:   make([][]string, len(batch.Rows)),
	}
	for i, src := range perm {
		aligned.Header[i] = batch.Header[src]
	}
	for r, row := range batch.Rows {
		if len(row) != len(perm) {
			aligned.Rows[r] = row // ragged, validation reports it
			continue
		}
		cells := make([]string, len(perm))
		for i, src := range perm {
			cells[i] = row[src]
		}
		aligned.Rows[r] = cells
	}
	return aligned
}

// headersMatch reports whether two equal-length headers carry the same names
// in the same order.
func headersMatch(a, b []string) bool {
	for i := range a {
		if headerName(a[i]) != headerName(b[i]) {
			return false
		}
	}
	return true
}

// headerPermutation maps each reference column to the matching column of hdr.
// Duplicate names (exports leave the currency columns unnamed) pair up by
// occurrence, preserving their relative order.
func headerPermutation(ref, hdr []string) ([]int, bool) {
	used := make([]bool, len(hdr))
	perm := make([]int, len(ref))

	for i, name := range ref {
		want := headerName(name)
		found := -1
		for j, cand := range hdr {
			if !used[j] && headerName(cand) == want {
				found = j
				break
			}
		}
		if found < 0 {
			return nil, false
		}
		used[found] = true
		perm[i] = found
	}
	return perm, true
}

func headerName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// validateBatch checks column count and per-column value kind for every row.
func validateBatch(batch models.RawBatch) error {
	if len(batch.Header) != columnCount {
		return &SchemaError{
			Source: batch.Source,
			Reason: fmt.Sprintf("expected %d columns, found %d", columnCount, len(batch.Header)),
		}
	}

	for i, row := range batch.Rows {
		if len(row) != columnCount {
			return &SchemaError{
				Source: batch.Source,
				Row:    i + 1,
				Reason: fmt.Sprintf("expected %d columns, found %d", columnCount, len(row)),
			}
		}

		for col, cell := range row {
			switch columnKinds[col] {
			case kindInt:
				if _, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64); err != nil {
					return &SchemaError{
						Source: batch.Source,
						Row:    i + 1,
						Column: col,
						Reason: fmt.Sprintf("expected integer, found %q", cell),
					}
				}
			case kindFloat:
				if _, ok := parseFloatCell(cell); !ok {
					return &SchemaError{
						Source: batch.Source,
						Row:    i + 1,
						Column: col,
						Reason: fmt.Sprintf("expected number, found %q", cell),
					}
				}
			}
		}
	}
	return nil
}

// convertBatch shapes validated rows into transactions.
func convertBatch(batch models.RawBatch) ([]models.Transaction, error) {
	txs := make([]models.Transaction, 0, len(batch.Rows))

	for i, row := range batch.Rows {
		ts, err := parseTimestamp(row[colDate], row[colTime])
		if err != nil {
			return nil, &SchemaError{
				Source: batch.Source,
				Row:    i + 1,
				Column: colDate,
				Reason: err.Error(),
			}
		}

		qty, _ := strconv.ParseInt(strings.TrimSpace(row[colQuantity]), 10, 64)
		price, _ := parseFloatCell(row[colPrice])
		fees, _ := parseFloatCell(row[colFees])
		total, _ := parseFloatCell(row[colTotal])

		txs = append(txs, models.Transaction{
			Timestamp:      ts,
			ProductName:    strings.TrimSpace(row[colProduct]),
			ISIN:           strings.TrimSpace(row[colISIN]),
			Venue:          strings.TrimSpace(row[colVenue]),
			ExecutionVenue: strings.TrimSpace(row[colExecVenue]),
			Quantity:       float64(qty),
			Price:          price,
			Fees:           fees,
			TotalAmount:    total,
			OrderID:        strings.TrimSpace(row[colOrderID]),
		})
	}
	return txs, nil
}

// parseTimestamp combines the export's date (day-month-year) and time
// (hour:minute) fields into one sortable instant, defaulting seconds to :00.
func parseTimestamp(dateCell, timeCell string) (time.Time, error) {
	date := strings.TrimSpace(dateCell)
	clock := strings.TrimSpace(timeCell)
	if clock == "" {
		clock = "00:00"
	}
	if strings.Count(clock, ":") == 1 {
		clock += ":00"
	}

	ts, err := time.ParseInLocation("02-01-2006 15:04:05", date+" "+clock, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable trade timestamp %q %q", dateCell, timeCell)
	}
	return ts, nil
}

// parseFloatCell parses a numeric cell, tolerating locale decimal commas and
// treating an empty cell as 0 (fees may be absent).
func parseFloatCell(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, true
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
