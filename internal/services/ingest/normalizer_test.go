package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/rmarchal/folioval/internal/common"
	"github.com/rmarchal/folioval/internal/models"
)

// exportRow builds a valid 19-column row; overrides patch individual cells.
func exportRow(overrides map[int]string) []string {
	row := []string{
		"01-02-2023", "09:05", "ISHARES CORE MSCI WORLD", "IE00B4L5Y983", "EAM", "XEIM",
		"10", "72.50",
		"EUR", "-725.00", "EUR", "-725.00", "EUR", "1.0",
		"-2.50", "EUR", "-727.50", "EUR", "abc-123",
	}
	for col, v := range overrides {
		row[col] = v
	}
	return row
}

func exportHeader() []string {
	return make([]string, 19)
}

// namedHeader mirrors a real export header; the currency columns are unnamed.
func namedHeader() []string {
	return []string{
		"Date", "Time", "Product", "ISIN", "Venue", "Execution venue",
		"Quantity", "Price", "", "Local value", "", "Value", "", "Exchange rate",
		"Fees", "", "Total", "", "Order ID",
	}
}

func batchOf(source string, rows ...[]string) models.RawBatch {
	return models.RawBatch{Source: source, Header: exportHeader(), Rows: rows}
}

func TestNormalizeMapsColumns(t *testing.T) {
	n := NewNormalizer(common.NewSilentLogger())

	txs, err := n.Normalize([]models.RawBatch{batchOf("a.csv", exportRow(nil))})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs))
	}

	tx := txs[0]
	want := time.Date(2023, 2, 1, 9, 5, 0, 0, time.UTC)
	if !tx.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", tx.Timestamp, want)
	}
	if tx.ProductName != "ISHARES CORE MSCI WORLD" || tx.ISIN != "IE00B4L5Y983" {
		t.Errorf("identity fields = %q %q", tx.ProductName, tx.ISIN)
	}
	if tx.Venue != "EAM" || tx.ExecutionVenue != "XEIM" {
		t.Errorf("venue fields = %q %q", tx.Venue, tx.ExecutionVenue)
	}
	if tx.Quantity != 10 || tx.Price != 72.50 || tx.Fees != -2.50 || tx.TotalAmount != -727.50 {
		t.Errorf("numeric fields = %v %v %v %v", tx.Quantity, tx.Price, tx.Fees, tx.TotalAmount)
	}
	if tx.OrderID != "abc-123" {
		t.Errorf("order id = %q", tx.OrderID)
	}
}

func TestNormalizeSortsAcrossBatches(t *testing.T) {
	n := NewNormalizer(common.NewSilentLogger())

	newer := batchOf("2024.csv", exportRow(map[int]string{0: "15-03-2024"}))
	older := batchOf("2023.csv", exportRow(map[int]string{0: "01-02-2023"}))

	txs, err := n.Normalize([]models.RawBatch{newer, older})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !txs[0].Timestamp.Before(txs[1].Timestamp) {
		t.Errorf("transactions not ascending: %v then %v", txs[0].Timestamp, txs[1].Timestamp)
	}
}

func TestNormalizeAlignsReorderedBatchColumns(t *testing.T) {
	n := NewNormalizer(common.NewSilentLogger())

	first := models.RawBatch{
		Source: "a.csv",
		Header: namedHeader(),
		Rows:   [][]string{exportRow(nil)},
	}

	// Same schema, but the second export swapped quantity and price
	hdr := namedHeader()
	row := exportRow(map[int]string{0: "15-03-2023"})
	hdr[6], hdr[7] = hdr[7], hdr[6]
	row[6], row[7] = row[7], row[6]
	second := models.RawBatch{Source: "b.csv", Header: hdr, Rows: [][]string{row}}

	txs, err := n.Normalize([]models.RawBatch{first, second})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}

	if txs[1].Quantity != 10 || txs[1].Price != 72.50 {
		t.Errorf("reordered batch mapped quantity=%v price=%v, want 10 and 72.50", txs[1].Quantity, txs[1].Price)
	}
}

func TestNormalizeAlignsShuffledHeaderWithUnnamedColumns(t *testing.T) {
	n := NewNormalizer(common.NewSilentLogger())

	first := models.RawBatch{
		Source: "a.csv",
		Header: namedHeader(),
		Rows:   [][]string{exportRow(nil)},
	}

	// Move the fees column next to the total; an unnamed currency column
	// travels with it, so duplicates must pair by occurrence
	hdr := namedHeader()
	row := exportRow(map[int]string{0: "15-03-2023", 14: "-9.99"})
	for _, swap := range [][2]int{{14, 16}, {15, 17}} {
		hdr[swap[0]], hdr[swap[1]] = hdr[swap[1]], hdr[swap[0]]
		row[swap[0]], row[swap[1]] = row[swap[1]], row[swap[0]]
	}
	second := models.RawBatch{Source: "b.csv", Header: hdr, Rows: [][]string{row}}

	txs, err := n.Normalize([]models.RawBatch{first, second})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if txs[1].Fees != -9.99 || txs[1].TotalAmount != -727.50 {
		t.Errorf("shuffled batch mapped fees=%v total=%v, want -9.99 and -727.50", txs[1].Fees, txs[1].TotalAmount)
	}
}

func TestNormalizeForeignHeaderStaysPositional(t *testing.T) {
	n := NewNormalizer(common.NewSilentLogger())

	first := models.RawBatch{
		Source: "a.csv",
		Header: namedHeader(),
		Rows:   [][]string{exportRow(nil)},
	}

	// Header names share nothing with the first batch: no alignment, the
	// positional schema decides
	hdr := make([]string, 19)
	for i := range hdr {
		hdr[i] = string(rune('a' + i))
	}
	second := models.RawBatch{Source: "b.csv", Header: hdr, Rows: [][]string{exportRow(nil)}}

	txs, err := n.Normalize([]models.RawBatch{first, second})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(txs) != 2 {
		t.Errorf("got %d transactions, want 2", len(txs))
	}
}

func TestNormalizeRejectsWrongColumnCount(t *testing.T) {
	n := NewNormalizer(common.NewSilentLogger())

	batch := models.RawBatch{
		Source: "bad.csv",
		Header: make([]string, 12),
		Rows:   nil,
	}

	_, err := n.Normalize([]models.RawBatch{batch})
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("err = %v, want SchemaError", err)
	}
	if schemaErr.Source != "bad.csv" {
		t.Errorf("error names batch %q, want bad.csv", schemaErr.Source)
	}
}

func TestNormalizeRejectsRaggedRow(t *testing.T) {
	n := NewNormalizer(common.NewSilentLogger())

	short := exportRow(nil)[:15]
	batch := batchOf("ragged.csv", exportRow(nil), short)

	_, err := n.Normalize([]models.RawBatch{batch})
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("err = %v, want SchemaError", err)
	}
	if schemaErr.Row != 2 {
		t.Errorf("error row = %d, want 2", schemaErr.Row)
	}
}

func TestNormalizeRejectsNonIntegerQuantity(t *testing.T) {
	n := NewNormalizer(common.NewSilentLogger())

	batch := batchOf("frac.csv", exportRow(map[int]string{6: "10.5"}))

	_, err := n.Normalize([]models.RawBatch{batch})
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("err = %v, want SchemaError", err)
	}
	if schemaErr.Column != 6 {
		t.Errorf("error column = %d, want 6", schemaErr.Column)
	}
}

func TestNormalizeRejectsNonNumericPrice(t *testing.T) {
	n := NewNormalizer(common.NewSilentLogger())

	batch := batchOf("text.csv", exportRow(map[int]string{7: "n/a"}))

	_, err := n.Normalize([]models.RawBatch{batch})
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("err = %v, want SchemaError", err)
	}
}

func TestNormalizeAcceptsDecimalComma(t *testing.T) {
	n := NewNormalizer(common.NewSilentLogger())

	batch := batchOf("locale.csv", exportRow(map[int]string{7: "72,50"}))

	txs, err := n.Normalize([]models.RawBatch{batch})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if txs[0].Price != 72.50 {
		t.Errorf("price = %v, want 72.50", txs[0].Price)
	}
}

func TestNormalizeEmptyFeesAreZero(t *testing.T) {
	n := NewNormalizer(common.NewSilentLogger())

	batch := batchOf("nofees.csv", exportRow(map[int]string{14: ""}))

	txs, err := n.Normalize([]models.RawBatch{batch})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if txs[0].Fees != 0 {
		t.Errorf("fees = %v, want 0", txs[0].Fees)
	}
	if txs[0].AbsFees() != 0 {
		t.Errorf("abs fees = %v, want 0", txs[0].AbsFees())
	}
}

func TestNormalizeEmptyTimeDefaultsToMidnight(t *testing.T) {
	n := NewNormalizer(common.NewSilentLogger())

	batch := batchOf("notime.csv", exportRow(map[int]string{1: ""}))

	txs, err := n.Normalize([]models.RawBatch{batch})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	if !txs[0].Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", txs[0].Timestamp, want)
	}
}

func TestNormalizeRejectsBadDate(t *testing.T) {
	n := NewNormalizer(common.NewSilentLogger())

	batch := batchOf("baddate.csv", exportRow(map[int]string{0: "2023-02-01"}))

	_, err := n.Normalize([]models.RawBatch{batch})
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("err = %v, want SchemaError", err)
	}
}

func TestNormalizeNegativeQuantityIsSell(t *testing.T) {
	n := NewNormalizer(common.NewSilentLogger())

	batch := batchOf("sell.csv", exportRow(map[int]string{6: "-4"}))

	txs, err := n.Normalize([]models.RawBatch{batch})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !txs[0].IsSell() || txs[0].IsBuy() {
		t.Errorf("quantity -4 classified buy=%v sell=%v", txs[0].IsBuy(), txs[0].IsSell())
	}
}
