package features

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/domain"
)

const (
	colDate       = "date"
	colProductKey = "product_key"
	colWindowMode = "window_mode"
	dateLayout    = "2006-01-02"

	// leading columns before the feature values
	provenanceColumns = 3
)

// Header returns the CSV header for a feature table of schema s. Every row
// carries the window mode it was built with.
func Header(s Schema) []string {
	h := []string{colDate, colProductKey, colWindowMode}
	h = append(h, s.Names()...)
	return append(h, s.Label())
}

// WriteCSV writes the table with a header row. Output is deterministic for a given table.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(t.Schema)); err != nil {
		return fmt.Errorf("failed to write feature header: %w", err)
	}
	for _, row := range t.Rows {
		record := []string{row.Date.Format(dateLayout), row.ProductKey, string(t.Schema.Mode())}
		for _, v := range t.Schema.Vector(row) {
			record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
		}
		record = append(record, strconv.Itoa(row.Quantity))
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write feature row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a feature table written by WriteCSV. The header and every row's
// window mode must match schema s exactly, otherwise a SchemaMismatchError is returned.
func ReadCSV(r io.Reader, s Schema) (*Table, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read feature CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("feature CSV has no header")
	}

	expected := Header(s)
	header := records[0]
	if len(header) != len(expected) {
		return nil, &SchemaMismatchError{Expected: expected, Actual: header, Reason: "feature CSV header mismatch"}
	}
	for i := range expected {
		if strings.TrimSpace(header[i]) != expected[i] {
			return nil, &SchemaMismatchError{Expected: expected, Actual: header, Reason: "feature CSV header mismatch"}
		}
	}

	t := &Table{Schema: s}
	seen := make(map[string]struct{})
	for i, record := range records[1:] {
		row, err := parseFeatureRecord(s, record)
		if err != nil {
			return nil, fmt.Errorf("feature CSV row %d: %w", i+2, err)
		}
		seen[row.ProductKey] = struct{}{}
		t.Rows = append(t.Rows, row)
	}
	t.Products = len(seen)
	return t, nil
}

func parseFeatureRecord(s Schema, record []string) (domain.FeatureRow, error) {
	date, err := time.Parse(dateLayout, strings.TrimSpace(record[0]))
	if err != nil {
		return domain.FeatureRow{}, fmt.Errorf("invalid date %q: %w", record[0], err)
	}
	if mode := WindowMode(strings.TrimSpace(record[2])); mode != s.Mode() {
		return domain.FeatureRow{}, &SchemaMismatchError{
			Reason: fmt.Sprintf("feature row built with %q windows, expected %q", mode, s.Mode()),
		}
	}
	values := make([]float64, s.Width())
	for j := range values {
		raw := strings.TrimSpace(record[provenanceColumns+j])
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.FeatureRow{}, fmt.Errorf("invalid value %q for %s: %w", raw, s.Names()[j], err)
		}
		values[j] = v
	}
	row, err := s.FromVector(values)
	if err != nil {
		return domain.FeatureRow{}, err
	}
	quantity, err := strconv.Atoi(strings.TrimSpace(record[len(record)-1]))
	if err != nil {
		return domain.FeatureRow{}, fmt.Errorf("invalid %s %q: %w", s.Label(), record[len(record)-1], err)
	}
	row.Date = date
	row.ProductKey = record[1]
	row.Quantity = quantity
	return row, nil
}
