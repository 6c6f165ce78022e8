package features

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/domain"
)

// Window is the lag distance and rolling window size, in series entries.
const Window = 7

// Column names as they appear in feature tables, artifacts and tabular requests.
const (
	ColDayOfWeek    = "day_of_week"
	ColMonth        = "month"
	ColIsWeekend    = "is_weekend"
	ColUnitPrice    = "unit_price"
	ColQuantityLag7 = "quantity_lag_7"
	ColRollingMean7 = "rolling_mean_7"

	LabelQuantity = "Quantity"
)

// Kind is the value type of a column.
type Kind string

const (
	KindInt   Kind = "int"
	KindFloat Kind = "float"
)

// Column is a named, typed model input.
type Column struct {
	Name string
	Kind Kind
}

// WindowMode selects how lag and rolling windows are anchored.
type WindowMode string

const (
	// WindowRows anchors windows on row position within a product's series;
	// gaps in sales history are skipped over.
	WindowRows WindowMode = "rows"
	// WindowCalendar anchors windows on calendar days, with no-sale days counted as zero.
	WindowCalendar WindowMode = "calendar"
)

// ParseWindowMode parses a window mode name; empty means rows.
func ParseWindowMode(s string) (WindowMode, error) {
	switch WindowMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", WindowRows:
		return WindowRows, nil
	case WindowCalendar:
		return WindowCalendar, nil
	default:
		return "", fmt.Errorf("unknown window mode %q", s)
	}
}

var defaultColumns = []Column{
	{Name: ColDayOfWeek, Kind: KindInt},
	{Name: ColMonth, Kind: KindInt},
	{Name: ColIsWeekend, Kind: KindInt},
	{Name: ColUnitPrice, Kind: KindFloat},
	{Name: ColQuantityLag7, Kind: KindFloat},
	{Name: ColRollingMean7, Kind: KindFloat},
}

// ErrSchemaMismatch is matched by every SchemaMismatchError.
var ErrSchemaMismatch = errors.New("feature schema mismatch")

// SchemaMismatchError reports input that does not conform to the trained schema.
type SchemaMismatchError struct {
	Expected []string
	Actual   []string
	Reason   string
}

func (e *SchemaMismatchError) Error() string {
	if len(e.Actual) == 0 && len(e.Expected) == 0 {
		return fmt.Sprintf("feature schema mismatch: %s", e.Reason)
	}
	return fmt.Sprintf("feature schema mismatch: %s (expected [%s], got [%s])",
		e.Reason, strings.Join(e.Expected, ", "), strings.Join(e.Actual, ", "))
}

func (e *SchemaMismatchError) Unwrap() error {
	return ErrSchemaMismatch
}

// Schema is the ordered, typed set of inputs a model is trained and served with.
// It is a value type and never changes after construction.
type Schema struct {
	columns []Column
	label   string
	mode    WindowMode
}

// Descriptor is the serialisable form of a Schema.
type Descriptor struct {
	Columns []Column
	Label   string
	Mode    WindowMode
}

// NewSchema returns the feature schema for the given window mode.
func NewSchema(mode WindowMode) Schema {
	if mode == "" {
		mode = WindowRows
	}
	cols := make([]Column, len(defaultColumns))
	copy(cols, defaultColumns)
	return Schema{columns: cols, label: LabelQuantity, mode: mode}
}

// DefaultSchema is the row-anchored schema.
func DefaultSchema() Schema {
	return NewSchema(WindowRows)
}

// FromDescriptor rebuilds a schema read back from an artifact.
func FromDescriptor(d Descriptor) (Schema, error) {
	if len(d.Columns) == 0 {
		return Schema{}, fmt.Errorf("schema descriptor has no columns")
	}
	mode, err := ParseWindowMode(string(d.Mode))
	if err != nil {
		return Schema{}, err
	}
	cols := make([]Column, len(d.Columns))
	copy(cols, d.Columns)
	return Schema{columns: cols, label: d.Label, mode: mode}, nil
}

// Descriptor returns a copy of the schema suitable for encoding.
func (s Schema) Descriptor() Descriptor {
	return Descriptor{Columns: s.Columns(), Label: s.label, Mode: s.mode}
}

// Columns returns the ordered columns.
func (s Schema) Columns() []Column {
	cols := make([]Column, len(s.columns))
	copy(cols, s.columns)
	return cols
}

// Names returns the ordered column names.
func (s Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// Label returns the label column name.
func (s Schema) Label() string { return s.label }

// Mode returns the window mode the features were built with.
func (s Schema) Mode() WindowMode { return s.mode }

// Width returns the number of input columns.
func (s Schema) Width() int { return len(s.columns) }

// Fingerprint identifies the schema; models are keyed by it.
func (s Schema) Fingerprint() string {
	parts := make([]string, 0, len(s.columns)+3)
	for _, c := range s.columns {
		parts = append(parts, c.Name+":"+string(c.Kind))
	}
	parts = append(parts,
		"label="+s.label,
		"window="+string(s.mode),
		fmt.Sprintf("size=%d", Window),
	)
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// Equal reports whether both schemas describe the same inputs.
func (s Schema) Equal(o Schema) bool {
	return s.Fingerprint() == o.Fingerprint()
}

// Check returns a SchemaMismatchError when other differs from s.
func (s Schema) Check(other Schema) error {
	if s.Equal(other) {
		return nil
	}
	return &SchemaMismatchError{
		Expected: s.describe(),
		Actual:   other.describe(),
		Reason:   "schema fingerprint differs",
	}
}

func (s Schema) describe() []string {
	out := make([]string, 0, len(s.columns)+2)
	for _, c := range s.columns {
		out = append(out, c.Name+":"+string(c.Kind))
	}
	return append(out, "label="+s.label, "window="+string(s.mode))
}

// ValidateColumns checks a caller-supplied column list against the schema.
// Names must match exactly and in order; nothing is reordered.
func (s Schema) ValidateColumns(names []string) error {
	expected := s.Names()
	if len(names) != len(expected) {
		return &SchemaMismatchError{
			Expected: expected,
			Actual:   names,
			Reason:   fmt.Sprintf("expected %d columns, got %d", len(expected), len(names)),
		}
	}
	for i := range expected {
		if strings.TrimSpace(names[i]) != expected[i] {
			return &SchemaMismatchError{
				Expected: expected,
				Actual:   names,
				Reason:   fmt.Sprintf("column %d is %q, expected %q", i, names[i], expected[i]),
			}
		}
	}
	return nil
}

// Vector maps a row onto the schema's column order.
func (s Schema) Vector(row domain.FeatureRow) []float64 {
	v := make([]float64, len(s.columns))
	for i, c := range s.columns {
		v[i] = value(row, c.Name)
	}
	return v
}

// Matrix maps rows onto the schema's column order.
func (s Schema) Matrix(rows []domain.FeatureRow) [][]float64 {
	m := make([][]float64, len(rows))
	for i, r := range rows {
		m[i] = s.Vector(r)
	}
	return m
}

// Labels returns the label column of rows.
func (s Schema) Labels(rows []domain.FeatureRow) []float64 {
	y := make([]float64, len(rows))
	for i, r := range rows {
		y[i] = float64(r.Quantity)
	}
	return y
}

// FromVector builds a row from values ordered like the schema.
func (s Schema) FromVector(values []float64) (domain.FeatureRow, error) {
	if len(values) != len(s.columns) {
		return domain.FeatureRow{}, &SchemaMismatchError{
			Expected: s.Names(),
			Reason:   fmt.Sprintf("expected %d values, got %d", len(s.columns), len(values)),
		}
	}
	var row domain.FeatureRow
	for i, c := range s.columns {
		v := values[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.FeatureRow{}, &SchemaMismatchError{Reason: fmt.Sprintf("%s is not a finite number", c.Name)}
		}
		if c.Kind == KindInt && v != math.Trunc(v) {
			return domain.FeatureRow{}, &SchemaMismatchError{Reason: fmt.Sprintf("%s must be an integer, got %v", c.Name, v)}
		}
		switch c.Name {
		case ColDayOfWeek:
			row.DayOfWeek = int(v)
		case ColMonth:
			row.Month = int(v)
		case ColIsWeekend:
			if v != 0 && v != 1 {
				return domain.FeatureRow{}, &SchemaMismatchError{Reason: fmt.Sprintf("%s must be 0 or 1, got %v", c.Name, v)}
			}
			row.IsWeekend = v == 1
		case ColUnitPrice:
			row.UnitPrice = v
		case ColQuantityLag7:
			row.QuantityLag7 = v
		case ColRollingMean7:
			row.RollingMean7 = v
		default:
			return domain.FeatureRow{}, &SchemaMismatchError{Reason: fmt.Sprintf("unknown column %q", c.Name)}
		}
	}
	if err := s.Validate(row); err != nil {
		return domain.FeatureRow{}, err
	}
	return row, nil
}

// Validate checks value ranges of a typed row.
func (s Schema) Validate(row domain.FeatureRow) error {
	switch {
	case row.DayOfWeek < 0 || row.DayOfWeek > 6:
		return &SchemaMismatchError{Reason: fmt.Sprintf("%s must be in 0..6, got %d", ColDayOfWeek, row.DayOfWeek)}
	case row.Month < 1 || row.Month > 12:
		return &SchemaMismatchError{Reason: fmt.Sprintf("%s must be in 1..12, got %d", ColMonth, row.Month)}
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{ColUnitPrice, row.UnitPrice},
		{ColQuantityLag7, row.QuantityLag7},
		{ColRollingMean7, row.RollingMean7},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &SchemaMismatchError{Reason: fmt.Sprintf("%s is not a finite number", f.name)}
		}
	}
	return nil
}

func value(row domain.FeatureRow, name string) float64 {
	switch name {
	case ColDayOfWeek:
		return float64(row.DayOfWeek)
	case ColMonth:
		return float64(row.Month)
	case ColIsWeekend:
		if row.IsWeekend {
			return 1
		}
		return 0
	case ColUnitPrice:
		return row.UnitPrice
	case ColQuantityLag7:
		return row.QuantityLag7
	case ColRollingMean7:
		return row.RollingMean7
	}
	return math.NaN()
}
