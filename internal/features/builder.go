package features

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/domain"
)

// Table is a schema-conformant feature table.
type Table struct {
	Schema Schema
	// Rows are grouped by product key (ascending) and chronological within a product.
	Rows []domain.FeatureRow
	// Uncovered lists products that produced no rows for lack of history.
	Uncovered []string
	// Products is the number of distinct products seen.
	Products int
	// SkippedTransactions counts input lines rejected as invalid.
	SkippedTransactions int
}

// Len returns the number of feature rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Option configures a Builder.
type Option func(*Builder)

// WithWindowMode selects row- or calendar-anchored windows.
func WithWindowMode(mode WindowMode) Option {
	return func(b *Builder) {
		if mode != "" {
			b.mode = mode
		}
	}
}

// WithLogger sets the builder's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// Builder turns transactions into lag/rolling feature rows.
// It holds no mutable state and is safe for concurrent use.
type Builder struct {
	mode   WindowMode
	logger zerolog.Logger
}

// NewBuilder returns a builder, row-anchored unless configured otherwise.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		mode:   WindowRows,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With().Str("component", "features").Logger()
	return b
}

// Schema returns the schema of the tables this builder produces.
func (b *Builder) Schema() Schema {
	return NewSchema(b.mode)
}

// Mode returns the configured window mode.
func (b *Builder) Mode() WindowMode {
	return b.mode
}

type dayKey struct {
	product string
	date    time.Time
}

type dayAccumulator struct {
	quantity int
	priceSum float64
	lines    int
}

// Aggregate collapses transactions to one entry per (date, product): quantity is
// summed, unit price averaged over the day's lines. Invalid lines are skipped and
// counted. Entries are sorted by product key, then date.
func (b *Builder) Aggregate(txs []domain.Transaction) ([]domain.DailyEntry, int) {
	acc := make(map[dayKey]*dayAccumulator)
	skipped := 0
	for _, tx := range txs {
		if !validTransaction(tx) {
			skipped++
			continue
		}
		k := dayKey{product: strings.TrimSpace(tx.ProductKey), date: domain.Day(tx.InvoiceDate)}
		a, ok := acc[k]
		if !ok {
			a = &dayAccumulator{}
			acc[k] = a
		}
		a.quantity += tx.Quantity
		a.priceSum += tx.UnitPrice
		a.lines++
	}
	if skipped > 0 {
		b.logger.Warn().Int("skipped", skipped).Int("total", len(txs)).Msg("Skipped invalid transactions")
	}

	daily := make([]domain.DailyEntry, 0, len(acc))
	for k, a := range acc {
		daily = append(daily, domain.DailyEntry{
			Date:       k.date,
			ProductKey: k.product,
			Quantity:   a.quantity,
			UnitPrice:  a.priceSum / float64(a.lines),
		})
	}
	sortDaily(daily)
	return daily, skipped
}

// Build aggregates transactions and derives the feature table.
func (b *Builder) Build(txs []domain.Transaction) *Table {
	daily, skipped := b.Aggregate(txs)
	t := b.BuildFromDaily(daily)
	t.SkippedTransactions = skipped
	return t
}

// BuildFromDaily derives the feature table from an already aggregated daily series.
// Duplicate (date, product) entries are merged.
func (b *Builder) BuildFromDaily(daily []domain.DailyEntry) *Table {
	groups := GroupSeries(daily)
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := &Table{Schema: b.Schema(), Products: len(keys)}
	for _, key := range keys {
		var rows []domain.FeatureRow
		switch b.mode {
		case WindowCalendar:
			rows = calendarRows(groups[key])
		default:
			rows = positionalRows(groups[key])
		}
		if len(rows) == 0 {
			t.Uncovered = append(t.Uncovered, key)
			b.logger.Debug().
				Str("product_key", key).
				Int("entries", len(groups[key])).
				Msg("Insufficient history for lag features")
			continue
		}
		t.Rows = append(t.Rows, rows...)
	}

	b.logger.Info().
		Str("window_mode", string(b.mode)).
		Int("products", t.Products).
		Int("rows", len(t.Rows)).
		Int("uncovered", len(t.Uncovered)).
		Msg("Built feature table")
	return t
}

// positionalRows emits rows from index Window onward of a sorted series.
func positionalRows(series []domain.DailyEntry) []domain.FeatureRow {
	if len(series) <= Window {
		return nil
	}
	rows := make([]domain.FeatureRow, 0, len(series)-Window)
	sum := 0
	for i, e := range series {
		sum += e.Quantity
		if i >= Window {
			sum -= series[i-Window].Quantity
			rows = append(rows, featureRow(e, float64(series[i-Window].Quantity), float64(sum)/Window))
		}
	}
	return rows
}

// calendarRows lays the series on a dense daily grid with zero for no-sale days and
// emits rows for real sale days at grid index Window or later.
func calendarRows(series []domain.DailyEntry) []domain.FeatureRow {
	if len(series) == 0 {
		return nil
	}
	first := series[0].Date
	span := dayIndex(first, series[len(series)-1].Date) + 1
	if span <= Window {
		return nil
	}
	grid := make([]int, span)
	for _, e := range series {
		grid[dayIndex(first, e.Date)] = e.Quantity
	}
	prefix := make([]int, span+1)
	for i, q := range grid {
		prefix[i+1] = prefix[i] + q
	}

	var rows []domain.FeatureRow
	for _, e := range series {
		g := dayIndex(first, e.Date)
		if g < Window {
			continue
		}
		sum := prefix[g+1] - prefix[g+1-Window]
		rows = append(rows, featureRow(e, float64(grid[g-Window]), float64(sum)/Window))
	}
	return rows
}

func featureRow(e domain.DailyEntry, lag, rolling float64) domain.FeatureRow {
	dow, month, weekend := domain.CalendarFeatures(e.Date)
	return domain.FeatureRow{
		Date:         e.Date,
		ProductKey:   e.ProductKey,
		DayOfWeek:    dow,
		Month:        month,
		IsWeekend:    weekend,
		UnitPrice:    e.UnitPrice,
		QuantityLag7: lag,
		RollingMean7: rolling,
		Quantity:     e.Quantity,
	}
}

func dayIndex(first, d time.Time) int {
	return int(math.Round(d.Sub(first).Hours() / 24))
}

func validTransaction(tx domain.Transaction) bool {
	switch {
	case strings.TrimSpace(tx.ProductKey) == "":
		return false
	case tx.InvoiceDate.IsZero():
		return false
	case tx.Quantity <= 0:
		return false
	case math.IsNaN(tx.UnitPrice) || math.IsInf(tx.UnitPrice, 0) || tx.UnitPrice <= 0:
		return false
	}
	return true
}

func sortDaily(daily []domain.DailyEntry) {
	sort.SliceStable(daily, func(i, j int) bool {
		if daily[i].ProductKey != daily[j].ProductKey {
			return daily[i].ProductKey < daily[j].ProductKey
		}
		return daily[i].Date.Before(daily[j].Date)
	})
}
