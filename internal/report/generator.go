// Package report ranks the catalog by forecast demand and flags products to restock.
package report

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/domain"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/features"
)

const (
	DefaultAlertThreshold    = 50.0
	DefaultCriticalThreshold = 10.0
)

// ErrInvalidThreshold is returned for a negative or non-finite alert threshold.
var ErrInvalidThreshold = errors.New("alert threshold must be a finite non-negative number")

// Predictor predicts one value per feature row.
type Predictor interface {
	Predict(rows ...domain.FeatureRow) ([]float64, error)
}

// Generator produces threshold reports.
type Generator struct {
	builder      *features.Builder
	predictor    Predictor
	critical     float64
	modelVersion string
	logger       zerolog.Logger
	now          func() time.Time
}

// NewGenerator returns a generator that builds features with builder and
// predicts with predictor.
func NewGenerator(builder *features.Builder, predictor Predictor) *Generator {
	return &Generator{
		builder:   builder,
		predictor: predictor,
		critical:  DefaultCriticalThreshold,
		logger:    log.Logger.With().Str("component", "report").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithCriticalThreshold sets the demand below which an alert is CRITICAL.
func (g *Generator) WithCriticalThreshold(v float64) *Generator {
	g.critical = v
	return g
}

// WithModelVersion records the model version in generated reports.
func (g *Generator) WithModelVersion(version string) *Generator {
	g.modelVersion = version
	return g
}

// WithLogger sets the generator's logger.
func (g *Generator) WithLogger(logger zerolog.Logger) *Generator {
	g.logger = logger.With().Str("component", "report").Logger()
	return g
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds features from the full daily history and reports every product
// whose next-day forecast is below alertThreshold.
func (g *Generator) Generate(daily []domain.DailyEntry, alertThreshold float64) (*domain.Report, error) {
	return g.GenerateFromTable(g.builder.BuildFromDaily(daily), alertThreshold)
}

// GenerateFromTable reports on an already built feature table.
func (g *Generator) GenerateFromTable(table *features.Table, alertThreshold float64) (*domain.Report, error) {
	if err := CheckThreshold(alertThreshold); err != nil {
		return nil, err
	}
	snapshot := features.LatestSnapshot(table.Rows)
	predicted, err := g.predictor.Predict(snapshot...)
	if err != nil {
		return nil, fmt.Errorf("failed to predict latest snapshot: %w", err)
	}
	if len(predicted) != len(snapshot) {
		return nil, fmt.Errorf("predictor returned %d values for %d rows", len(predicted), len(snapshot))
	}

	r := &domain.Report{
		GeneratedAt:       g.now(),
		ModelVersion:      g.modelVersion,
		AlertThreshold:    alertThreshold,
		CriticalThreshold: g.critical,
		ProductsEvaluated: len(snapshot),
		Uncovered:         len(table.Uncovered),
		UncoveredKeys:     append([]string{}, table.Uncovered...),
		Items:             []domain.ReportItem{},
	}
	for i, row := range snapshot {
		if predicted[i] >= alertThreshold {
			continue
		}
		item := domain.ReportItem{
			ProductKey:      row.ProductKey,
			Date:            row.Date,
			CurrentQuantity: row.Quantity,
			PredictedDemand: predicted[i],
			Severity:        domain.ClassifySeverity(predicted[i], g.critical),
		}
		if item.Severity == domain.SeverityCritical {
			r.Critical++
		} else {
			r.Warning++
		}
		r.Items = append(r.Items, item)
	}
	sort.SliceStable(r.Items, func(i, j int) bool {
		if r.Items[i].PredictedDemand != r.Items[j].PredictedDemand {
			return r.Items[i].PredictedDemand < r.Items[j].PredictedDemand
		}
		return r.Items[i].ProductKey < r.Items[j].ProductKey
	})

	g.logger.Info().
		Float64("threshold", alertThreshold).
		Int("evaluated", r.ProductsEvaluated).
		Int("flagged", len(r.Items)).
		Int("critical", r.Critical).
		Int("uncovered", r.Uncovered).
		Msg("Generated restock report")
	return r, nil
}

// CheckThreshold rejects thresholds no forecast can be compared against. Zero
// is valid and flags nothing.
func CheckThreshold(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, v)
	}
	return nil
}

// FilterSeverity returns a copy of r listing only items of the given severity.
// Summary counts still describe the whole report.
func FilterSeverity(r *domain.Report, severity domain.Severity) *domain.Report {
	out := *r
	out.Items = make([]domain.ReportItem, 0, len(r.Items))
	for _, item := range r.Items {
		if item.Severity == severity {
			out.Items = append(out.Items, item)
		}
	}
	return &out
}
