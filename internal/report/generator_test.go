package report

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/domain"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/features"
)

var start = time.Date(2011, time.November, 1, 0, 0, 0, 0, time.UTC)

// fixedPredictor returns a per-product value and records each call.
type fixedPredictor struct {
	values map[string]float64
	calls  int
	err    error
}

func (p *fixedPredictor) Predict(rows ...domain.FeatureRow) ([]float64, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = p.values[r.ProductKey]
	}
	return out, nil
}

func history(key string, days, quantity int) []domain.DailyEntry {
	out := make([]domain.DailyEntry, days)
	for i := range out {
		out[i] = domain.DailyEntry{Date: start.AddDate(0, 0, i), ProductKey: key, Quantity: quantity + i, UnitPrice: 1.25}
	}
	return out
}

func newGenerator(p Predictor) *Generator {
	builder := features.NewBuilder(features.WithLogger(zerolog.Nop()))
	return NewGenerator(builder, p).
		WithLogger(zerolog.Nop()).
		WithModelVersion("v-test").
		WithClock(func() time.Time { return start.AddDate(0, 1, 0) })
}

func TestGenerate_ThresholdAndSeverity(t *testing.T) {
	var daily []domain.DailyEntry
	daily = append(daily, history("LOW", 10, 3)...)
	daily = append(daily, history("HIGH", 10, 40)...)
	p := &fixedPredictor{values: map[string]float64{"LOW": 8, "HIGH": 60}}

	r, err := newGenerator(p).Generate(daily, 50)
	require.NoError(t, err)

	require.Len(t, r.Items, 1)
	assert.Equal(t, "LOW", r.Items[0].ProductKey)
	assert.Equal(t, domain.SeverityCritical, r.Items[0].Severity)
	assert.Equal(t, 12, r.Items[0].CurrentQuantity)
	assert.Equal(t, start.AddDate(0, 0, 9), r.Items[0].Date)
	assert.Equal(t, 2, r.ProductsEvaluated)
	assert.Equal(t, 1, r.Critical)
	assert.Zero(t, r.Warning)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, "v-test", r.ModelVersion)
	assert.Equal(t, 50.0, r.AlertThreshold)
	assert.Equal(t, DefaultCriticalThreshold, r.CriticalThreshold)
}

func TestGenerate_RankingAndWarnings(t *testing.T) {
	var daily []domain.DailyEntry
	for _, key := range []string{"C", "A", "B", "D"} {
		daily = append(daily, history(key, 9, 5)...)
	}
	p := &fixedPredictor{values: map[string]float64{"A": 30, "B": 4.5, "C": 30, "D": 49.99}}

	r, err := newGenerator(p).Generate(daily, 50)
	require.NoError(t, err)

	keys := make([]string, len(r.Items))
	for i, item := range r.Items {
		keys[i] = item.ProductKey
	}
	assert.Equal(t, []string{"B", "A", "C", "D"}, keys)
	assert.Equal(t, 1, r.Critical)
	assert.Equal(t, 3, r.Warning)
	assert.Equal(t, domain.SeverityWarning, r.Items[1].Severity)
}

func TestGenerate_UncoveredProductsAreCounted(t *testing.T) {
	var daily []domain.DailyEntry
	daily = append(daily, history("OK", 8, 1)...)
	daily = append(daily, history("NEW", 7, 1)...)
	daily = append(daily, history("ONE", 1, 1)...)
	p := &fixedPredictor{values: map[string]float64{"OK": 100}}

	r, err := newGenerator(p).Generate(daily, 50)
	require.NoError(t, err)

	assert.Empty(t, r.Items)
	assert.Equal(t, 1, r.ProductsEvaluated)
	assert.Equal(t, 2, r.Uncovered)
	assert.Equal(t, []string{"NEW", "ONE"}, r.UncoveredKeys)
}

func TestGenerate_CriticalThresholdConfigurable(t *testing.T) {
	p := &fixedPredictor{values: map[string]float64{"P": 15}}
	r, err := newGenerator(p).WithCriticalThreshold(20).Generate(history("P", 8, 1), 50)
	require.NoError(t, err)
	require.Len(t, r.Items, 1)
	assert.Equal(t, domain.SeverityCritical, r.Items[0].Severity)
}

func TestGenerate_PredictorFailure(t *testing.T) {
	boom := errors.New("boom")
	_, err := newGenerator(&fixedPredictor{err: boom}).Generate(history("P", 8, 1), 50)
	assert.ErrorIs(t, err, boom)
}

func TestGenerate_ThresholdBounds(t *testing.T) {
	p := &fixedPredictor{values: map[string]float64{"P": 0}}

	r, err := newGenerator(p).Generate(history("P", 8, 1), 0)
	require.NoError(t, err)
	assert.Empty(t, r.Items)
	assert.Equal(t, 1, r.ProductsEvaluated)

	for _, bad := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := newGenerator(p).Generate(history("P", 8, 1), bad)
		assert.ErrorIs(t, err, ErrInvalidThreshold)
	}
	assert.Equal(t, 1, p.calls)
}

func TestFilterSeverity(t *testing.T) {
	r := &domain.Report{Critical: 1, Warning: 1, Items: []domain.ReportItem{
		{ProductKey: "A", Severity: domain.SeverityCritical},
		{ProductKey: "B", Severity: domain.SeverityWarning},
	}}

	warnings := FilterSeverity(r, domain.SeverityWarning)
	require.Len(t, warnings.Items, 1)
	assert.Equal(t, "B", warnings.Items[0].ProductKey)
	assert.Equal(t, 1, warnings.Critical)
	assert.Len(t, r.Items, 2)
}

func TestRenderCSV(t *testing.T) {
	r := &domain.Report{Items: []domain.ReportItem{
		{ProductKey: "22423", CurrentQuantity: 4, PredictedDemand: 2.675, Severity: domain.SeverityCritical},
		{ProductKey: "85123A", CurrentQuantity: 31, PredictedDemand: 40, Severity: domain.SeverityWarning},
	}}

	out, err := RenderCSV(r)
	require.NoError(t, err)
	assert.Equal(t,
		"product_key,current_quantity,predicted_demand,severity\n"+
			"22423,4,2.68,CRITICAL\n"+
			"85123A,31,40.00,WARNING\n",
		string(out))
}

func TestRenderMarkdown(t *testing.T) {
	p := &fixedPredictor{values: map[string]float64{"LOW": 8}}
	var daily []domain.DailyEntry
	daily = append(daily, history("LOW", 9, 2)...)
	daily = append(daily, history("NEW", 3, 2)...)
	r, err := newGenerator(p).Generate(daily, 50)
	require.NoError(t, err)

	md := RenderMarkdown(r)
	assert.True(t, strings.HasPrefix(md, "# Inventory Restock Report"))
	assert.Contains(t, md, "| LOW | 2011-11-09 | 10 | 8.00 | Critical: restock now |")
	assert.Contains(t, md, "| Not forecastable | 1 |")
}
