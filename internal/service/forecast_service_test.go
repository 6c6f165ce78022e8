package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/cache"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/config"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/domain"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/features"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/forecast"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/report"
)

var start = time.Date(2011, time.November, 1, 0, 0, 0, 0, time.UTC)

// rollingRegressor predicts the rolling_mean_7 column.
type rollingRegressor struct{}

func (rollingRegressor) Predict(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v[5]
	}
	return out, nil
}

func (rollingRegressor) Width() int { return 6 }

type countingCache struct {
	reports map[cache.ReportKey]*domain.Report
	gets    int
	sets    int
}

func (c *countingCache) GetReport(_ context.Context, key cache.ReportKey) (*domain.Report, bool, error) {
	c.gets++
	r, ok := c.reports[key]
	return r, ok, nil
}

func (c *countingCache) SetReport(_ context.Context, key cache.ReportKey, r *domain.Report) error {
	c.sets++
	c.reports[key] = r
	return nil
}

func (c *countingCache) InvalidateAll(context.Context) error {
	c.reports = map[cache.ReportKey]*domain.Report{}
	return nil
}

func (c *countingCache) Close() error { return nil }

func flatHistory(key string, days, quantity int) []domain.DailyEntry {
	out := make([]domain.DailyEntry, days)
	for i := range out {
		out[i] = domain.DailyEntry{Date: start.AddDate(0, 0, i), ProductKey: key, Quantity: quantity, UnitPrice: 2}
	}
	return out
}

func newTestService(t *testing.T, c cache.ReportCache) *ForecastService {
	t.Helper()
	var daily []domain.DailyEntry
	daily = append(daily, flatHistory("SLOW", 10, 5)...)
	daily = append(daily, flatHistory("FAST", 10, 80)...)
	daily = append(daily, flatHistory("NEW", 3, 7)...)

	builder := features.NewBuilder(features.WithLogger(zerolog.Nop()))
	model := &forecast.Model{
		Version:    "v-test",
		TrainedAt:  start,
		Schema:     builder.Schema(),
		Regressor:  rollingRegressor{},
		Evaluation: forecast.Evaluation{MAE: 1.5, TrainRows: 8, TestRows: 2},
	}
	state, err := NewState(model, builder, daily)
	require.NoError(t, err)

	return NewForecastService(state, c, config.ReportConfig{
		AlertThreshold:    50,
		CriticalThreshold: 10,
		SafetyStock:       20,
		OverstockLimit:    100,
	})
}

func TestForecastService_Products(t *testing.T) {
	svc := newTestService(t, nil)

	products := svc.Products()
	require.Len(t, products, 3)
	assert.Equal(t, "FAST", products[0].ProductKey)
	assert.True(t, products[0].Covered)
	assert.Equal(t, "NEW", products[1].ProductKey)
	assert.False(t, products[1].Covered)
	assert.Equal(t, 3, products[1].SeriesLength)
}

func TestForecastService_ForecastProductDefaults(t *testing.T) {
	svc := newTestService(t, nil)

	fc, err := svc.ForecastProduct(ForecastRequest{ProductKey: "SLOW"})
	require.NoError(t, err)
	assert.Equal(t, start.AddDate(0, 0, 10), fc.TargetDate)
	assert.Equal(t, 5.0, fc.Features.QuantityLag7)
	assert.Equal(t, 2.0, fc.Features.UnitPrice)
	assert.InDelta(t, 5.0, fc.PredictedDemand, 1e-9)
	assert.Equal(t, domain.StockUnderstock, fc.Health)
	assert.Equal(t, domain.TrendDecreasing, fc.Trend)
}

func TestForecastService_ForecastProductOverrides(t *testing.T) {
	svc := newTestService(t, nil)
	rolling, lag := 150.0, 30.0
	date := time.Date(2011, time.December, 10, 0, 0, 0, 0, time.UTC)

	fc, err := svc.ForecastProduct(ForecastRequest{ProductKey: "FAST", Date: date, RollingMean7: &rolling, QuantityLag7: &lag})
	require.NoError(t, err)
	assert.Equal(t, 5, fc.Features.DayOfWeek)
	assert.True(t, fc.Features.IsWeekend)
	assert.Equal(t, 12, fc.Features.Month)
	assert.Equal(t, domain.StockOverstock, fc.Health)
	assert.Equal(t, domain.TrendIncreasing, fc.Trend)
}

func TestForecastService_ForecastProductErrors(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.ForecastProduct(ForecastRequest{ProductKey: "MISSING"})
	assert.True(t, errors.Is(err, ErrProductNotFound))

	_, err = svc.ForecastProduct(ForecastRequest{ProductKey: "NEW"})
	assert.True(t, errors.Is(err, ErrInsufficientHistory))

	price, lag, rolling := 1.0, 7.0, 7.0
	fc, err := svc.ForecastProduct(ForecastRequest{ProductKey: "NEW", UnitPrice: &price, QuantityLag7: &lag, RollingMean7: &rolling})
	require.NoError(t, err)
	assert.InDelta(t, 7.0, fc.PredictedDemand, 1e-9)
}

func TestForecastService_ReportIsCached(t *testing.T) {
	c := &countingCache{reports: map[cache.ReportKey]*domain.Report{}}
	svc := newTestService(t, c)
	ctx := context.Background()

	assert.Equal(t, 50.0, svc.DefaultThreshold())
	r, err := svc.Report(ctx, svc.DefaultThreshold())
	require.NoError(t, err)
	assert.Equal(t, 50.0, r.AlertThreshold)
	require.Len(t, r.Items, 1)
	assert.Equal(t, "SLOW", r.Items[0].ProductKey)
	assert.Equal(t, domain.SeverityCritical, r.Items[0].Severity)
	assert.Equal(t, 1, r.Uncovered)
	assert.Equal(t, []string{"NEW"}, r.UncoveredKeys)

	again, err := svc.Report(ctx, 50)
	require.NoError(t, err)
	assert.Same(t, r, again)
	assert.Equal(t, 1, c.sets)

	wide, err := svc.Report(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, wide.Items, 2)
	assert.Equal(t, 2, c.sets)

	none, err := svc.Report(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none.Items)

	_, err = svc.Report(ctx, math.NaN())
	assert.ErrorIs(t, err, report.ErrInvalidThreshold)
	assert.Equal(t, 3, c.sets)
}

func TestForecastService_ModelInfoAndBatch(t *testing.T) {
	svc := newTestService(t, nil)

	info := svc.ModelInfo()
	assert.Equal(t, "v-test", info.Version)
	assert.Equal(t, features.DefaultSchema().Names(), info.Columns)
	assert.Equal(t, 1.5, info.MAE)

	out, err := svc.PredictBatch(info.Columns, [][]float64{{0, 1, 0, 2, 5, 12}, {6, 1, 1, 2, 5, 3}})
	require.NoError(t, err)
	assert.Equal(t, []float64{12, 3}, out)

	_, err = svc.PredictBatch([]string{"month"}, [][]float64{{1}})
	assert.True(t, errors.Is(err, features.ErrSchemaMismatch))
}

func TestHistoryDigest_OrderIndependent(t *testing.T) {
	a := append(flatHistory("A", 3, 1), flatHistory("B", 3, 2)...)
	b := append(flatHistory("B", 3, 2), flatHistory("A", 3, 1)...)
	assert.Equal(t, HistoryDigest(a), HistoryDigest(b))

	b[0].Quantity = 99
	assert.NotEqual(t, HistoryDigest(a), HistoryDigest(b))
}
