// Package service holds the process-wide serving state and the operations the
// HTTP API exposes on top of it.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/cache"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/config"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/domain"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/features"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/forecast"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/predict"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/report"
)

var (
	// ErrProductNotFound is returned for a product key absent from the history.
	ErrProductNotFound = errors.New("product not found")
	// ErrInsufficientHistory is returned when a product has no feature row and
	// the caller did not supply every lag input.
	ErrInsufficientHistory = errors.New("insufficient sales history")
)

// State is built once at startup and never mutated, so handlers share it
// without locking.
type State struct {
	model     *forecast.Model
	predictor *predict.Service
	builder   *features.Builder
	table     *features.Table
	snapshot  map[string]domain.FeatureRow
	products  []domain.Product
	byKey     map[string]int
	digest    string
}

// NewState binds a loaded model to the daily history it will serve.
func NewState(model *forecast.Model, builder *features.Builder, daily []domain.DailyEntry) (*State, error) {
	predictor, err := predict.NewService(model, builder.Schema())
	if err != nil {
		return nil, err
	}
	table := builder.BuildFromDaily(daily)

	snapshot := make(map[string]domain.FeatureRow)
	for _, row := range features.LatestSnapshot(table.Rows) {
		snapshot[row.ProductKey] = row
	}

	products := features.Summaries(daily, table)
	byKey := make(map[string]int, len(products))
	for i, p := range products {
		byKey[p.ProductKey] = i
	}

	return &State{
		model:     model,
		predictor: predictor,
		builder:   builder,
		table:     table,
		snapshot:  snapshot,
		products:  products,
		byKey:     byKey,
		digest:    HistoryDigest(daily),
	}, nil
}

// Predictor returns the shared prediction service.
func (s *State) Predictor() *predict.Service {
	return s.predictor
}

// Digest identifies the history the state was built from.
func (s *State) Digest() string {
	return s.digest
}

// HistoryDigest hashes daily entries independently of their order.
func HistoryDigest(daily []domain.DailyEntry) string {
	groups := features.GroupSeries(daily)
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	buf := make([]byte, 8)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		for _, e := range groups[k] {
			binary.BigEndian.PutUint64(buf, uint64(e.Date.Unix()))
			h.Write(buf)
			binary.BigEndian.PutUint64(buf, uint64(e.Quantity))
			h.Write(buf)
			binary.BigEndian.PutUint64(buf, math.Float64bits(e.UnitPrice))
			h.Write(buf)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ForecastRequest asks for one product's demand on a target date. Nil inputs
// default from the product's latest feature row.
type ForecastRequest struct {
	ProductKey   string
	Date         time.Time
	UnitPrice    *float64
	QuantityLag7 *float64
	RollingMean7 *float64
}

// ForecastService implements the serving operations over a State.
type ForecastService struct {
	state     *State
	cache     cache.ReportCache
	cfg       config.ReportConfig
	generator *report.Generator
	logger    zerolog.Logger
}

func NewForecastService(state *State, cacheImpl cache.ReportCache, cfg config.ReportConfig) *ForecastService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopReportCache()
	}
	if cfg.AlertThreshold <= 0 {
		cfg.AlertThreshold = report.DefaultAlertThreshold
	}
	if cfg.CriticalThreshold <= 0 {
		cfg.CriticalThreshold = report.DefaultCriticalThreshold
	}
	logger := log.Logger.With().Str("component", "forecast_service").Logger()
	generator := report.NewGenerator(state.builder, state.predictor).
		WithCriticalThreshold(cfg.CriticalThreshold).
		WithModelVersion(state.model.Version).
		WithLogger(log.Logger)

	return &ForecastService{
		state:     state,
		cache:     cacheImpl,
		cfg:       cfg,
		generator: generator,
		logger:    logger,
	}
}

// Predict returns the forecast for one feature row.
func (s *ForecastService) Predict(row domain.FeatureRow) (float64, error) {
	return s.state.predictor.PredictOne(row)
}

// PredictBatch predicts tabular rows whose columns must match the schema exactly.
func (s *ForecastService) PredictBatch(columns []string, values [][]float64) ([]float64, error) {
	return s.state.predictor.PredictColumns(columns, values)
}

// Products lists every product in the history with its coverage.
func (s *ForecastService) Products() []domain.Product {
	return s.state.products
}

// ModelInfo describes the served model.
func (s *ForecastService) ModelInfo() domain.ModelInfo {
	m := s.state.model
	return domain.ModelInfo{
		Version:     m.Version,
		TrainedAt:   m.TrainedAt,
		Fingerprint: m.Fingerprint(),
		Columns:     m.Schema.Names(),
		Label:       m.Schema.Label(),
		WindowMode:  string(m.Schema.Mode()),
		MAE:         m.Evaluation.MAE,
		TrainRows:   m.Evaluation.TrainRows,
		TestRows:    m.Evaluation.TestRows,
	}
}

// ForecastProduct predicts one product's demand for a target date and
// classifies the trend and stock health.
func (s *ForecastService) ForecastProduct(req ForecastRequest) (*domain.ProductForecast, error) {
	key := strings.TrimSpace(req.ProductKey)
	product, ok := s.product(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, key)
	}

	latest, covered := s.state.snapshot[key]
	if !covered && (req.UnitPrice == nil || req.QuantityLag7 == nil || req.RollingMean7 == nil) {
		return nil, fmt.Errorf("%w: %s has %d days of sales", ErrInsufficientHistory, key, product.SeriesLength)
	}

	date := req.Date
	if date.IsZero() {
		date = product.LastDate.AddDate(0, 0, 1)
	}
	date = domain.Day(date)
	dow, month, weekend := domain.CalendarFeatures(date)

	row := domain.FeatureRow{
		Date:         date,
		ProductKey:   key,
		DayOfWeek:    dow,
		Month:        month,
		IsWeekend:    weekend,
		UnitPrice:    pick(req.UnitPrice, latest.UnitPrice),
		QuantityLag7: pick(req.QuantityLag7, float64(latest.Quantity)),
		RollingMean7: pick(req.RollingMean7, latest.RollingMean7),
	}

	predicted, err := s.state.predictor.PredictOne(row)
	if err != nil {
		return nil, err
	}
	return &domain.ProductForecast{
		ProductKey:      key,
		TargetDate:      date,
		Features:        row,
		PredictedDemand: domain.RoundDemand(predicted),
		Trend:           domain.ClassifyTrend(predicted, row.QuantityLag7),
		Health:          domain.ClassifyStock(predicted, s.cfg.SafetyStock, s.cfg.OverstockLimit),
		SafetyStock:     s.cfg.SafetyStock,
		OverstockLimit:  s.cfg.OverstockLimit,
	}, nil
}

// DefaultThreshold is the alert threshold used when a caller names none.
func (s *ForecastService) DefaultThreshold() float64 {
	return s.cfg.AlertThreshold
}

// Report returns the threshold report, served from cache when the model,
// history and threshold are unchanged.
func (s *ForecastService) Report(ctx context.Context, threshold float64) (*domain.Report, error) {
	if err := report.CheckThreshold(threshold); err != nil {
		return nil, err
	}
	key := cache.ReportKey{
		ModelVersion:   s.state.model.Version,
		HistoryDigest:  s.state.digest,
		AlertThreshold: threshold,
	}

	if cached, ok, err := s.cache.GetReport(ctx, key); err == nil && ok {
		return cached, nil
	} else if err != nil {
		s.logger.Warn().Err(err).Msg("report: cache get failed")
	}

	r, err := s.generator.GenerateFromTable(s.state.table, threshold)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetReport(ctx, key, r); err != nil {
		s.logger.Warn().Err(err).Msg("report: cache set failed")
	}
	return r, nil
}

func (s *ForecastService) product(key string) (domain.Product, bool) {
	i, ok := s.state.byKey[key]
	if !ok {
		return domain.Product{}, false
	}
	return s.state.products[i], true
}

func pick(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}
