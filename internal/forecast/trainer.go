package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/features"
)

// DefaultTestRatio is the held-out share of rows.
const DefaultTestRatio = 0.2

// Evaluation summarises a held-out evaluation.
type Evaluation struct {
	MAE       float64 `json:"mae"`
	TrainRows int     `json:"train_rows"`
	TestRows  int     `json:"test_rows"`
}

// Model is a trained regressor bound to the schema it was trained on.
// A Model is never mutated after training or loading.
type Model struct {
	Version    string
	TrainedAt  time.Time
	Schema     features.Schema
	Regressor  Regressor
	Evaluation Evaluation
}

// Fingerprint returns the fingerprint of the model's schema.
func (m *Model) Fingerprint() string {
	return m.Schema.Fingerprint()
}

// TrainerOption configures a Trainer.
type TrainerOption func(*Trainer)

// WithFitter replaces the default random forest.
func WithFitter(f Fitter) TrainerOption {
	return func(t *Trainer) { t.fitter = f }
}

// WithTestRatio sets the held-out share.
func WithTestRatio(ratio float64) TrainerOption {
	return func(t *Trainer) { t.testRatio = ratio }
}

// WithSplitSeed sets the seed of the train/test shuffle.
func WithSplitSeed(seed int64) TrainerOption {
	return func(t *Trainer) { t.seed = seed }
}

// WithProgress sets a coarse progress callback.
func WithProgress(fn ProgressFunc) TrainerOption {
	return func(t *Trainer) { t.progress = fn }
}

// WithTrainerLogger sets the trainer's logger.
func WithTrainerLogger(logger zerolog.Logger) TrainerOption {
	return func(t *Trainer) { t.logger = logger }
}

// Trainer splits a feature table, fits a regressor and evaluates it.
type Trainer struct {
	schema    features.Schema
	fitter    Fitter
	testRatio float64
	seed      int64
	progress  ProgressFunc
	logger    zerolog.Logger
	now       func() time.Time
}

// NewTrainer returns a trainer for tables of the given schema.
func NewTrainer(schema features.Schema, opts ...TrainerOption) *Trainer {
	t := &Trainer{
		schema:    schema,
		testRatio: DefaultTestRatio,
		seed:      DefaultSeed,
		logger:    log.Logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.fitter == nil {
		t.fitter = RandomForest{Trees: DefaultTrees, Seed: DefaultSeed, Progress: t.progress}
	}
	t.logger = t.logger.With().Str("component", "trainer").Logger()
	return t
}

// Train fits on the train partition and reports MAE on the test partition.
func (t *Trainer) Train(ctx context.Context, table *features.Table) (*Model, Evaluation, error) {
	if table == nil || table.Len() == 0 {
		return nil, Evaluation{}, ErrEmptyTrainingSet
	}
	if err := t.schema.Check(table.Schema); err != nil {
		return nil, Evaluation{}, err
	}

	t.report("split", 0, 1)
	split, err := TrainTestSplit(table.Len(), t.testRatio, t.seed)
	if err != nil {
		return nil, Evaluation{}, err
	}
	t.report("split", 1, 1)

	x := t.schema.Matrix(table.Rows)
	y := t.schema.Labels(table.Rows)
	trainX, trainY := subset(x, y, split.Train)
	testX, testY := subset(x, y, split.Test)

	t.logger.Info().
		Int("train_rows", len(trainX)).
		Int("test_rows", len(testX)).
		Msg("Fitting model")

	started := time.Now()
	reg, err := t.fitter.Fit(ctx, trainX, trainY)
	if err != nil {
		return nil, Evaluation{}, fmt.Errorf("failed to fit model: %w", err)
	}

	t.report("evaluate", 0, 1)
	predicted, err := reg.Predict(testX)
	if err != nil {
		return nil, Evaluation{}, fmt.Errorf("failed to evaluate model: %w", err)
	}
	eval := Evaluation{
		MAE:       MeanAbsoluteError(testY, predicted),
		TrainRows: len(trainX),
		TestRows:  len(testX),
	}
	t.report("evaluate", 1, 1)

	model := &Model{
		Version:    uuid.NewString(),
		TrainedAt:  t.now().UTC(),
		Schema:     t.schema,
		Regressor:  reg,
		Evaluation: eval,
	}
	t.logger.Info().
		Str("version", model.Version).
		Float64("mae", eval.MAE).
		Dur("fit_duration", time.Since(started)).
		Msg("Model trained")
	return model, eval, nil
}

func (t *Trainer) report(stage string, done, total int) {
	if t.progress != nil {
		t.progress(stage, done, total)
	}
}

// MeanAbsoluteError returns the mean of |actual - predicted|.
func MeanAbsoluteError(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	diffs := make([]float64, len(actual))
	for i := range actual {
		diffs[i] = math.Abs(actual[i] - predicted[i])
	}
	return stat.Mean(diffs, nil)
}

func subset(x [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	sx := make([][]float64, len(idx))
	sy := make([]float64, len(idx))
	for k, i := range idx {
		sx[k] = x[i]
		sy[k] = y[i]
	}
	return sx, sy
}
