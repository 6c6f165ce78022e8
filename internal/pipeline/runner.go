// Package pipeline runs the offline training job: load transactions, build
// features, persist them, train, save the artifact, publish it and record the run.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/features"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/featurestore"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/forecast"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/repository"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/storage"
)

// Runner coordinates one training run. Store, objects and recorder are optional.
type Runner struct {
	source   repository.TransactionSource
	builder  *features.Builder
	trainer  *forecast.Trainer
	store    featurestore.Store
	objects  storage.ObjectStorage
	recorder RunRecorder
	cfg      Config
	logger   zerolog.Logger
	now      func() time.Time
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

func WithFeatureStore(store featurestore.Store) RunnerOption {
	return func(r *Runner) { r.store = store }
}

func WithObjectStorage(objects storage.ObjectStorage) RunnerOption {
	return func(r *Runner) { r.objects = objects }
}

func WithRecorder(recorder RunRecorder) RunnerOption {
	return func(r *Runner) { r.recorder = recorder }
}

func WithLogger(logger zerolog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a new Runner.
func NewRunner(source repository.TransactionSource, builder *features.Builder, trainer *forecast.Trainer, cfg Config, opts ...RunnerOption) *Runner {
	r := &Runner{
		source:  source,
		builder: builder,
		trainer: trainer,
		cfg:     cfg,
		logger:  log.Logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With().Str("component", "pipeline").Logger()
	return r
}

// BuildFeatures loads every transaction and builds the feature table,
// persisting it when a feature store is configured.
func (r *Runner) BuildFeatures(ctx context.Context) (*features.Table, int, error) {
	txs, err := r.source.ListTransactions(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load transactions: %w", err)
	}
	table := r.builder.Build(txs)

	r.logger.Info().
		Int("transactions", len(txs)).
		Int("skipped", table.SkippedTransactions).
		Int("products", table.Products).
		Int("feature_rows", table.Len()).
		Int("uncovered", len(table.Uncovered)).
		Msg("Built feature table")

	if r.store != nil {
		if err := r.store.Save(ctx, table); err != nil {
			return nil, len(txs), fmt.Errorf("failed to save feature table: %w", err)
		}
	}
	return table, len(txs), nil
}

// Run executes a full training run. The returned run is populated even on
// failure so callers can report what happened.
func (r *Runner) Run(ctx context.Context) (*TrainingRun, *forecast.Model, error) {
	run := &TrainingRun{
		ID:         uuid.New(),
		Status:     StatusPending,
		WindowMode: string(r.builder.Mode()),
		StartedAt:  r.now().UTC(),
	}
	if r.recorder != nil {
		if err := r.recorder.CreateRun(ctx, run); err != nil {
			return run, nil, fmt.Errorf("failed to create training run: %w", err)
		}
	}

	run.Status = StatusProcessing
	r.record(ctx, run)

	model, err := r.execute(ctx, run)
	completed := r.now().UTC()
	run.CompletedAt = &completed
	if err != nil {
		run.Status = StatusFailed
		run.ErrorMessage = err.Error()
		r.record(ctx, run)
		r.logger.Error().Err(err).Str("run_id", run.ID.String()).Msg("Training run failed")
		return run, nil, err
	}

	run.Status = StatusCompleted
	r.record(ctx, run)
	r.logger.Info().
		Str("run_id", run.ID.String()).
		Str("model_version", run.ModelVersion).
		Dur("duration", run.Duration()).
		Msg("Training run completed")
	return run, model, nil
}

func (r *Runner) execute(ctx context.Context, run *TrainingRun) (*forecast.Model, error) {
	table, count, err := r.BuildFeatures(ctx)
	run.Transactions = count
	if err != nil {
		return nil, err
	}
	run.Fingerprint = table.Schema.Fingerprint()
	run.FeatureRows = table.Len()
	run.Uncovered = len(table.Uncovered)

	model, eval, err := r.trainer.Train(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to train model: %w", err)
	}
	mae := eval.MAE
	run.MAE = &mae
	run.TrainRows = eval.TrainRows
	run.TestRows = eval.TestRows
	run.ModelVersion = model.Version

	if err := forecast.SaveArtifact(r.cfg.ArtifactPath, model); err != nil {
		return nil, err
	}
	run.ArtifactPath = r.cfg.ArtifactPath

	if err := r.publish(ctx); err != nil {
		return nil, err
	}
	return model, nil
}

func (r *Runner) publish(ctx context.Context) error {
	if r.objects == nil || r.cfg.RemoteKey == "" {
		return nil
	}
	data, err := os.ReadFile(r.cfg.ArtifactPath)
	if err != nil {
		return fmt.Errorf("failed to read artifact for upload: %w", err)
	}
	if err := r.objects.UploadObject(ctx, r.cfg.RemoteKey, data); err != nil {
		return fmt.Errorf("failed to publish artifact: %w", err)
	}
	r.logger.Info().Str("key", r.cfg.RemoteKey).Int("bytes", len(data)).Msg("Published model artifact")
	return nil
}

// record updates the run; bookkeeping failures are logged, not returned.
func (r *Runner) record(ctx context.Context, run *TrainingRun) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.UpdateRun(ctx, run); err != nil {
		r.logger.Warn().Err(err).Str("run_id", run.ID.String()).Msg("Failed to update training run")
	}
}
