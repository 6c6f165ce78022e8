// Package app wires configured components for the command-line entry points.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/cache"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/config"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/domain"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/features"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/featurestore"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/forecast"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/pipeline"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/repository"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/repository/csvstore"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/repository/postgres"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/storage"
)

// Data sources and feature stores selectable by configuration.
const (
	SourceCSV       = "csv"
	SourcePostgres  = "postgres"
	StoreFile       = "file"
	StoreClickHouse = "clickhouse"
	StoreDisabled   = "none"
)

// ErrNoRunHistory is returned when the data source does not record runs.
var ErrNoRunHistory = errors.New("training runs are only recorded with the postgres source")

// App lazily opens the components a command needs and closes them together.
type App struct {
	cfg     *config.Config
	mu      sync.Mutex
	db      *postgres.DB
	closers []func() error
	logger  zerolog.Logger
}

func New(cfg *config.Config) *App {
	return &App{
		cfg:    cfg,
		logger: log.Logger.With().Str("component", "app").Logger(),
	}
}

func (a *App) Config() *config.Config {
	return a.cfg
}

// Close releases every opened component in reverse order.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// Builder returns a feature builder for the configured window mode.
func (a *App) Builder() (*features.Builder, error) {
	mode, err := features.ParseWindowMode(a.cfg.Features.WindowMode)
	if err != nil {
		return nil, err
	}
	return features.NewBuilder(features.WithWindowMode(mode)), nil
}

// DB opens and migrates the Postgres database once.
func (a *App) DB(ctx context.Context) (*postgres.DB, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db != nil {
		return a.db, nil
	}
	db, err := postgres.NewDB(&a.cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	return db, nil
}

// Source returns the configured transaction source.
func (a *App) Source(ctx context.Context) (repository.TransactionSource, error) {
	switch strings.ToLower(a.cfg.Data.Source) {
	case "", SourceCSV:
		return csvstore.NewTransactionStore(a.cfg.Data.TransactionsPath, a.cfg.Data.Encoding), nil
	case SourcePostgres:
		db, err := a.DB(ctx)
		if err != nil {
			return nil, err
		}
		return postgres.NewTransactionRepository(db), nil
	default:
		return nil, fmt.Errorf("unknown data source %q", a.cfg.Data.Source)
	}
}

// History loads the daily series. Postgres aggregates in the database; CSV
// files are aggregated by builder.
func (a *App) History(ctx context.Context, builder *features.Builder) ([]domain.DailyEntry, error) {
	if strings.ToLower(a.cfg.Data.Source) == SourcePostgres {
		db, err := a.DB(ctx)
		if err != nil {
			return nil, err
		}
		return postgres.NewTransactionRepository(db).ListDaily(ctx)
	}

	source, err := a.Source(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := source.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	daily, skipped := builder.Aggregate(txs)
	a.logger.Info().
		Int("transactions", len(txs)).
		Int("skipped", skipped).
		Int("daily_entries", len(daily)).
		Msg("Loaded sales history")
	return daily, nil
}

// FeatureStore returns the configured feature store, or nil when disabled.
func (a *App) FeatureStore(ctx context.Context) (featurestore.Store, error) {
	switch strings.ToLower(a.cfg.Data.FeatureStore) {
	case "", StoreFile:
		return featurestore.NewFileStore(a.cfg.Data.FeaturesPath), nil
	case StoreClickHouse:
		store, err := featurestore.NewClickHouseStore(ctx, a.cfg.ClickHouse.DSN, a.cfg.ClickHouse.Table)
		if err != nil {
			return nil, err
		}
		a.mu.Lock()
		a.closers = append(a.closers, store.Close)
		a.mu.Unlock()
		return store, nil
	case StoreDisabled:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown feature store %q", a.cfg.Data.FeatureStore)
	}
}

// ObjectStorage returns the artifact bucket client, or nil when disabled.
func (a *App) ObjectStorage(ctx context.Context) (storage.ObjectStorage, error) {
	oc := a.cfg.ObjectStorage
	if !oc.Enabled {
		return nil, nil
	}
	client, err := storage.NewS3Client(storage.S3Config{
		Endpoint:  oc.Endpoint,
		AccessKey: oc.AccessKey,
		SecretKey: oc.SecretKey,
		Bucket:    oc.Bucket,
		Region:    oc.Region,
		UseSSL:    oc.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// ReportCache returns a redis cache when enabled, otherwise a noop cache.
func (a *App) ReportCache(ctx context.Context) (cache.ReportCache, error) {
	c, err := cache.NewReportCache(ctx, a.cfg.Cache)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.closers = append(a.closers, c.Close)
	a.mu.Unlock()
	return c, nil
}

// InvalidateReports drops cached reports once a new model is saved.
func (a *App) InvalidateReports(ctx context.Context) error {
	c, err := a.ReportCache(ctx)
	if err != nil {
		return err
	}
	return c.InvalidateAll(ctx)
}

// Runs returns the training run history. Runs are only recorded when
// Postgres is the data source.
func (a *App) Runs(ctx context.Context) (*pipeline.Repository, error) {
	if strings.ToLower(a.cfg.Data.Source) != SourcePostgres {
		return nil, ErrNoRunHistory
	}
	db, err := a.DB(ctx)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRepository(db.DB), nil
}

// Trainer returns a trainer configured from the model section.
func (a *App) Trainer(builder *features.Builder, progress forecast.ProgressFunc) *forecast.Trainer {
	mc := a.cfg.Model
	forest := forecast.RandomForest{
		Trees:          mc.Trees,
		MaxDepth:       mc.MaxDepth,
		MinSamplesLeaf: mc.MinSamplesLeaf,
		Seed:           mc.Seed,
		Workers:        mc.Workers,
		Progress:       progress,
	}
	return forecast.NewTrainer(builder.Schema(),
		forecast.WithFitter(forest),
		forecast.WithTestRatio(mc.TestRatio),
		forecast.WithSplitSeed(mc.Seed),
		forecast.WithProgress(progress),
	)
}

// Runner assembles a training pipeline. Runs are recorded in Postgres when
// it is the data source.
func (a *App) Runner(ctx context.Context, builder *features.Builder, progress forecast.ProgressFunc) (*pipeline.Runner, error) {
	source, err := a.Source(ctx)
	if err != nil {
		return nil, err
	}
	store, err := a.FeatureStore(ctx)
	if err != nil {
		return nil, err
	}
	objects, err := a.ObjectStorage(ctx)
	if err != nil {
		return nil, err
	}

	var opts []pipeline.RunnerOption
	if store != nil {
		opts = append(opts, pipeline.WithFeatureStore(store))
	}
	if objects != nil {
		opts = append(opts, pipeline.WithObjectStorage(objects))
	}
	if runs, err := a.Runs(ctx); err == nil {
		opts = append(opts, pipeline.WithRecorder(runs))
	} else if !errors.Is(err, ErrNoRunHistory) {
		return nil, err
	}

	cfg := pipeline.Config{
		ArtifactPath: a.cfg.Model.Path,
		RemoteKey:    a.cfg.Model.RemoteKey,
	}
	return pipeline.NewRunner(source, builder, a.Trainer(builder, progress), cfg, opts...), nil
}

// LoadModel loads the artifact at the model path, fetching it from object
// storage first when a remote key is configured.
func (a *App) LoadModel(ctx context.Context, schema features.Schema) (*forecast.Model, error) {
	path := a.cfg.Model.Path
	if key := a.cfg.Model.RemoteKey; key != "" {
		objects, err := a.ObjectStorage(ctx)
		if err != nil {
			return nil, err
		}
		if objects != nil {
			if err := objects.DownloadObject(ctx, key, path); err != nil {
				return nil, &forecast.ArtifactError{Path: key, Err: err}
			}
			a.logger.Info().Str("key", key).Str("path", path).Msg("Downloaded model artifact")
		}
	}
	return forecast.LoadArtifact(path, schema)
}
