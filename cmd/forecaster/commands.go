package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/app"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/domain"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/featurestore"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/forecast"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/predict"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/report"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/repository/csvstore"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/repository/postgres"
)

// progressLogger logs fitting progress roughly every tenth of the work.
func progressLogger() forecast.ProgressFunc {
	var mu sync.Mutex
	last := map[string]int{}
	return func(stage string, done, total int) {
		mu.Lock()
		defer mu.Unlock()
		step := total / 10
		if step < 1 {
			step = 1
		}
		if done != total && done-last[stage] < step {
			return
		}
		last[stage] = done
		log.Info().Str("stage", stage).Int("done", done).Int("total", total).Msg("Training progress")
	}
}

func runImport(c *cli.Context) error {
	a, err := appFrom(c)
	if err != nil {
		return err
	}
	cfg := a.Config()

	db, err := a.DB(c.Context)
	if err != nil {
		return err
	}
	repo := postgres.NewTransactionRepository(db)

	if c.Bool("truncate") {
		log.Info().Msg("Truncating transactions...")
		if err := repo.Truncate(c.Context); err != nil {
			return err
		}
	}

	store := csvstore.NewTransactionStore(c.String("file"), cfg.Data.Encoding)
	txs, err := store.ListTransactions(c.Context)
	if err != nil {
		return err
	}
	inserted, err := repo.InsertTransactions(c.Context, txs)
	if err != nil {
		return err
	}
	log.Info().Str("file", c.String("file")).Int("inserted", inserted).Msg("Import completed")
	return nil
}

func runFeatures(c *cli.Context) error {
	a, err := appFrom(c)
	if err != nil {
		return err
	}
	builder, err := a.Builder()
	if err != nil {
		return err
	}
	runner, err := a.Runner(c.Context, builder, nil)
	if err != nil {
		return err
	}
	table, _, err := runner.BuildFeatures(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "feature rows: %d\nproducts: %d\nnot forecastable: %d\nskipped transactions: %d\n",
		table.Len(), table.Products, len(table.Uncovered), table.SkippedTransactions)
	return nil
}

func runTrain(c *cli.Context) error {
	a, err := appFrom(c)
	if err != nil {
		return err
	}
	cfg := a.Config()
	if c.IsSet("trees") {
		cfg.Model.Trees = c.Int("trees")
	}
	if c.IsSet("seed") {
		cfg.Model.Seed = c.Int64("seed")
	}

	builder, err := a.Builder()
	if err != nil {
		return err
	}
	store, err := a.FeatureStore(c.Context)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("train needs a feature store; run `forecaster pipeline` instead")
	}
	table, err := store.Load(c.Context, builder.Schema())
	if err != nil {
		if errors.Is(err, featurestore.ErrNotFound) {
			return fmt.Errorf("%w; run `forecaster features` first", err)
		}
		return err
	}

	model, eval, err := a.Trainer(builder, progressLogger()).Train(c.Context, table)
	if err != nil {
		return err
	}
	if err := forecast.SaveArtifact(cfg.Model.Path, model); err != nil {
		return err
	}
	invalidateReports(c, a)
	fmt.Fprintf(c.App.Writer, "model %s saved to %s\nMAE: %s (train %d, test %d)\n",
		model.Version, cfg.Model.Path, domain.FormatDemand(eval.MAE), eval.TrainRows, eval.TestRows)
	return nil
}

func runPipeline(c *cli.Context) error {
	a, err := appFrom(c)
	if err != nil {
		return err
	}
	builder, err := a.Builder()
	if err != nil {
		return err
	}
	runner, err := a.Runner(c.Context, builder, progressLogger())
	if err != nil {
		return err
	}
	run, _, err := runner.Run(c.Context)
	if err != nil {
		return err
	}
	invalidateReports(c, a)
	return writeJSON(c.App.Writer, run)
}

func runRuns(c *cli.Context) error {
	a, err := appFrom(c)
	if err != nil {
		return err
	}
	runs, err := a.Runs(c.Context)
	if err != nil {
		return err
	}

	if raw := c.String("id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", raw, err)
		}
		run, err := runs.GetRun(c.Context, id)
		if err != nil {
			return err
		}
		return writeJSON(c.App.Writer, run)
	}

	list, err := runs.ListRuns(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, list)
}

// invalidateReports drops reports cached for the previous model. A failure
// only leaves reports to expire on their own.
func invalidateReports(c *cli.Context, a *app.App) {
	if err := a.InvalidateReports(c.Context); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate cached reports")
	}
}

func runPredict(c *cli.Context) error {
	a, err := appFrom(c)
	if err != nil {
		return err
	}
	builder, err := a.Builder()
	if err != nil {
		return err
	}
	model, err := a.LoadModel(c.Context, builder.Schema())
	if err != nil {
		return err
	}
	svc, err := predict.NewService(model, builder.Schema())
	if err != nil {
		return err
	}

	predicted, err := svc.PredictOne(domain.FeatureRow{
		DayOfWeek:    c.Int("day"),
		Month:        c.Int("month"),
		IsWeekend:    c.Bool("weekend"),
		UnitPrice:    c.Float64("price"),
		QuantityLag7: c.Float64("lag"),
		RollingMean7: c.Float64("rolling"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, domain.FormatDemand(predicted))
	return nil
}

func runReport(c *cli.Context) error {
	a, err := appFrom(c)
	if err != nil {
		return err
	}
	cfg := a.Config()
	builder, err := a.Builder()
	if err != nil {
		return err
	}
	model, err := a.LoadModel(c.Context, builder.Schema())
	if err != nil {
		return err
	}
	svc, err := predict.NewService(model, builder.Schema())
	if err != nil {
		return err
	}
	daily, err := a.History(c.Context, builder)
	if err != nil {
		return err
	}

	threshold := cfg.Report.AlertThreshold
	if c.IsSet("threshold") {
		threshold = c.Float64("threshold")
	}
	critical := cfg.Report.CriticalThreshold
	if critical <= 0 {
		critical = report.DefaultCriticalThreshold
	}
	r, err := report.NewGenerator(builder, svc).
		WithCriticalThreshold(critical).
		WithModelVersion(model.Version).
		Generate(daily, threshold)
	if err != nil {
		return err
	}
	if raw := c.String("severity"); raw != "" {
		severity, ok := domain.ParseSeverity(raw)
		if !ok {
			return fmt.Errorf("unknown severity %q; use critical or warning", raw)
		}
		r = report.FilterSeverity(r, severity)
	}

	out := c.App.Writer
	if path := c.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		out = f
	}

	switch c.String("format") {
	case "markdown", "md":
		_, err = io.WriteString(out, report.RenderMarkdown(r))
	case "csv":
		var body []byte
		if body, err = report.RenderCSV(r); err == nil {
			_, err = out.Write(body)
		}
	case "json":
		err = writeJSON(out, r)
	default:
		err = fmt.Errorf("unknown report format %q", c.String("format"))
	}
	return err
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
