package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/app"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/config"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/pkg/logger"
)

type appKey struct{}

func initApp(c *cli.Context) error {
	cfg := config.Load()

	// Flags override the environment
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("source") {
		cfg.Data.Source = c.String("source")
	}
	if c.IsSet("transactions") {
		cfg.Data.TransactionsPath = c.String("transactions")
	}
	if c.IsSet("encoding") {
		cfg.Data.Encoding = c.String("encoding")
	}
	if c.IsSet("window-mode") {
		cfg.Features.WindowMode = c.String("window-mode")
	}
	if c.IsSet("model") {
		cfg.Model.Path = c.String("model")
	}

	logger.SetLevel(cfg.Log.Level)
	if cfg.Log.File != "" {
		if err := logger.AddFile(cfg.Log.File); err != nil {
			return err
		}
	}

	c.Context = context.WithValue(c.Context, appKey{}, app.New(cfg))
	return nil
}

func closeApp(c *cli.Context) error {
	if a, ok := c.Context.Value(appKey{}).(*app.App); ok && a != nil {
		return a.Close()
	}
	return nil
}

func appFrom(c *cli.Context) (*app.App, error) {
	a, ok := c.Context.Value(appKey{}).(*app.App)
	if !ok || a == nil {
		return nil, fmt.Errorf("application not initialised")
	}
	return a, nil
}

func main() {
	cliApp := &cli.App{
		Name:  "forecaster",
		Usage: "Build features, train and query the inventory demand model",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Usage: "Log level (debug, info, warn, error)"},
			&cli.StringFlag{Name: "source", Usage: "Transaction source (csv or postgres)"},
			&cli.StringFlag{Name: "transactions", Usage: "Cleaned transactions CSV path"},
			&cli.StringFlag{Name: "encoding", Usage: "Transactions CSV encoding (utf-8 or latin1)"},
			&cli.StringFlag{Name: "window-mode", Usage: "Lag window anchoring (rows or calendar)"},
			&cli.StringFlag{Name: "model", Usage: "Model artifact path"},
		},
		Before: initApp,
		After:  closeApp,
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Load a cleaned transactions CSV into Postgres",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "CSV file to import",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "truncate",
						Usage: "Delete existing transactions before importing",
					},
				},
				Action: runImport,
			},
			{
				Name:   "features",
				Usage:  "Build the feature table and save it to the feature store",
				Action: runFeatures,
			},
			{
				Name:  "train",
				Usage: "Train on the stored feature table and save the model artifact",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "trees", Usage: "Number of trees"},
					&cli.Int64Flag{Name: "seed", Usage: "Random seed for split and fitting"},
				},
				Action: runTrain,
			},
			{
				Name:   "pipeline",
				Usage:  "Run load, build, train and publish as one recorded run",
				Action: runPipeline,
			},
			{
				Name:  "runs",
				Usage: "List recorded training runs (postgres source only)",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "Most recent runs to list", Value: 20},
					&cli.StringFlag{Name: "id", Usage: "Show a single run"},
				},
				Action: runRuns,
			},
			{
				Name:  "predict",
				Usage: "Predict demand for one feature row",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "day", Usage: "Day of week, Monday=0", Required: true},
					&cli.IntFlag{Name: "month", Usage: "Month 1-12", Required: true},
					&cli.BoolFlag{Name: "weekend", Usage: "Weekend day"},
					&cli.Float64Flag{Name: "price", Usage: "Unit price", Required: true},
					&cli.Float64Flag{Name: "lag", Usage: "Quantity sold 7 entries earlier", Required: true},
					&cli.Float64Flag{Name: "rolling", Usage: "Rolling 7-entry mean quantity", Required: true},
				},
				Action: runPredict,
			},
			{
				Name:  "report",
				Usage: "Generate the threshold restock report",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: "threshold", Usage: "Alert threshold (default from REPORT_ALERT_THRESHOLD)"},
					&cli.StringFlag{Name: "severity", Usage: "Only list critical or warning items"},
					&cli.StringFlag{Name: "format", Usage: "markdown, csv or json", Value: "markdown"},
					&cli.StringFlag{Name: "out", Usage: "Write to file instead of stdout"},
				},
				Action: runReport,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("forecaster failed")
	}
}
