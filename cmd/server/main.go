// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/api"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/app"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/cache"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/config"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/domain"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/forecast"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/service"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Log.Level)
	if cfg.Log.File != "" {
		if err := logger.AddFile(cfg.Log.File); err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to open log file")
		}
	}
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	components := app.New(cfg)
	defer components.Close()

	builder, err := components.Builder()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid feature configuration")
	}

	// Load the model and the sales history concurrently; either failing aborts startup
	startup, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	var (
		model *forecast.Model
		daily []domain.DailyEntry
	)
	g, gctx := errgroup.WithContext(startup)
	g.Go(func() error {
		m, err := components.LoadModel(gctx, builder.Schema())
		if err != nil {
			return err
		}
		model = m
		return nil
	})
	g.Go(func() error {
		d, err := components.History(gctx, builder)
		if err != nil {
			return err
		}
		daily = d
		return nil
	})
	err = g.Wait()
	cancel()
	if errors.Is(err, forecast.ErrArtifactUnavailable) {
		logger.Log.Fatal().Err(err).Msg("Model artifact unavailable; run `forecaster train` first")
	}
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize serving state")
	}

	state, err := service.NewState(model, builder, daily)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Model does not match the serving feature schema")
	}

	reportCache, err := components.ReportCache(context.Background())
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Report cache unavailable, continuing without cache")
		reportCache = cache.NewNoopReportCache()
	}
	forecastService := service.NewForecastService(state, reportCache, cfg.Report)

	logger.Log.Info().
		Str("model_version", model.Version).
		Str("fingerprint", model.Fingerprint()).
		Int("products", len(forecastService.Products())).
		Msg("Serving state ready")

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{ForecastService: forecastService}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
