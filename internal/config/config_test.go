package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestBuild_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg := Build(v)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "csv", cfg.Data.Source)
	assert.Equal(t, "Data/cleaned_retail.csv", cfg.Data.TransactionsPath)
	assert.Equal(t, "file", cfg.Data.FeatureStore)
	assert.Equal(t, 100, cfg.Model.Trees)
	assert.Equal(t, int64(42), cfg.Model.Seed)
	assert.Equal(t, 0.2, cfg.Model.TestRatio)
	assert.Equal(t, "rows", cfg.Features.WindowMode)
	assert.Equal(t, 50.0, cfg.Report.AlertThreshold)
	assert.Equal(t, 10.0, cfg.Report.CriticalThreshold)
	assert.Equal(t, 20.0, cfg.Report.SafetyStock)
	assert.Equal(t, 100.0, cfg.Report.OverstockLimit)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestBuild_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MODEL_TREES", "25")
	t.Setenv("FEATURE_WINDOW_MODE", "calendar")
	t.Setenv("REPORT_ALERT_THRESHOLD", "75.5")
	t.Setenv("CACHE_ENABLED", "true")

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	cfg := Build(v)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 25, cfg.Model.Trees)
	assert.Equal(t, "calendar", cfg.Features.WindowMode)
	assert.Equal(t, 75.5, cfg.Report.AlertThreshold)
	assert.True(t, cfg.Cache.Enabled)
}

func TestDatabaseConfig_ConnString(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "forecaster", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=forecaster sslmode=disable", d.ConnString())

	d.URL = "postgres://u:p@db:5432/forecaster"
	assert.Equal(t, d.URL, d.ConnString())
}
