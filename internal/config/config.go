// internal/config/config.go
package config

import (
	"fmt"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Data          DataConfig
	Model         ModelConfig
	Features      FeaturesConfig
	Report        ReportConfig
	Cache         CacheConfig
	ObjectStorage ObjectStorageConfig
	ClickHouse    ClickHouseConfig
	Log           LogConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL            string
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MaxConcurrency int64
}

// ConnString returns DATABASE_URL when set, otherwise a key/value DSN.
func (d DatabaseConfig) ConnString() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// DataConfig says where cleaned transactions and built features live.
type DataConfig struct {
	Source           string // csv or postgres
	TransactionsPath string
	FeaturesPath     string
	Encoding         string // utf-8 or latin1
	FeatureStore     string // file or clickhouse
}

type ModelConfig struct {
	Path           string
	Trees          int
	MaxDepth       int
	MinSamplesLeaf int
	Seed           int64
	TestRatio      float64
	Workers        int
	RemoteKey      string
}

type FeaturesConfig struct {
	WindowMode string
}

type ReportConfig struct {
	AlertThreshold    float64
	CriticalThreshold float64
	SafetyStock       float64
	OverstockLimit    float64
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ReportTTLSeconds int
}

type ObjectStorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type ClickHouseConfig struct {
	DSN   string
	Table string
}

type LogConfig struct {
	Level string
	File  string
}

var (
	once     sync.Once
	instance *Config
)

// Load reads .env and the environment once and returns the shared config.
func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.New()
		SetDefaults(v)

		// Read from environment variables
		v.AutomaticEnv()

		instance = Build(v)
	})

	return instance
}

// SetDefaults registers every key with its default.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8000")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "forecaster")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONCURRENCY", 8)

	v.SetDefault("DATA_SOURCE", "csv")
	v.SetDefault("DATA_TRANSACTIONS_PATH", "Data/cleaned_retail.csv")
	v.SetDefault("DATA_FEATURES_PATH", "Data/features_retail.csv")
	v.SetDefault("DATA_ENCODING", "utf-8")
	v.SetDefault("FEATURE_STORE", "file")

	v.SetDefault("MODEL_PATH", "models/inventory_model.bin")
	v.SetDefault("MODEL_TREES", 100)
	v.SetDefault("MODEL_MAX_DEPTH", 0)
	v.SetDefault("MODEL_MIN_SAMPLES_LEAF", 1)
	v.SetDefault("MODEL_SEED", 42)
	v.SetDefault("MODEL_TEST_RATIO", 0.2)
	v.SetDefault("MODEL_WORKERS", 0)
	v.SetDefault("MODEL_REMOTE_KEY", "")

	v.SetDefault("FEATURE_WINDOW_MODE", "rows")

	v.SetDefault("REPORT_ALERT_THRESHOLD", 50.0)
	v.SetDefault("REPORT_CRITICAL_THRESHOLD", 10.0)
	v.SetDefault("REPORT_SAFETY_STOCK", 20.0)
	v.SetDefault("REPORT_OVERSTOCK_LIMIT", 100.0)

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_REPORT_TTL_SECONDS", 300)

	v.SetDefault("OBJECT_STORAGE_ENABLED", false)
	v.SetDefault("OBJECT_STORAGE_ENDPOINT", "localhost:9000")
	v.SetDefault("OBJECT_STORAGE_ACCESS_KEY", "")
	v.SetDefault("OBJECT_STORAGE_SECRET_KEY", "")
	v.SetDefault("OBJECT_STORAGE_BUCKET", "forecaster-models")
	v.SetDefault("OBJECT_STORAGE_REGION", "")
	v.SetDefault("OBJECT_STORAGE_USE_SSL", false)

	v.SetDefault("CLICKHOUSE_DSN", "clickhouse://localhost:9000/default")
	v.SetDefault("CLICKHOUSE_TABLE", "feature_rows")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
}

// Build maps a populated viper instance onto Config.
func Build(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:            v.GetString("DATABASE_URL"),
			Host:           v.GetString("DB_HOST"),
			Port:           v.GetString("DB_PORT"),
			User:           v.GetString("DB_USER"),
			Password:       v.GetString("DB_PASSWORD"),
			DBName:         v.GetString("DB_NAME"),
			SSLMode:        v.GetString("DB_SSLMODE"),
			MaxConcurrency: v.GetInt64("DB_MAX_CONCURRENCY"),
		},
		Data: DataConfig{
			Source:           v.GetString("DATA_SOURCE"),
			TransactionsPath: v.GetString("DATA_TRANSACTIONS_PATH"),
			FeaturesPath:     v.GetString("DATA_FEATURES_PATH"),
			Encoding:         v.GetString("DATA_ENCODING"),
			FeatureStore:     v.GetString("FEATURE_STORE"),
		},
		Model: ModelConfig{
			Path:           v.GetString("MODEL_PATH"),
			Trees:          v.GetInt("MODEL_TREES"),
			MaxDepth:       v.GetInt("MODEL_MAX_DEPTH"),
			MinSamplesLeaf: v.GetInt("MODEL_MIN_SAMPLES_LEAF"),
			Seed:           v.GetInt64("MODEL_SEED"),
			TestRatio:      v.GetFloat64("MODEL_TEST_RATIO"),
			Workers:        v.GetInt("MODEL_WORKERS"),
			RemoteKey:      v.GetString("MODEL_REMOTE_KEY"),
		},
		Features: FeaturesConfig{
			WindowMode: v.GetString("FEATURE_WINDOW_MODE"),
		},
		Report: ReportConfig{
			AlertThreshold:    v.GetFloat64("REPORT_ALERT_THRESHOLD"),
			CriticalThreshold: v.GetFloat64("REPORT_CRITICAL_THRESHOLD"),
			SafetyStock:       v.GetFloat64("REPORT_SAFETY_STOCK"),
			OverstockLimit:    v.GetFloat64("REPORT_OVERSTOCK_LIMIT"),
		},
		Cache: CacheConfig{
			Enabled:          v.GetBool("CACHE_ENABLED"),
			RedisURL:         v.GetString("REDIS_URL"),
			RedisHost:        v.GetString("REDIS_HOST"),
			RedisPort:        v.GetString("REDIS_PORT"),
			RedisPassword:    v.GetString("REDIS_PASSWORD"),
			RedisDB:          v.GetInt("REDIS_DB"),
			ReportTTLSeconds: v.GetInt("CACHE_REPORT_TTL_SECONDS"),
		},
		ObjectStorage: ObjectStorageConfig{
			Enabled:   v.GetBool("OBJECT_STORAGE_ENABLED"),
			Endpoint:  v.GetString("OBJECT_STORAGE_ENDPOINT"),
			AccessKey: v.GetString("OBJECT_STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("OBJECT_STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("OBJECT_STORAGE_BUCKET"),
			Region:    v.GetString("OBJECT_STORAGE_REGION"),
			UseSSL:    v.GetBool("OBJECT_STORAGE_USE_SSL"),
		},
		ClickHouse: ClickHouseConfig{
			DSN:   v.GetString("CLICKHOUSE_DSN"),
			Table: v.GetString("CLICKHOUSE_TABLE"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
			File:  v.GetString("LOG_FILE"),
		},
	}
}
