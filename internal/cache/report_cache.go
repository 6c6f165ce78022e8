package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/config"
	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/domain"
)

const (
	reportKeyPrefix = "forecaster:report"
	// reportIndexKey is a set of every report key written.
	reportIndexKey  = "forecaster:reports"
	defaultCacheTTL = 5 * time.Minute
	pingTimeout     = 5 * time.Second
)

// ReportKey identifies a report: the same model, history and threshold always
// produce the same report.
type ReportKey struct {
	ModelVersion   string
	HistoryDigest  string
	AlertThreshold float64
}

type ReportCache interface {
	GetReport(ctx context.Context, key ReportKey) (*domain.Report, bool, error)
	SetReport(ctx context.Context, key ReportKey, report *domain.Report) error
	InvalidateAll(ctx context.Context) error
	Close() error
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopReportCache struct{}

// NewReportCache connects to redis when caching is enabled and returns a
// noop cache otherwise.
func NewReportCache(ctx context.Context, cfg config.CacheConfig) (ReportCache, error) {
	if !cfg.Enabled {
		return &noopReportCache{}, nil
	}

	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &redisReportCache{
		client: client,
		ttl:    reportTTL(cfg),
	}, nil
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func (c *redisReportCache) GetReport(ctx context.Context, key ReportKey) (*domain.Report, bool, error) {
	payload, err := c.client.Get(ctx, buildReportKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var report domain.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, false, fmt.Errorf("decode report cache: %w", err)
	}
	return &report, true, nil
}

// SetReport stores the report and records its key in the index in one
// transaction.
func (c *redisReportCache) SetReport(ctx context.Context, key ReportKey, report *domain.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report cache: %w", err)
	}
	redisKey := buildReportKey(key)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisKey, payload, c.ttl)
		pipe.SAdd(ctx, reportIndexKey, redisKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// InvalidateAll drops every indexed report along with the index itself.
// Index entries whose report already expired are deleted as no-ops.
func (c *redisReportCache) InvalidateAll(ctx context.Context) error {
	keys, err := c.client.SMembers(ctx, reportIndexKey).Result()
	if err != nil {
		return fmt.Errorf("redis index read failed: %w", err)
	}
	keys = append(keys, reportIndexKey)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *redisReportCache) Close() error {
	return c.client.Close()
}

func (n *noopReportCache) GetReport(ctx context.Context, key ReportKey) (*domain.Report, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) SetReport(ctx context.Context, key ReportKey, report *domain.Report) error {
	return nil
}

func (n *noopReportCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func (n *noopReportCache) Close() error {
	return nil
}

// redisOptions prefers REDIS_URL and falls back to host, port and db.
func redisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	host := cfg.RedisHost
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.RedisPort
	if port == "" {
		port = "6379"
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

func reportTTL(cfg config.CacheConfig) time.Duration {
	if cfg.ReportTTLSeconds <= 0 {
		return defaultCacheTTL
	}
	return time.Duration(cfg.ReportTTLSeconds) * time.Second
}

func buildReportKey(key ReportKey) string {
	return fmt.Sprintf("%s:%s", reportKeyPrefix, reportKeyHash(key))
}

func reportKeyHash(key ReportKey) string {
	raw := strings.Join([]string{
		"model=" + strings.TrimSpace(key.ModelVersion),
		"history=" + strings.TrimSpace(key.HistoryDigest),
		"threshold=" + strconv.FormatFloat(key.AlertThreshold, 'f', -1, 64),
	}, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
