package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache key constants
const (
	KeyCurrentMRR   = "revenue:mrr:current"
	KeyMRRBreakdown = "revenue:mrr:breakdown"
)

// TTL constants
const (
	TTLCurrentMRR = 30 * time.Second
	TTLBreakdown  = 5 * time.Minute
)

// ErrCacheMiss is returned when the requested key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// MetricsCache caches hot revenue metrics in Redis so dashboard reads do
// not hit Postgres on every poll.
type MetricsCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewMetricsCache creates a new metrics cache
func NewMetricsCache(client *redis.Client, logger *zap.Logger) *MetricsCache {
	return &MetricsCache{
		client: client,
		logger: logger,
	}
}

// SetCurrentMRR stores the current total MRR with a short TTL
func (c *MetricsCache) SetCurrentMRR(ctx context.Context, mrr float64) error {
	if err := c.client.Set(ctx, KeyCurrentMRR, mrr, TTLCurrentMRR).Err(); err != nil {
		return fmt.Errorf("failed to cache current mrr: %w", err)
	}
	return nil
}

// GetCurrentMRR retrieves the cached total MRR
func (c *MetricsCache) GetCurrentMRR(ctx context.Context) (float64, error) {
	mrr, err := c.client.Get(ctx, KeyCurrentMRR).Float64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("failed to get current mrr: %w", err)
	}
	return mrr, nil
}

// SetMRRBreakdown stores the per-product MRR breakdown
func (c *MetricsCache) SetMRRBreakdown(ctx context.Context, breakdown map[string]float64) error {
	data, err := json.Marshal(breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal breakdown: %w", err)
	}
	if err := c.client.Set(ctx, KeyMRRBreakdown, data, TTLBreakdown).Err(); err != nil {
		return fmt.Errorf("failed to cache breakdown: %w", err)
	}
	return nil
}

// GetMRRBreakdown retrieves the cached per-product breakdown
func (c *MetricsCache) GetMRRBreakdown(ctx context.Context) (map[string]float64, error) {
	data, err := c.client.Get(ctx, KeyMRRBreakdown).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get breakdown: %w", err)
	}

	var breakdown map[string]float64
	if err := json.Unmarshal(data, &breakdown); err != nil {
		return nil, fmt.Errorf("failed to unmarshal breakdown: %w", err)
	}
	return breakdown, nil
}

// InvalidateMRR drops the MRR keys, forcing the next read through to the
// database. Called after ingestion changes subscription MRR.
func (c *MetricsCache) InvalidateMRR(ctx context.Context) {
	if err := c.client.Del(ctx, KeyCurrentMRR, KeyMRRBreakdown).Err(); err != nil {
		c.logger.Warn("failed to invalidate mrr cache", zap.Error(err))
	}
}
