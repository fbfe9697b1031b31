package datasource

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/cache"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"go.uber.org/zap"
)

// CachedDataSource is a read-through cache in front of another DataSource.
// Cache failures are logged and treated as misses, so results never depend on the cache.
type CachedDataSource struct {
	underlying DataSource
	cache      cache.Cache
	ttl        time.Duration
	logger     *logger.Logger
}

// NewCachedDataSource creates a new CachedDataSource wrapping the given DataSource.
// A ttl <= 0 uses cache.DefaultTTL.
func NewCachedDataSource(underlying DataSource, c cache.Cache, ttl time.Duration, logger *logger.Logger) *CachedDataSource {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}

	return &CachedDataSource{
		underlying: underlying,
		cache:      c,
		ttl:        ttl,
		logger:     logger,
	}
}

// GetBars implements DataSource with caching. Unavailable ranges are not cached.
func (c *CachedDataSource) GetBars(ctx context.Context, symbol string, timeframe types.Timeframe, start time.Time, end time.Time) ([]types.MarketData, error) {
	key := cache.BarsKey(symbol, timeframe, start, end)

	if bars, ok := c.lookup(ctx, key); ok {
		return bars, nil
	}

	bars, err := c.underlying.GetBars(ctx, symbol, timeframe, start, end)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(bars)
	if err != nil {
		c.logger.Warn("Failed to encode bars for cache", zap.String("key", key), zap.Error(err))

		return bars, nil
	}

	if err := c.cache.Set(ctx, key, encoded, c.ttl); err != nil {
		c.logger.Warn("Failed to write bars to cache", zap.String("key", key), zap.Error(err))
	}

	return bars, nil
}

func (c *CachedDataSource) lookup(ctx context.Context, key string) ([]types.MarketData, bool) {
	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Failed to read bars from cache", zap.String("key", key), zap.Error(err))

		return nil, false
	}

	if !ok {
		return nil, false
	}

	var bars []types.MarketData
	if err := json.Unmarshal(raw, &bars); err != nil || len(bars) == 0 {
		c.logger.Warn("Discarding unreadable cache entry", zap.String("key", key), zap.Error(err))

		return nil, false
	}

	c.logger.Debug("Bars served from cache", zap.String("key", key), zap.Int("bars", len(bars)))

	return bars, true
}

// Close implements DataSource.
func (c *CachedDataSource) Close() error {
	return c.underlying.Close()
}
