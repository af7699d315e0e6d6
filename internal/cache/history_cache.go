package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/config"
	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/andresuchdata/autopo-replenish/internal/forecast"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	historyKeyPrefix     = "history"
	historyScanBatchSize = 100
)

type HistoryCache interface {
	GetDaily(ctx context.Context, sku string, days int) ([]domain.DemandSample, bool, error)
	SetDaily(ctx context.Context, sku string, days int, samples []domain.DemandSample) error
	GetWeekly(ctx context.Context, sku string, days int) ([]domain.WeeklySample, bool, error)
	SetWeekly(ctx context.Context, sku string, days int, samples []domain.WeeklySample) error
	InvalidateSKU(ctx context.Context, sku string) error
	InvalidateAll(ctx context.Context) error
}

type redisHistoryCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopHistoryCache struct{}

func NewHistoryCache(cfg config.CacheConfig) (HistoryCache, error) {
	if !cfg.Enabled {
		return &noopHistoryCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisHistoryCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopHistoryCache() HistoryCache {
	return &noopHistoryCache{}
}

func (c *redisHistoryCache) GetDaily(ctx context.Context, sku string, days int) ([]domain.DemandSample, bool, error) {
	var samples []domain.DemandSample
	ok, err := c.get(ctx, historyKey(sku, "daily", days), &samples)
	return samples, ok, err
}

func (c *redisHistoryCache) SetDaily(ctx context.Context, sku string, days int, samples []domain.DemandSample) error {
	return c.set(ctx, historyKey(sku, "daily", days), samples)
}

func (c *redisHistoryCache) GetWeekly(ctx context.Context, sku string, days int) ([]domain.WeeklySample, bool, error) {
	var samples []domain.WeeklySample
	ok, err := c.get(ctx, historyKey(sku, "weekly", days), &samples)
	return samples, ok, err
}

func (c *redisHistoryCache) SetWeekly(ctx context.Context, sku string, days int, samples []domain.WeeklySample) error {
	return c.set(ctx, historyKey(sku, "weekly", days), samples)
}

func (c *redisHistoryCache) InvalidateSKU(ctx context.Context, sku string) error {
	return deleteKeysWithPrefix(ctx, c.client, skuPrefix(sku), historyScanBatchSize)
}

func (c *redisHistoryCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, historyKeyPrefix+":", historyScanBatchSize)
}

func (c *redisHistoryCache) get(ctx context.Context, key string, dest any) (bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("decode history cache: %w", err)
	}
	return true, nil
}

func (c *redisHistoryCache) set(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode history cache: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (n *noopHistoryCache) GetDaily(context.Context, string, int) ([]domain.DemandSample, bool, error) {
	return nil, false, nil
}

func (n *noopHistoryCache) SetDaily(context.Context, string, int, []domain.DemandSample) error {
	return nil
}

func (n *noopHistoryCache) GetWeekly(context.Context, string, int) ([]domain.WeeklySample, bool, error) {
	return nil, false, nil
}

func (n *noopHistoryCache) SetWeekly(context.Context, string, int, []domain.WeeklySample) error {
	return nil
}

func (n *noopHistoryCache) InvalidateSKU(context.Context, string) error { return nil }

func (n *noopHistoryCache) InvalidateAll(context.Context) error { return nil }

func skuPrefix(sku string) string {
	return fmt.Sprintf("%s:%s:", historyKeyPrefix, strings.TrimSpace(sku))
}

func historyKey(sku, grain string, days int) string {
	return fmt.Sprintf("%s%s:%d", skuPrefix(sku), grain, days)
}

// CachedHistory serves history lookups from the cache and fills it on a miss.
// Cache failures are logged and the lookup falls through to the source.
type CachedHistory struct {
	source forecast.HistoryLookup
	cache  HistoryCache
}

func NewCachedHistory(source forecast.HistoryLookup, cache HistoryCache) *CachedHistory {
	if cache == nil {
		cache = NewNoopHistoryCache()
	}
	return &CachedHistory{source: source, cache: cache}
}

func (h *CachedHistory) DailyHistory(ctx context.Context, sku string, days int) ([]domain.DemandSample, error) {
	if samples, ok, err := h.cache.GetDaily(ctx, sku, days); err == nil && ok {
		return samples, nil
	} else if err != nil {
		log.Warn().Err(err).Str("sku", sku).Msg("history cache read failed")
	}

	samples, err := h.source.DailyHistory(ctx, sku, days)
	if err != nil {
		return nil, err
	}
	if err := h.cache.SetDaily(ctx, sku, days, samples); err != nil {
		log.Warn().Err(err).Str("sku", sku).Msg("history cache write failed")
	}
	return samples, nil
}

func (h *CachedHistory) WeeklyHistory(ctx context.Context, sku string, days int) ([]domain.WeeklySample, error) {
	if samples, ok, err := h.cache.GetWeekly(ctx, sku, days); err == nil && ok {
		return samples, nil
	} else if err != nil {
		log.Warn().Err(err).Str("sku", sku).Msg("history cache read failed")
	}

	samples, err := h.source.WeeklyHistory(ctx, sku, days)
	if err != nil {
		return nil, err
	}
	if err := h.cache.SetWeekly(ctx, sku, days, samples); err != nil {
		log.Warn().Err(err).Str("sku", sku).Msg("history cache write failed")
	}
	return samples, nil
}

// Invalidate drops every cached window for sku.
func (h *CachedHistory) Invalidate(ctx context.Context, sku string) error {
	return h.cache.InvalidateSKU(ctx, sku)
}

// Flush drops every cached window.
func (h *CachedHistory) Flush(ctx context.Context) error {
	return h.cache.InvalidateAll(ctx)
}

var _ forecast.HistoryLookup = (*CachedHistory)(nil)
