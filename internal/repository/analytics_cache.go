package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/linkboard/internal/models"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// AnalyticsCache кэш фасетов аналитики. Снимает повторные походы
// в бэкенд, когда несколько видов дашборда смотрят на одну ссылку.
type AnalyticsCache interface {
	GetFacet(ctx context.Context, shortCode string, facet models.Facet, dest any) error
	SetFacet(ctx context.Context, shortCode string, facet models.Facet, value any, ttl time.Duration) error
	InvalidateLink(ctx context.Context, shortCode string) error
}

type analyticsCache struct {
	redis *RedisDB
}

func NewAnalyticsCache(redis *RedisDB) AnalyticsCache {
	return &analyticsCache{redis: redis}
}

func (c *analyticsCache) GetFacet(ctx context.Context, shortCode string, facet models.Facet, dest any) error {
	data, err := c.redis.Client.Get(ctx, c.key(shortCode, facet)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached facet: %w", err)
	}
	return nil
}

func (c *analyticsCache) SetFacet(ctx context.Context, shortCode string, facet models.Facet, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal facet: %w", err)
	}
	return c.redis.Client.Set(ctx, c.key(shortCode, facet), data, ttl).Err()
}

func (c *analyticsCache) InvalidateLink(ctx context.Context, shortCode string) error {
	keys := make([]string, 0, len(models.AllFacets))
	for _, f := range models.AllFacets {
		keys = append(keys, c.key(shortCode, f))
	}
	return c.redis.Client.Del(ctx, keys...).Err()
}

func (c *analyticsCache) key(shortCode string, facet models.Facet) string {
	return "analytics:" + shortCode + ":" + string(facet)
}
