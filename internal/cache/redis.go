package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chrisdamba/homeservices/internal/models"
	"github.com/go-redis/redis/v8"
)

// RedisVendorCache stores vendor lists as JSON strings with a TTL.
type RedisVendorCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisVendorCache(cfg models.CacheConfig) *RedisVendorCache {
	return &RedisVendorCache{
		rdb: redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}),
		ttl: cfg.TTL,
	}
}

func (c *RedisVendorCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisVendorCache) Get(ctx context.Context, categoryID, serviceID string) ([]models.Vendor, bool, error) {
	raw, err := c.rdb.Get(ctx, key(categoryID, serviceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var vendors []models.Vendor
	if err := json.Unmarshal(raw, &vendors); err != nil {
		return nil, false, fmt.Errorf("corrupt vendor cache entry: %w", err)
	}
	return vendors, true, nil
}

func (c *RedisVendorCache) Set(ctx context.Context, categoryID, serviceID string, vendors []models.Vendor) error {
	raw, err := json.Marshal(vendors)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, key(categoryID, serviceID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisVendorCache) Close() error {
	return c.rdb.Close()
}
