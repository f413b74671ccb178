package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/example/slick-storefront/internal/logger"
)

var ErrCacheMiss = errors.New("cache miss")

const productListKey = "catalog:products"

// CachedSource keeps product reads in Redis in front of another Source.
// Concurrent misses for the same key share one backend call. Redis failures
// fall through to the backend.
type CachedSource struct {
	next    Source
	client  *redis.Client
	baseTTL time.Duration
	group   singleflight.Group
	logger  *slog.Logger
}

func NewCachedSource(next Source, client *redis.Client, ttl time.Duration, log *slog.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedSource{
		next:    next,
		client:  client,
		baseTTL: ttl,
		logger:  logger.Component(log, "CatalogCache"),
	}
}

func (c *CachedSource) ListProducts(ctx context.Context) ([]Product, error) {
	var cached []Product
	if err := c.get(ctx, productListKey, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn("cache read failed", "key", productListKey, "error", err)
	}

	v, err, _ := c.group.Do(productListKey, func() (any, error) {
		products, err := c.next.ListProducts(ctx)
		if err != nil {
			return nil, err
		}
		c.set(ctx, productListKey, products)
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Product), nil
}

func (c *CachedSource) GetProduct(ctx context.Context, id string) (*Product, error) {
	key := productKey(id)

	var cached Product
	if err := c.get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn("cache read failed", "key", key, "error", err)
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		p, err := c.next.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			c.set(ctx, key, p)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	p, _ := v.(*Product)
	if p == nil {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// Invalidate drops every cached catalog entry.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "catalog:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *CachedSource) get(ctx context.Context, key string, dst any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return nil
}

func (c *CachedSource) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache marshal failed", "key", key, "error", err)
		return
	}
	jitter := time.Duration(rand.Int63n(int64(c.baseTTL)/5 + 1))
	if err := c.client.Set(ctx, key, data, c.baseTTL+jitter).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

func productKey(id string) string {
	return fmt.Sprintf("catalog:product:%s", id)
}
