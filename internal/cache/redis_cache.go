package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"tokokasir/internal/domain"
)

const generationKey = "catalog:generation"

// RedisCatalogCache namespaces entries by a generation counter. Bumping the
// counter orphans old entries, which then expire through their TTL.
type RedisCatalogCache struct {
	client redis.UniversalClient
}

func NewRedisCatalogCache(addr string, password string, db int) *RedisCatalogCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisCatalogCache{client: client}
}

// NewRedisCatalogCacheFromClient wraps an existing client.
func NewRedisCatalogCacheFromClient(client redis.UniversalClient) *RedisCatalogCache {
	return &RedisCatalogCache{client: client}
}

func (c *RedisCatalogCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCatalogCache) Close() error {
	return c.client.Close()
}

func (c *RedisCatalogCache) Get(ctx context.Context, query string) ([]domain.Product, bool, error) {
	key, err := c.key(ctx, query)
	if err != nil {
		return nil, false, err
	}
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var products []domain.Product
	if err := json.Unmarshal(val, &products); err != nil {
		return nil, false, err
	}
	return products, true, nil
}

func (c *RedisCatalogCache) Set(ctx context.Context, query string, products []domain.Product, ttl time.Duration) error {
	key, err := c.key(ctx, query)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func (c *RedisCatalogCache) Bump(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey).Err()
}

func (c *RedisCatalogCache) key(ctx context.Context, query string) (string, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("catalog:%d:%s", gen, strings.ToLower(strings.TrimSpace(query))), nil
}
