package testsupport

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/rafaeljc/mimir/internal/cache"
	"github.com/rafaeljc/mimir/internal/config"
)

// Plan key prefix and change channel of the cache built by StartRedisContainer.
const (
	RedisPlanPrefix = "test:plan:"
	RedisChannel    = "test:registry:changes"
)

// RedisContainer is a Redis instance fronted by the application cache.
type RedisContainer struct {
	Container testcontainers.Container
	Cache     *cache.RedisCache
}

// Terminate closes the cache client and removes the container.
func (c *RedisContainer) Terminate(ctx context.Context) error {
	_ = c.Cache.Close()
	return c.Container.Terminate(ctx)
}

// StartRedisContainer runs redis:7-alpine and connects with a redis:// URL,
// the same path production takes when MIMIR_REDIS_URL is set.
func StartRedisContainer(ctx context.Context) (*RedisContainer, error) {
	ctr, err := redis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return nil, fmt.Errorf("failed to start redis container: %w", err)
	}

	url, err := ctr.ConnectionString(ctx)
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("failed to get redis connection string: %w", err)
	}

	client, err := cache.NewRedisClient(ctx, &config.RedisConfig{
		URL:            url,
		DialTimeout:    5 * time.Second,
		PoolSize:       10,
		PingMaxRetries: 5,
		PingBackoff:    500 * time.Millisecond,
	})
	if err != nil {
		_ = ctr.Terminate(ctx)
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}

	return &RedisContainer{
		Container: ctr,
		Cache:     cache.NewRedisCache(client, RedisPlanPrefix, time.Hour, RedisChannel),
	}, nil
}
