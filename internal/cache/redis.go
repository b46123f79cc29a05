// Package cache provides the caching layer for the mimir service.
// It holds the Redis L2 plan cache shared by every replica, the in-process
// L1 plan cache, and the Pub/Sub channel used to announce registry changes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rafaeljc/mimir/internal/observability"
	"github.com/rafaeljc/mimir/internal/plan"
)

// PlanFormatVersion is stamped on every plan written to Redis.
// Entries carrying another version are treated as misses, so a deploy that
// changes the plan shape never serves stale payloads.
const PlanFormatVersion int64 = 2

// Change kinds announced on the registry channel.
const (
	ChangeStrategy = "strategy"
	ChangeContext  = "context"
	ChangeSegment  = "segment"
)

// Compile-time check to verify that RedisCache implements Service.
var _ Service = (*RedisCache)(nil)

// Service defines the interface for L2 cache and Pub/Sub operations.
// This interface allows for dependency injection and mocking in tests.
type Service interface {
	// GetPlan returns the cached plan stored under key, if any.
	GetPlan(ctx context.Context, key string) (*plan.Plan, bool, error)

	// SetPlan stores a plan under key for the configured TTL.
	SetPlan(ctx context.Context, key string, p *plan.Plan) error

	// PublishChange announces that a registry entry changed.
	PublishChange(ctx context.Context, kind, name string) error

	// Subscribe listens on the registry change channel.
	Subscribe(ctx context.Context) *redis.PubSub

	// HealthCheck pings the redis server to ensure connectivity.
	HealthCheck(ctx context.Context) error

	// Close terminates the connection.
	Close() error
}

// RedisCache implements Service using the go-redis library.
type RedisCache struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	channel string
}

// NewRedisCache wraps an initialized client.
// prefix namespaces plan keys, ttl bounds their lifetime and channel carries registry changes.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration, channel string) *RedisCache {
	if client == nil {
		panic("cache: redis client cannot be nil")
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl, channel: channel}
}

// Client exposes the underlying client for health checks and pool monitoring.
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

// GetPlan reads a plan from Redis.
// A missing key, a foreign format version or an undecodable payload all count as a miss.
func (c *RedisCache) GetPlan(ctx context.Context, key string) (*plan.Plan, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			observability.PlanCacheL2Misses.Inc()
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get plan %q from cache: %w", key, err)
	}

	version, payload := decodePlan(raw)
	if version != PlanFormatVersion {
		observability.PlanCacheL2Misses.Inc()
		return nil, false, nil
	}

	var p plan.Plan
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		observability.PlanCacheL2Misses.Inc()
		return nil, false, nil
	}

	observability.PlanCacheL2Hits.Inc()
	return &p, true, nil
}

// SetPlan writes a plan to Redis as "version|json".
func (c *RedisCache) SetPlan(ctx context.Context, key string, p *plan.Plan) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}

	if err := c.client.Set(ctx, c.prefix+key, encodePlan(data, PlanFormatVersion), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set plan %q in cache: %w", key, err)
	}
	return nil
}

// PublishChange publishes "kind:name" on the registry channel.
func (c *RedisCache) PublishChange(ctx context.Context, kind, name string) error {
	if err := c.client.Publish(ctx, c.channel, EncodeChangeMessage(kind, name)).Err(); err != nil {
		return fmt.Errorf("failed to publish %s change %q: %w", kind, name, err)
	}
	return nil
}

// Subscribe returns a subscription to the registry channel.
// The caller owns the subscription and must close it.
func (c *RedisCache) Subscribe(ctx context.Context) *redis.PubSub {
	return c.client.Subscribe(ctx, c.channel)
}

// HealthCheck verifies the connection to the Redis server.
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// encodePlan prefixes the JSON payload with its format version.
func encodePlan(jsonData []byte, version int64) string {
	return strconv.FormatInt(version, 10) + "|" + string(jsonData)
}

// decodePlan splits "version|json". Values without a numeric prefix decode to version 0.
// Only the first 20 bytes are searched, the width of the largest int64.
func decodePlan(encoded string) (int64, string) {
	limit := min(len(encoded), 20)
	idx := strings.IndexByte(encoded[:limit], '|')
	if idx < 0 {
		return 0, encoded
	}

	version, err := strconv.ParseInt(encoded[:idx], 10, 64)
	if err != nil {
		return 0, encoded
	}
	return version, encoded[idx+1:]
}

// EncodeChangeMessage formats a registry change announcement.
func EncodeChangeMessage(kind, name string) string {
	return kind + ":" + name
}

// DecodeChangeMessage splits "kind:name". Messages without a separator have an empty kind.
func DecodeChangeMessage(msg string) (kind, name string) {
	kind, name, found := strings.Cut(msg, ":")
	if !found {
		return "", msg
	}
	return kind, name
}
