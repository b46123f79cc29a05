package cache

import "context"

// Name identifies the cache in readiness reports.
func (c *RedisCache) Name() string {
	return "redis"
}

// Check lets RedisCache act as a readiness checker.
func (c *RedisCache) Check(ctx context.Context) error {
	return c.HealthCheck(ctx)
}
