//go:build integration

package cache_test

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/mimir/internal/cache"
	"github.com/rafaeljc/mimir/internal/observability"
	"github.com/rafaeljc/mimir/internal/plan"
	"github.com/rafaeljc/mimir/internal/testsupport"
)

// TestRedisCache_Integration verifies the L2 storage format and the change channel.
func TestRedisCache_Integration(t *testing.T) {
	// 1. Infrastructure Setup
	ctx := context.Background()

	redisCtr, err := testsupport.StartRedisContainer(ctx)
	require.NoError(t, err)
	defer redisCtr.Terminate(ctx)

	// System Under Test (SUT)
	appCache := redisCtr.Cache

	// Spy Client (Side-channel verification)
	endpoint, err := redisCtr.Container.PortEndpoint(ctx, "6379/tcp", "")
	require.NoError(t, err)

	spyClient := redis.NewClient(&redis.Options{Addr: endpoint})
	defer spyClient.Close()

	samplePlan := &plan.Plan{
		Constraints: []plan.ConstraintDescription{},
		Population: []plan.PopulationDescriptor{
			{Kind: plan.KindPercentage, Name: "rollout", Percentage: 50, Valid: true},
		},
		Omitted: []plan.Omission{},
	}

	t.Run("Should store plans as version|json", func(t *testing.T) {
		require.NoError(t, appCache.SetPlan(ctx, "k1", samplePlan))

		val, err := spyClient.Get(ctx, testsupport.RedisPlanPrefix+"k1").Result()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(val, strconv.FormatInt(cache.PlanFormatVersion, 10)+"|"), "Storage must include version prefix")
		assert.Contains(t, val, `"populationDescriptors"`, "Storage must include JSON payload")

		ttl, err := spyClient.TTL(ctx, testsupport.RedisPlanPrefix+"k1").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0), "plans must expire")
	})

	t.Run("Should read back a stored plan", func(t *testing.T) {
		got, found, err := appCache.GetPlan(ctx, "k1")

		require.NoError(t, err)
		require.True(t, found)
		require.Len(t, got.Population, 1)
		assert.Equal(t, samplePlan.Population[0], got.Population[0])
	})

	t.Run("Should miss on unknown keys", func(t *testing.T) {
		testsupport.AssertMetricDelta(t, "mimir_plan_cache_l2_misses_total", nil, 1, func() {
			_, found, err := appCache.GetPlan(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, found)
		})
	})

	t.Run("Should miss on a foreign format version", func(t *testing.T) {
		require.NoError(t, spyClient.Set(ctx, testsupport.RedisPlanPrefix+"old", `0|{"standard":true}`, 0).Err())

		_, found, err := appCache.GetPlan(ctx, "old")

		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Should miss on corrupted payloads", func(t *testing.T) {
		require.NoError(t, spyClient.Set(ctx, testsupport.RedisPlanPrefix+"bad", `1|{not json`, 0).Err())

		_, found, err := appCache.GetPlan(ctx, "bad")

		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Should deliver change announcements to subscribers", func(t *testing.T) {
		sub := appCache.Subscribe(ctx)
		defer sub.Close()

		// Wait for the subscription to be confirmed before publishing.
		_, err := sub.Receive(ctx)
		require.NoError(t, err)

		require.NoError(t, appCache.PublishChange(ctx, cache.ChangeStrategy, "betaProgram"))

		select {
		case msg := <-sub.Channel():
			kind, name := cache.DecodeChangeMessage(msg.Payload)
			assert.Equal(t, cache.ChangeStrategy, kind)
			assert.Equal(t, "betaProgram", name)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for change message")
		}
	})

	t.Run("Should report health", func(t *testing.T) {
		var checker observability.Checker = appCache

		assert.Equal(t, "redis", checker.Name())
		assert.NoError(t, checker.Check(ctx))
	})
}
