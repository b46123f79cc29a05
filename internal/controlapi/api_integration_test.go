//go:build integration

package controlapi_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/mimir/internal/cache"
	"github.com/rafaeljc/mimir/internal/config"
	"github.com/rafaeljc/mimir/internal/controlapi"
	"github.com/rafaeljc/mimir/internal/ruleengine"
	"github.com/rafaeljc/mimir/internal/store"
	"github.com/rafaeljc/mimir/internal/strategy"
	"github.com/rafaeljc/mimir/internal/syncer"
	"github.com/rafaeljc/mimir/internal/testsupport"
)

// replica is one API process: its own registry and L1, shared Postgres and Redis.
type replica struct {
	api      *controlapi.API
	registry *strategy.Registry
	syncer   *syncer.Service
}

func newReplica(t *testing.T, repo store.Repository, redisCache *cache.RedisCache) replica {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := strategy.NewRegistry()
	svc := syncer.New(log, config.SyncerConfig{RefreshInterval: time.Hour}, repo, registry, redisCache)

	l1, err := cache.NewMemoryCache(100, time.Minute)
	require.NoError(t, err)
	t.Cleanup(l1.Close)

	api := controlapi.NewAPIWithConfig(controlapi.Dependencies{
		Repo:      repo,
		Registry:  registry,
		Engine:    ruleengine.New(log),
		Reloader:  svc,
		Publisher: redisCache,
		L1:        l1,
		L2:        redisCache,
		Logger:    log,
	}, "", true)

	return replica{api: api, registry: registry, syncer: svc}
}

// TestControlPlaneAPI_Integration validates the full HTTP request lifecycle
// against PostgreSQL and Redis: persistence, cross-replica propagation and
// the shared plan cache.
func TestControlPlaneAPI_Integration(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := testsupport.StartPostgresContainer(ctx)
	require.NoError(t, err, "failed to start postgres container")
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	redisContainer, err := testsupport.StartRedisContainer(ctx)
	require.NoError(t, err, "failed to start redis container")
	defer func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	}()

	repo := store.NewPostgresStore(pgContainer.DB)
	writer := newReplica(t, repo, redisContainer.Cache)
	reader := newReplica(t, repo, redisContainer.Cache)

	// The reader only learns about changes through the channel.
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() { _ = reader.syncer.Run(runCtx) }()

	t.Run("created strategy is persisted and reaches other replicas", func(t *testing.T) {
		name := fmt.Sprintf("custom%d", time.Now().UnixNano())

		rr := do(t, writer.api, http.MethodPost, "/api/v1/strategies", controlapi.DefinitionRequest{
			Name:       name,
			Parameters: []strategy.ParameterDefinition{{Name: "tier", Type: "string"}},
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		stored, err := repo.GetDefinition(ctx, name)
		require.NoError(t, err)
		assert.True(t, stored.Editable)
		require.Len(t, stored.Parameters, 1)

		require.Eventually(t, func() bool {
			_, ok := reader.registry.Definition(name)
			return ok
		}, 5*time.Second, 50*time.Millisecond, "reader registry never saw %s", name)
	})

	t.Run("duplicate strategy conflicts at the database", func(t *testing.T) {
		name := fmt.Sprintf("dup%d", time.Now().UnixNano())
		body := controlapi.DefinitionRequest{Name: name}

		require.Equal(t, http.StatusCreated, do(t, writer.api, http.MethodPost, "/api/v1/strategies", body).Code)
		assert.Equal(t, http.StatusConflict, do(t, writer.api, http.MethodPost, "/api/v1/strategies", body).Code)
	})

	t.Run("deleted context field disappears", func(t *testing.T) {
		name := fmt.Sprintf("field%d", time.Now().UnixNano())

		rr := do(t, writer.api, http.MethodPost, "/api/v1/context-fields", controlapi.ContextFieldRequest{Name: name, Stickiness: true})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		rr = do(t, writer.api, http.MethodDelete, "/api/v1/context-fields/"+name, nil)
		require.Equal(t, http.StatusNoContent, rr.Code)

		_, ok := writer.registry.ContextField(name)
		assert.False(t, ok)
	})

	t.Run("plans are shared through redis", func(t *testing.T) {
		body := controlapi.PlanRequest{
			Strategy: strategy.Instance{
				Name:       strategy.NameRemoteAddress,
				Parameters: map[string]any{"IPs": fmt.Sprintf("10.0.0.%d", time.Now().UnixNano()%250)},
			},
			Committed: true,
		}

		first := decode[controlapi.PlanResponse](t, do(t, writer.api, http.MethodPost, "/api/v1/plans", body))
		second := decode[controlapi.PlanResponse](t, do(t, reader.api, http.MethodPost, "/api/v1/plans", body))
		third := decode[controlapi.PlanResponse](t, do(t, reader.api, http.MethodPost, "/api/v1/plans", body))

		assert.Equal(t, "derived", first.Source)
		assert.Equal(t, "l2", second.Source)
		assert.Equal(t, "l1", third.Source)
		assert.Equal(t, first.Plan, second.Plan)
	})
}
