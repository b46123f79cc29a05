package controlapi_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/mimir/internal/constraint"
	"github.com/rafaeljc/mimir/internal/controlapi"
	"github.com/rafaeljc/mimir/internal/strategy"
	"github.com/rafaeljc/mimir/internal/testsupport"
)

// TestMetrics runs serially: Prometheus collectors are global and the deltas
// would be skewed by parallel tests hitting the same routes.
func TestMetrics(t *testing.T) {
	env := newTestEnv(t)
	api := env.api

	// -------------------------------------------------------------------------
	// Scenario 1: Success Path (200 OK)
	// -------------------------------------------------------------------------
	t.Run("records metrics for successful request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()

		counterLabels := map[string]string{"method": "GET", "path": "/health", "code": "200"}
		histogramLabels := map[string]string{"method": "GET", "path": "/health"}

		testsupport.AssertMetricDelta(t, "mimir_control_plane_http_requests_total", counterLabels, 1, func() {
			api.Router.ServeHTTP(rr, req)
			require.Equal(t, http.StatusOK, rr.Code)
		})

		testsupport.AssertHistogramRecorded(t, "mimir_control_plane_http_handling_seconds", histogramLabels)
	})

	// -------------------------------------------------------------------------
	// Scenario 2: Business Resource Not Found (404)
	// The label must be the route pattern, never the raw name.
	// -------------------------------------------------------------------------
	t.Run("records metrics for business 404 (preserves route pattern)", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/strategies/missing-strategy-123", nil)
		rr := httptest.NewRecorder()

		labels := map[string]string{"method": "GET", "path": "/api/v1/strategies/{name}", "code": "404"}

		testsupport.AssertMetricDelta(t, "mimir_control_plane_http_requests_total", labels, 1, func() {
			api.Router.ServeHTTP(rr, req)
			require.Equal(t, http.StatusNotFound, rr.Code)
		})
	})

	// -------------------------------------------------------------------------
	// Scenario 3: Unknown path collapses to "not_found"
	// -------------------------------------------------------------------------
	t.Run("records metrics for infra 404 (collapses to not_found)", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin.php", nil)
		rr := httptest.NewRecorder()

		labels := map[string]string{"method": "GET", "path": "not_found", "code": "404"}

		testsupport.AssertMetricDelta(t, "mimir_control_plane_http_requests_total", labels, 1, func() {
			api.Router.ServeHTTP(rr, req)
			require.Equal(t, http.StatusNotFound, rr.Code)
		})
	})

	// -------------------------------------------------------------------------
	// Scenario 4: Bad Request (400)
	// -------------------------------------------------------------------------
	t.Run("records metrics for bad request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/strategies", bytes.NewBufferString(`{invalid-json`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		labels := map[string]string{"method": "POST", "path": "/api/v1/strategies", "code": "400"}

		testsupport.AssertMetricDelta(t, "mimir_control_plane_http_requests_total", labels, 1, func() {
			api.Router.ServeHTTP(rr, req)
			require.Equal(t, http.StatusBadRequest, rr.Code)
		})
	})

	// -------------------------------------------------------------------------
	// Scenario 5: Plan derivation and memoization
	// -------------------------------------------------------------------------
	t.Run("counts derivations and L1 hits", func(t *testing.T) {
		body := controlapi.PlanRequest{
			Strategy: strategy.Instance{
				Name:       strategy.NameUserWithID,
				Parameters: map[string]any{"userIds": "metrics-user"},
			},
			Committed: true,
		}

		testsupport.AssertMetricDelta(t, "mimir_plan_derivations_total", map[string]string{"mode": "committed"}, 1, func() {
			require.Equal(t, http.StatusOK, do(t, api, http.MethodPost, "/api/v1/plans", body).Code)
		})

		testsupport.AssertMetricDelta(t, "mimir_plan_cache_l1_hits_total", nil, 1, func() {
			require.Equal(t, http.StatusOK, do(t, api, http.MethodPost, "/api/v1/plans", body).Code)
		})
	})

	t.Run("counts omitted constraints", func(t *testing.T) {
		body := controlapi.PlanRequest{
			Strategy: strategy.Instance{
				Name: strategy.DefaultName,
				Constraints: []constraint.Constraint{
					{ContextName: "userId", Operator: "REGEX", Value: ".*"},
				},
			},
		}

		testsupport.AssertMetricDelta(t, "mimir_plan_omissions_total", map[string]string{"kind": "constraint"}, 1, func() {
			require.Equal(t, http.StatusOK, do(t, api, http.MethodPost, "/api/v1/plans", body).Code)
		})
	})

	// -------------------------------------------------------------------------
	// Scenario 6: Playground results
	// -------------------------------------------------------------------------
	t.Run("counts playground evaluations by result", func(t *testing.T) {
		body := controlapi.PlaygroundRequest{Strategy: strategy.Instance{Name: strategy.DefaultName}}

		testsupport.AssertMetricDelta(t, "mimir_playground_evaluations_total", map[string]string{"result": "on"}, 1, func() {
			require.Equal(t, http.StatusOK, do(t, api, http.MethodPost, "/api/v1/playground", body).Code)
		})
	})
}
