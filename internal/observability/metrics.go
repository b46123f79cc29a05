package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace defines the global prefix for all metrics (e.g., mimir_...).
const namespace = "mimir"

// fastBuckets covers in-process work such as plan derivation.
// Range: 0.1ms to 100ms.
var fastBuckets = []float64{.0001, .0005, .001, .002, .005, .010, .025, .050, .100}

var (
	// -------------------------------------------------------------------------
	// CONTROL PLANE (HTTP)
	// -------------------------------------------------------------------------

	// ControlPlaneReqDuration measures the latency of HTTP requests.
	// Metric: mimir_control_plane_http_handling_seconds
	ControlPlaneReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "control_plane",
		Name:      "http_handling_seconds",
		Help:      "Time taken to handle HTTP requests in Control Plane",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	// ControlPlaneReqTotal counts the total number of HTTP requests.
	// Metric: mimir_control_plane_http_requests_total
	ControlPlaneReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "control_plane",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests in Control Plane",
	}, []string{"method", "path", "code"})

	// -------------------------------------------------------------------------
	// PLANS
	// -------------------------------------------------------------------------

	// PlanDerivations counts plans computed by the deriver (cache misses).
	// mode is "draft" or "committed".
	PlanDerivations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "plan",
		Name:      "derivations_total",
		Help:      "Total execution plans derived",
	}, []string{"mode"})

	// PlanDerivationDuration measures time spent inside the deriver.
	PlanDerivationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "plan",
		Name:      "derivation_seconds",
		Help:      "Time taken to derive an execution plan",
		Buckets:   fastBuckets,
	})

	// PlanOmissions counts constraints and parameters left out of derived plans.
	PlanOmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "plan",
		Name:      "omissions_total",
		Help:      "Total constraints or parameters omitted from derived plans",
	}, []string{"kind"})

	// --- Cache L1 Metrics (Otter) ---

	PlanCacheL1Hits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "plan_cache",
		Name:      "l1_hits_total",
		Help:      "Total L1 plan cache hits (in-memory)",
	})

	PlanCacheL1Misses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "plan_cache",
		Name:      "l1_misses_total",
		Help:      "Total L1 plan cache misses",
	})

	// PlanCacheL1Evictions tracks items removed due to capacity pressure.
	PlanCacheL1Evictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "plan_cache",
		Name:      "l1_evictions_total",
		Help:      "Total items evicted due to capacity pressure",
	})

	// Otter tracks item count, not byte size.
	PlanCacheL1Items = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "plan_cache",
		Name:      "l1_items_count",
		Help:      "Current number of items in the L1 plan cache",
	})

	// PlanCacheL1Dropped tracks writes rejected by the admission policy.
	PlanCacheL1Dropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "plan_cache",
		Name:      "l1_dropped_total",
		Help:      "Total sets dropped by the L1 cache",
	})

	// --- Cache L2 Metrics (Redis) ---

	PlanCacheL2Hits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "plan_cache",
		Name:      "l2_hits_total",
		Help:      "Total L2 plan cache hits (Redis)",
	})

	PlanCacheL2Misses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "plan_cache",
		Name:      "l2_misses_total",
		Help:      "Total L2 plan cache misses",
	})

	// -------------------------------------------------------------------------
	// PLAYGROUND
	// -------------------------------------------------------------------------

	// PlaygroundEvaluations counts dry-run evaluations by final result (on, off, unknown).
	PlaygroundEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "playground_evaluations_total",
		Help:      "Total playground evaluations by result",
	}, []string{"result"})

	// -------------------------------------------------------------------------
	// SYNCER / REGISTRY
	// -------------------------------------------------------------------------

	// SyncerReloads counts registry reloads. status is "success" or "fail".
	SyncerReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "syncer",
		Name:      "reloads_total",
		Help:      "Total registry reloads from the store",
	}, []string{"status"})

	// SyncerReloadDuration measures a full reload (store read + swap).
	// Metric: mimir_syncer_reload_duration_seconds
	SyncerReloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "syncer",
		Name:      "reload_duration_seconds",
		Help:      "Time taken to reload the registry from the store",
		Buckets:   prometheus.DefBuckets,
	})

	SyncerInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "syncer",
		Name:      "invalidations_total",
		Help:      "Total registry change events received via PubSub",
	})

	RegistryDefinitions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "registry_definitions_count",
		Help:      "Current number of custom strategy definitions in the registry",
	})

	RegistryContextFields = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "registry_context_fields_count",
		Help:      "Current number of custom context fields in the registry",
	})

	RegistrySegments = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "registry_segments_count",
		Help:      "Current number of segments in the registry",
	})

	// -------------------------------------------------------------------------
	// DATABASE POOL
	// -------------------------------------------------------------------------

	// DatabasePoolConnections reports pool state: max, total, idle, in_use.
	DatabasePoolConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "database_pool",
		Name:      "connections",
		Help:      "Current number of database pool connections by state",
	}, []string{"state"})

	DatabasePoolAcquireCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "database_pool",
		Name:      "acquire_count_total",
		Help:      "Cumulative count of successful connection acquires",
	})

	DatabasePoolAcquireDuration = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "database_pool",
		Name:      "acquire_duration_seconds_total",
		Help:      "Cumulative time spent acquiring connections",
	})

	// DatabasePoolWaitCount counts acquires that had to wait for a free connection.
	DatabasePoolWaitCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "database_pool",
		Name:      "wait_count_total",
		Help:      "Cumulative count of acquires that waited for a connection",
	})

	// -------------------------------------------------------------------------
	// REDIS POOL
	// -------------------------------------------------------------------------

	// RedisPoolConnections reports pool state: total, idle, stale.
	RedisPoolConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "redis_pool",
		Name:      "connections",
		Help:      "Current number of Redis pool connections by state",
	}, []string{"state"})

	RedisPoolHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "redis_pool",
		Name:      "hits_total",
		Help:      "Times a free connection was found in the pool",
	})

	RedisPoolMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "redis_pool",
		Name:      "misses_total",
		Help:      "Times a free connection was NOT found in the pool",
	})

	RedisPoolTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "redis_pool",
		Name:      "timeouts_total",
		Help:      "Times a wait for a pool connection timed out",
	})
)
