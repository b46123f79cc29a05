package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafaeljc/mimir/internal/observability"
)

// RunPoolMonitor periodically exports pool statistics to Prometheus until ctx is cancelled.
// It blocks; run it in its own goroutine.
func RunPoolMonitor(ctx context.Context, pool *pgxpool.Pool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// pgx reports cumulative counters; keep the last snapshot to export deltas.
	last := recordPoolStats(pool.Stat(), poolCounters{})

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			last = recordPoolStats(pool.Stat(), last)
		}
	}
}

type poolCounters struct {
	acquireCount    int64
	acquireDuration time.Duration
	waitCount       int64
}

// recordPoolStats updates the gauges and adds the counter growth since prev.
func recordPoolStats(stat *pgxpool.Stat, prev poolCounters) poolCounters {
	observability.DatabasePoolConnections.WithLabelValues("max").Set(float64(stat.MaxConns()))
	observability.DatabasePoolConnections.WithLabelValues("total").Set(float64(stat.TotalConns()))
	observability.DatabasePoolConnections.WithLabelValues("idle").Set(float64(stat.IdleConns()))
	observability.DatabasePoolConnections.WithLabelValues("in_use").Set(float64(stat.AcquiredConns()))

	cur := poolCounters{
		acquireCount:    stat.AcquireCount(),
		acquireDuration: stat.AcquireDuration(),
		waitCount:       stat.EmptyAcquireCount(),
	}

	if d := cur.acquireCount - prev.acquireCount; d > 0 {
		observability.DatabasePoolAcquireCount.Add(float64(d))
	}
	if d := cur.acquireDuration - prev.acquireDuration; d > 0 {
		observability.DatabasePoolAcquireDuration.Add(d.Seconds())
	}
	if d := cur.waitCount - prev.waitCount; d > 0 {
		observability.DatabasePoolWaitCount.Add(float64(d))
	}

	return cur
}
