package observability

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// ComponentStatus is the readiness result of one dependency.
type ComponentStatus struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// ReadinessReport is the body of the readiness probe.
type ReadinessReport struct {
	Ready      bool                       `json:"ready"`
	Components map[string]ComponentStatus `json:"components"`
}

// liveness responds with 200 OK while the process can serve HTTP.
// It never looks at dependencies: a broken database must not restart the pod.
func (s *Server) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness runs every checker in parallel within the configured timeout.
// The pod is ready only when all of them pass.
func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout)
	defer cancel()

	report := s.runChecks(ctx)

	w.Header().Set("Content-Type", "application/json")
	if report.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	// The status code is already written; the body is for humans.
	_ = json.NewEncoder(w).Encode(report)
}

func (s *Server) runChecks(ctx context.Context) ReadinessReport {
	report := ReadinessReport{
		Ready:      true,
		Components: make(map[string]ComponentStatus, len(s.checkers)),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, checker := range s.checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()

			start := time.Now()
			err := c.Check(ctx)
			st := ComponentStatus{Status: "up", LatencyMS: time.Since(start).Milliseconds()}

			if err != nil {
				// WARN, not ERROR: the orchestrator retries probes.
				s.logger.Warn("health probe failed",
					slog.String("component", c.Name()),
					slog.String("error", err.Error()),
				)
				st.Status = "down"
				st.Error = err.Error()
			}

			mu.Lock()
			defer mu.Unlock()
			report.Components[c.Name()] = st
			if err != nil {
				report.Ready = false
			}
		}(checker)
	}

	wg.Wait()
	return report
}
