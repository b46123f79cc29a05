package controlapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/rafaeljc/mimir/internal/logger"
	"github.com/rafaeljc/mimir/internal/observability"
	"github.com/rafaeljc/mimir/internal/plan"
	"github.com/rafaeljc/mimir/internal/ruleengine"
	"github.com/rafaeljc/mimir/internal/strategy"
)

// handleDerivePlan processes POST /api/v1/plans.
//
// Plans are memoized by plan.Key: the in-process cache is checked first,
// then the shared Redis cache, and only then is the plan derived. A derived
// plan is written back to both levels. Cache failures are logged and never
// fail the request since the plan can always be recomputed.
func (a *API) handleDerivePlan(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req PlanRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		renderError(w, r, http.StatusBadRequest, codeInvalidJSON, "Invalid JSON payload: "+err.Error())
		return
	}
	if errResp := validateStruct(a.validate, &req); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	def, ok := a.registry.Definition(req.Strategy.Name)
	if !ok {
		renderError(w, r, http.StatusNotFound, codeNotFound, "Strategy not found")
		return
	}

	segs, missing := a.registry.ResolveSegments(req.Strategy.Segments)
	if len(missing) > 0 {
		log.Debug("plan targets unknown segments", slog.Any("segments", missing))
	}

	key := plan.Key(req.Strategy, def, req.Committed, segs...)
	p, source := a.lookupPlan(r.Context(), log, key)
	if p == nil {
		p = a.derivePlan(req.Strategy, def, req.Committed, segs)
		source = sourceDerived
		a.storePlan(r.Context(), log, key, p)
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, PlanResponse{Key: key, Source: source, Plan: *p})
}

// lookupPlan reads L1 then L2. An L2 hit is promoted to L1.
func (a *API) lookupPlan(ctx context.Context, log *slog.Logger, key string) (*plan.Plan, string) {
	if a.l1 != nil {
		if p, ok := a.l1.Get(key); ok {
			return p, sourceMemory
		}
	}

	if a.l2 != nil {
		p, ok, err := a.l2.GetPlan(ctx, key)
		if err != nil {
			log.Warn("failed to read plan from shared cache", slog.String("key", key), slog.String("error", err.Error()))
			return nil, ""
		}
		if ok {
			if a.l1 != nil {
				a.l1.Set(key, p)
			}
			return p, sourceRedis
		}
	}

	return nil, ""
}

func (a *API) storePlan(ctx context.Context, log *slog.Logger, key string, p *plan.Plan) {
	if a.l1 != nil {
		a.l1.Set(key, p)
	}
	if a.l2 != nil {
		if err := a.l2.SetPlan(ctx, key, p); err != nil {
			log.Warn("failed to write plan to shared cache", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
}

// derivePlan runs the deriver and records its metrics.
func (a *API) derivePlan(inst strategy.Instance, def strategy.Definition, committed bool, segs []strategy.Segment) *plan.Plan {
	start := time.Now()

	var p plan.Plan
	mode := "draft"
	if committed {
		mode = "committed"
		p = plan.DeriveCommitted(inst, def, segs...)
	} else {
		p = plan.Derive(inst, def, segs...)
	}

	observability.PlanDerivationDuration.Observe(time.Since(start).Seconds())
	observability.PlanDerivations.WithLabelValues(mode).Inc()
	for _, o := range p.Omitted {
		observability.PlanOmissions.WithLabelValues(string(o.Kind)).Inc()
	}
	return &p
}

// handlePlayground processes POST /api/v1/playground.
// Unknown strategies are not an error: the engine evaluates their
// constraints and reports the strategy result as unknown.
func (a *API) handlePlayground(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req PlaygroundRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		renderError(w, r, http.StatusBadRequest, codeInvalidJSON, "Invalid JSON payload: "+err.Error())
		return
	}
	if errResp := validateStruct(a.validate, &req); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	def := a.registry.Lookup(req.Strategy.Name, strategy.Definition{Name: req.Strategy.Name})
	segs, _ := a.registry.ResolveSegments(req.Strategy.Segments)

	ev := a.engine.Evaluate(req.Strategy, def, ruleengine.EvaluationInput{
		Context:     req.Context,
		FeatureName: req.FeatureName,
		Now:         a.now(),
	}, segs...)
	observability.PlaygroundEvaluations.WithLabelValues(string(ev.Enabled)).Inc()

	log.Debug("playground evaluation",
		slog.String("evaluation_id", ev.ID),
		slog.String("strategy", ev.Strategy),
		slog.String("enabled", string(ev.Enabled)),
		slog.String("status", string(ev.Status)),
	)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ev)
}
