package ruleengine

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/rafaeljc/mimir/internal/constraint"
	"github.com/rafaeljc/mimir/internal/strategy"
)

// Engine is the orchestrator for playground evaluations.
type Engine struct {
	evaluators map[string]Evaluator
	logger     *slog.Logger // Dedicated logger instance (DI)
}

// New creates a new Engine.
// If logger is nil, it defaults to slog.Default().
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	rollout := NewPercentageEvaluator()
	return &Engine{
		logger: logger,
		evaluators: map[string]Evaluator{
			strategy.DefaultName:                 &DefaultEvaluator{},
			strategy.NameUserWithID:              &UserIDEvaluator{},
			strategy.NameFlexibleRollout:         rollout,
			strategy.NameGradualRolloutUserID:    rollout,
			strategy.NameGradualRolloutSessionID: rollout,
			strategy.NameGradualRolloutRandom:    rollout,
			strategy.NameRemoteAddress:           &RemoteAddressEvaluator{},
			strategy.NameApplicationHostname:     &HostnameEvaluator{},
		},
	}
}

// Evaluate runs inst, governed by def, against the input. segs are the
// segments the instance targets, resolved by the caller.
//
// Segment and instance constraints are evaluated in their committed form
// (incomplete ones are dropped) and ANDed. The strategy itself is evaluated
// only for built-in definitions; custom or unknown strategies and broken
// parameters yield OutcomeUnknown instead of failing the whole evaluation.
// A disabled instance still reports its constraints but its strategy is
// left unevaluated, so it can at most be unknown.
func (e *Engine) Evaluate(inst strategy.Instance, def strategy.Definition, input EvaluationInput, segs ...strategy.Segment) Evaluation {
	ev := Evaluation{
		ID:          uuid.NewString(),
		Strategy:    inst.Name,
		Disabled:    inst.Disabled,
		SegmentsMet: true,
	}

	for _, name := range inst.Segments {
		seg, ok := findSegment(segs, name)
		if !ok {
			e.logger.Warn("skipping unknown segment", "segment", name, "strategy", inst.Name)
			continue
		}
		results, met := evaluateConstraints(seg.Constraints, input)
		ev.Segments = append(ev.Segments, SegmentResult{Name: seg.Name, Result: met, Constraints: results})
		if !met {
			ev.SegmentsMet = false
		}
	}

	ev.Constraints, ev.ConstraintsMet = evaluateConstraints(inst.Constraints, input)

	if inst.Disabled {
		ev.StrategyResult = OutcomeUnknown
		ev.Status = StatusUnevaluated
	} else {
		ev.StrategyResult = e.evaluateStrategy(inst, def, input)
		ev.Status = StatusComplete
		if ev.StrategyResult == OutcomeUnknown {
			ev.Status = StatusIncomplete
		}
	}

	ev.Enabled = ev.StrategyResult
	if !ev.ConstraintsMet || !ev.SegmentsMet {
		ev.Enabled = OutcomeOff
	}
	return ev
}

func evaluateConstraints(cs []constraint.Constraint, input EvaluationInput) ([]ConstraintResult, bool) {
	results := make([]ConstraintResult, 0, len(cs))
	met := true
	for _, c := range constraint.FilterComplete(cs) {
		value, _ := input.Value(c.ContextName)
		result := c.Evaluate(value)
		results = append(results, ConstraintResult{
			Constraint:   c,
			ContextValue: value,
			Result:       result,
		})
		if !result {
			met = false
		}
	}
	return results, met
}

func findSegment(segs []strategy.Segment, name string) (strategy.Segment, bool) {
	for _, seg := range segs {
		if seg.Name == name {
			return seg, true
		}
	}
	return strategy.Segment{}, false
}

func (e *Engine) evaluateStrategy(inst strategy.Instance, def strategy.Definition, input EvaluationInput) Outcome {
	if def.Editable {
		return OutcomeUnknown
	}

	evaluator, exists := e.evaluators[inst.Name]
	if !exists {
		e.logger.Warn("skipping unknown strategy", "strategy", inst.Name)
		return OutcomeUnknown
	}

	data, err := Compile(inst)
	if err != nil {
		e.logger.Error("strategy compilation failed", "error", err, "strategy", inst.Name)
		return OutcomeUnknown
	}

	match, err := evaluator.Eval(data, input)
	if err != nil {
		// Fail Open: log and report unknown rather than aborting the evaluation.
		e.logger.Error("strategy evaluation failed", "error", err, "strategy", inst.Name)
		return OutcomeUnknown
	}
	return outcomeOf(match)
}
