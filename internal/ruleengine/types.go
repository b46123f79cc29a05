// Package ruleengine evaluates a strategy instance against a context without
// applying it (the playground). It implements a Strategy pattern: each
// built-in strategy has an Evaluator, selected by definition name, that runs
// over parameters compiled ahead of time.
package ruleengine

import (
	"time"

	"github.com/rafaeljc/mimir/internal/constraint"
	"github.com/rafaeljc/mimir/internal/strategy"
)

// Context holds the attributes of the entity the strategy is evaluated for.
type Context struct {
	UserID        string `json:"userId,omitempty"`
	SessionID     string `json:"sessionId,omitempty"`
	RemoteAddress string `json:"remoteAddress,omitempty"`
	Environment   string `json:"environment,omitempty"`
	AppName       string `json:"appName,omitempty"`
	// CurrentTime is an RFC 3339 timestamp. When empty the evaluation time is used.
	CurrentTime string `json:"currentTime,omitempty"`

	// Properties carries custom context fields (and "hostname" for the
	// applicationHostname strategy).
	Properties map[string]string `json:"properties,omitempty"`
}

// EvaluationInput aggregates everything an evaluation needs.
type EvaluationInput struct {
	Context Context

	// FeatureName is the default rollout group when the strategy sets no groupId.
	FeatureName string

	// Now is the evaluation time, used when the context has no currentTime.
	Now time.Time
}

// Value resolves a context field by name. Standard fields are read from
// their dedicated attributes, anything else from Properties.
func (in EvaluationInput) Value(field string) (string, bool) {
	var v string
	switch field {
	case strategy.FieldUserID:
		v = in.Context.UserID
	case strategy.FieldSessionID:
		v = in.Context.SessionID
	case strategy.FieldRemoteAddress:
		v = in.Context.RemoteAddress
	case strategy.FieldEnvironment:
		v = in.Context.Environment
	case strategy.FieldAppName:
		v = in.Context.AppName
	case strategy.FieldCurrentTime:
		v = in.Context.CurrentTime
		if v == "" && !in.Now.IsZero() {
			v = in.Now.UTC().Format(time.RFC3339)
		}
	default:
		pv, ok := in.Context.Properties[field]
		return pv, ok
	}
	return v, v != ""
}

// Outcome is the tri-state result of a playground evaluation.
type Outcome string

const (
	OutcomeOn  Outcome = "on"
	OutcomeOff Outcome = "off"
	// OutcomeUnknown is returned for strategies the engine cannot evaluate
	// (custom definitions, unknown names, broken parameters).
	OutcomeUnknown Outcome = "unknown"
)

func outcomeOf(b bool) Outcome {
	if b {
		return OutcomeOn
	}
	return OutcomeOff
}

// ConstraintResult is a constraint together with the result it produced.
type ConstraintResult struct {
	constraint.Constraint
	ContextValue string `json:"contextValue"`
	Result       bool   `json:"result"`
}

// SegmentResult is a targeted segment with the results of its constraints.
// Result is true when every constraint holds.
type SegmentResult struct {
	Name        string             `json:"name"`
	Result      bool               `json:"result"`
	Constraints []ConstraintResult `json:"constraints"`
}

// Status tells how far an evaluation got.
type Status string

const (
	// StatusComplete means the strategy produced a definite on or off.
	StatusComplete Status = "complete"
	// StatusIncomplete means the strategy could not be evaluated.
	StatusIncomplete Status = "incomplete"
	// StatusUnevaluated means the instance is disabled.
	StatusUnevaluated Status = "unevaluated"
)

// Evaluation is the playground answer for one strategy instance.
type Evaluation struct {
	ID       string `json:"id"`
	Strategy string `json:"strategy"`
	Disabled bool   `json:"disabled"`
	Status   Status `json:"status"`

	Segments    []SegmentResult `json:"segments,omitempty"`
	SegmentsMet bool            `json:"segmentsMet"`

	Constraints    []ConstraintResult `json:"constraints"`
	ConstraintsMet bool               `json:"constraintsMet"`

	// StrategyResult is the outcome of the strategy parameters alone.
	StrategyResult Outcome `json:"strategyResult"`
	// Enabled combines them: off when a segment or constraint fails,
	// otherwise the strategy result.
	Enabled Outcome `json:"enabled"`
}
