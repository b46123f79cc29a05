package ruleengine

import (
	"fmt"
	"math/rand/v2"

	"github.com/spaolacci/murmur3"

	"github.com/rafaeljc/mimir/internal/strategy"
)

// rolloutData is the compiled form of the gradual rollout strategies.
type rolloutData struct {
	// Percentage is in [0,100]; fractions are allowed but buckets are whole.
	Percentage float64
	// Stickiness names the context field that is hashed, or one of
	// "default" (userId, then sessionId, then random) and "random".
	Stickiness string
	// GroupID salts the hash; empty means the feature name.
	GroupID string
}

// PercentageEvaluator implements gradual rollouts.
// It uses consistent hashing (Murmur3) so the same stickiness value always
// lands in the same bucket for a given group.
type PercentageEvaluator struct {
	// random returns a bucket in [1,100] for random stickiness.
	random func() uint32
}

// NewPercentageEvaluator returns an evaluator drawing random buckets from math/rand.
func NewPercentageEvaluator() *PercentageEvaluator {
	return &PercentageEvaluator{random: func() uint32 { return rand.Uint32N(100) + 1 }}
}

// Eval computes the bucket of the stickiness value and compares it with the
// rollout percentage.
//
// Thread-Safety: stateless apart from the random source.
func (e *PercentageEvaluator) Eval(data any, input EvaluationInput) (bool, error) {
	d, ok := data.(rolloutData)
	if !ok {
		return false, fmt.Errorf("invalid strategy data type: expected rolloutData, got %T", data)
	}

	if d.Percentage <= 0 {
		return false, nil
	}

	subject, ok := e.stickinessValue(d.Stickiness, input)
	if !ok {
		// Fail closed: without the sticky attribute there is nothing to hash.
		return false, nil
	}

	var bucket uint32
	if subject == "" {
		bucket = e.random()
	} else {
		groupID := d.GroupID
		if groupID == "" {
			groupID = input.FeatureName
		}
		bucket = NormalizedValue(subject, groupID)
	}

	return float64(bucket) <= d.Percentage, nil
}

// stickinessValue returns the value to hash. An empty value with ok=true
// means a random bucket is used.
func (e *PercentageEvaluator) stickinessValue(stickiness string, input EvaluationInput) (string, bool) {
	switch stickiness {
	case strategy.StickinessRandom:
		return "", true
	case strategy.StickinessDefault:
		if v, ok := input.Value(strategy.FieldUserID); ok {
			return v, true
		}
		if v, ok := input.Value(strategy.FieldSessionID); ok {
			return v, true
		}
		return "", true
	default:
		v, ok := input.Value(stickiness)
		if !ok || v == "" {
			return "", false
		}
		return v, true
	}
}

// NormalizedValue maps (groupID, id) to a bucket in [1,100].
// Format of the hashed key: "<groupID>:<id>".
func NormalizedValue(id, groupID string) uint32 {
	return murmur3.Sum32([]byte(groupID+":"+id))%100 + 1
}
