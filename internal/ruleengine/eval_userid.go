package ruleengine

import (
	"fmt"
	"strings"

	"github.com/rafaeljc/mimir/internal/strategy"
)

// hostnameProperty is the context property read by the hostname strategy.
const hostnameProperty = "hostname"

// UserIDEvaluator implements the userWithId allow-list strategy.
type UserIDEvaluator struct{}

// Eval checks if the context userId exists in the compiled set.
func (e *UserIDEvaluator) Eval(data any, input EvaluationInput) (bool, error) {
	userID, ok := input.Value(strategy.FieldUserID)
	if !ok {
		return false, nil
	}
	return inSet(data, userID)
}

// HostnameEvaluator implements the applicationHostname strategy. Hostnames
// compare case-insensitively.
type HostnameEvaluator struct{}

func (e *HostnameEvaluator) Eval(data any, input EvaluationInput) (bool, error) {
	host, ok := input.Value(hostnameProperty)
	if !ok || host == "" {
		return false, nil
	}
	return inSet(data, strings.ToLower(host))
}

func inSet(data any, v string) (bool, error) {
	set, ok := data.(map[string]struct{})
	if !ok {
		return false, fmt.Errorf("invalid strategy data type: expected map[string]struct{}, got %T", data)
	}
	_, found := set[v]
	return found, nil
}
