package ruleengine

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/rafaeljc/mimir/internal/parameter"
	"github.com/rafaeljc/mimir/internal/strategy"
)

const (
	// MaxListSize limits the elements of a list parameter compiled for
	// evaluation. Larger allow-lists belong in a custom context field.
	MaxListSize = 10_000
)

// Compile turns the raw parameters of a built-in strategy instance into the
// data its Evaluator expects. Strategies without an evaluator compile to nil.
func Compile(inst strategy.Instance) (any, error) {
	switch inst.Name {
	case strategy.DefaultName:
		return struct{}{}, nil
	case strategy.NameUserWithID:
		return compileSet(inst, "userIds", false)
	case strategy.NameApplicationHostname:
		return compileSet(inst, "hostNames", true)
	case strategy.NameRemoteAddress:
		return compileAddresses(inst)
	case strategy.NameFlexibleRollout:
		return compileRollout(inst, "rollout", stringParam(inst, "stickiness"))
	case strategy.NameGradualRolloutUserID:
		return compileRollout(inst, "percentage", strategy.FieldUserID)
	case strategy.NameGradualRolloutSessionID:
		return compileRollout(inst, "percentage", strategy.FieldSessionID)
	case strategy.NameGradualRolloutRandom:
		return compileRollout(inst, "percentage", strategy.StickinessRandom)
	default:
		return nil, nil
	}
}

func stringParam(inst strategy.Instance, name string) string {
	return strings.TrimSpace(parameter.Text(inst.Parameters[name]))
}

func listParam(inst strategy.Instance, name string) ([]string, error) {
	l := parameter.Interpret(parameter.TypeList, inst.Parameters[name]).(parameter.List)
	if len(l.Items) > MaxListSize {
		return nil, fmt.Errorf("%s exceeds maximum size: %d > %d", name, len(l.Items), MaxListSize)
	}
	return l.Items, nil
}

// compileSet builds a map[string]struct{} for O(1) membership checks.
func compileSet(inst strategy.Instance, name string, fold bool) (map[string]struct{}, error) {
	items, err := listParam(inst, name)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		if fold {
			it = strings.ToLower(it)
		}
		set[it] = struct{}{}
	}
	return set, nil
}

// compileAddresses accepts plain addresses and CIDR prefixes. Entries that
// are neither are ignored, as an SDK would.
func compileAddresses(inst strategy.Instance) (addressData, error) {
	items, err := listParam(inst, "IPs")
	if err != nil {
		return addressData{}, err
	}

	data := addressData{exact: make(map[string]struct{}, len(items))}
	for _, it := range items {
		if p, err := netip.ParsePrefix(it); err == nil {
			data.prefixes = append(data.prefixes, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(it); err == nil {
			data.exact[a.Unmap().String()] = struct{}{}
		}
	}
	return data, nil
}

func compileRollout(inst strategy.Instance, name, stickiness string) (rolloutData, error) {
	pct := parameter.Interpret(parameter.TypePercentage, inst.Parameters[name]).(parameter.Percentage)
	if !pct.OK() {
		return rolloutData{}, fmt.Errorf("%s: %q is not a number", name, pct.Raw)
	}
	if !pct.InRange() {
		return rolloutData{}, fmt.Errorf("%s must be between 0 and 100, got %v", name, pct.Percent)
	}

	if stickiness == "" {
		stickiness = strategy.StickinessDefault
	}
	return rolloutData{
		Percentage: pct.Percent,
		Stickiness: stickiness,
		GroupID:    stringParam(inst, "groupId"),
	}, nil
}
