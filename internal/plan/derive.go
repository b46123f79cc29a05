package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rafaeljc/mimir/internal/constraint"
	"github.com/rafaeljc/mimir/internal/parameter"
	"github.com/rafaeljc/mimir/internal/strategy"
)

// Derive builds the execution plan of inst as governed by def. segs are the
// segments the instance targets, resolved by the caller; a name in
// inst.Segments with no matching entry is recorded as an omission.
// Incomplete constraints are kept, which is what an editor shows while a
// strategy is being changed. Derive has no side effects and equal inputs
// yield deep-equal plans.
func Derive(inst strategy.Instance, def strategy.Definition, segs ...strategy.Segment) Plan {
	return derive(inst, def, segs, false)
}

// DeriveCommitted derives the plan a saved strategy evaluates with:
// constraints whose operator is known but whose values are missing are
// dropped. Constraints with an unknown operator are still reported as
// omissions.
func DeriveCommitted(inst strategy.Instance, def strategy.Definition, segs ...strategy.Segment) Plan {
	return derive(inst, def, segs, true)
}

func derive(inst strategy.Instance, def strategy.Definition, segs []strategy.Segment, committed bool) Plan {
	p := Plan{
		Constraints: make([]ConstraintDescription, 0, len(inst.Constraints)),
		Population:  make([]PopulationDescriptor, 0, len(def.Parameters)),
		Standard:    inst.Name == strategy.DefaultName,
		Disabled:    inst.Disabled,
	}

	for i, name := range inst.Segments {
		seg, ok := findSegment(segs, name)
		if !ok {
			p.Omitted = append(p.Omitted, Omission{
				Kind:   OmittedSegment,
				Name:   name,
				Index:  i,
				Reason: fmt.Sprintf("unknown segment %q", name),
			})
			continue
		}
		sd := SegmentDescription{Name: seg.Name}
		sd.Constraints, p.Omitted = describeConstraints(seg.Constraints, seg.Name, committed, p.Omitted)
		p.Segments = append(p.Segments, sd)
	}

	p.Constraints, p.Omitted = describeConstraints(inst.Constraints, "", committed, p.Omitted)

	hasConstraints := len(p.Constraints) > 0
	for _, sd := range p.Segments {
		hasConstraints = hasConstraints || len(sd.Constraints) > 0
	}
	for i, pd := range def.Parameters {
		raw, ok := inst.Parameters[pd.Name]
		if !ok {
			continue
		}
		if !def.Editable && (pd.Name == "stickiness" || pd.Name == "groupId") {
			continue
		}

		d, ok := describeParameter(pd, raw, hasConstraints)
		if !ok {
			p.Omitted = append(p.Omitted, Omission{
				Kind:   OmittedParameter,
				Name:   pd.Name,
				Index:  i,
				Reason: fmt.Sprintf("unsupported parameter type %q", pd.Type),
			})
			continue
		}
		p.Population = append(p.Population, d)
	}

	return p
}

// describeConstraints renders cs in order. Unknown operators become
// omissions. In committed mode, constraints missing their values are
// skipped without an omission, since saving drops them.
func describeConstraints(cs []constraint.Constraint, segment string, committed bool, omitted []Omission) ([]ConstraintDescription, []Omission) {
	out := make([]ConstraintDescription, 0, len(cs))
	for i, c := range cs {
		if !c.Operator.Valid() {
			omitted = append(omitted, Omission{
				Kind:    OmittedConstraint,
				Name:    c.ContextName,
				Index:   i,
				Segment: segment,
				Reason:  fmt.Sprintf("unknown operator %q", c.Operator),
			})
			continue
		}
		if committed && !constraint.IsComplete(c) {
			continue
		}
		out = append(out, describeConstraint(c))
	}
	return out, omitted
}

func findSegment(segs []strategy.Segment, name string) (strategy.Segment, bool) {
	for _, seg := range segs {
		if seg.Name == name {
			return seg, true
		}
	}
	return strategy.Segment{}, false
}

func describeConstraint(c constraint.Constraint) ConstraintDescription {
	values := c.MatchValues()
	if values == nil {
		values = []string{}
	}
	return ConstraintDescription{
		ContextName:     c.ContextName,
		OperatorLabel:   constraint.LabelFor(c.Operator),
		Values:          values,
		Inverted:        c.Inverted,
		CaseInsensitive: c.CaseInsensitive,
	}
}

func describeParameter(pd strategy.ParameterDefinition, raw any, hasConstraints bool) (PopulationDescriptor, bool) {
	switch pd.Name {
	case "rollout", "Rollout":
		return describePercentage(pd.Name, parameter.Interpret(parameter.TypePercentage, raw).(parameter.Percentage), hasConstraints), true
	case "userIds", "UserIds":
		return chips(pd.Name, CategoryUser, raw), true
	case "hostNames", "HostNames":
		return chips(pd.Name, CategoryHost, raw), true
	case "IPs":
		return chips(pd.Name, CategoryIP, raw), true
	}

	switch v := parameter.Interpret(pd.Type, raw).(type) {
	case parameter.Percentage:
		return describePercentage(pd.Name, v, hasConstraints), true
	case parameter.List:
		return PopulationDescriptor{Kind: KindList, Name: pd.Name, Type: parameter.TypeList, Category: pd.Name, Values: v.Items, Valid: true}, true
	case parameter.Boolean:
		return PopulationDescriptor{
			Kind:  KindBoolean,
			Name:  pd.Name,
			Type:  parameter.TypeBoolean,
			Value: v.Raw,
			Valid: v.OK(),
			Text:  fmt.Sprintf("%s must be %s", pd.Name, v.Raw),
		}, true
	case parameter.Number:
		return PopulationDescriptor{
			Kind:  KindNumber,
			Name:  pd.Name,
			Type:  parameter.TypeNumber,
			Value: v.Raw,
			Valid: v.OK(),
			Text:  fmt.Sprintf("%s is set to %s", pd.Name, v.Raw),
		}, true
	case parameter.String:
		return PopulationDescriptor{
			Kind:  KindText,
			Name:  pd.Name,
			Type:  parameter.TypeString,
			Value: v.Value,
			Valid: true,
			Text:  fmt.Sprintf("%s is set to %s", pd.Name, v.Value),
		}, true
	default:
		return PopulationDescriptor{}, false
	}
}

func describePercentage(name string, pct parameter.Percentage, hasConstraints bool) PopulationDescriptor {
	who := ""
	if hasConstraints {
		who = "who match constraints "
	}
	return PopulationDescriptor{
		Kind:       KindPercentage,
		Name:       name,
		Type:       parameter.TypePercentage,
		Percentage: pct.Percent,
		Value:      pct.Raw,
		Valid:      pct.OK() && pct.InRange(),
		Text:       fmt.Sprintf("%s%% of your user base %sis included.", strconv.FormatFloat(pct.Percent, 'f', -1, 64), who),
	}
}

func chips(name, category string, raw any) PopulationDescriptor {
	l := parameter.Interpret(parameter.TypeList, raw).(parameter.List)
	return PopulationDescriptor{
		Kind:     KindChips,
		Name:     name,
		Type:     parameter.TypeList,
		Category: category,
		Values:   l.Items,
		Valid:    true,
	}
}

// Key returns a stable digest of the derivation inputs, suitable as a
// memoization key. Map keys are sorted by encoding/json, so equal inputs give
// equal keys regardless of map iteration order. Segment contents are part of
// the key so editing a segment invalidates every plan targeting it.
func Key(inst strategy.Instance, def strategy.Definition, committed bool, segs ...strategy.Segment) string {
	payload := struct {
		Instance   strategy.Instance   `json:"i"`
		Definition strategy.Definition `json:"d"`
		Committed  bool                `json:"c"`
		Segments   []strategy.Segment  `json:"s,omitempty"`
	}{inst, def, committed, segs}

	// Marshal only fails on unsupported values (channels, funcs), which
	// parameters decoded from JSON never hold.
	b, err := json.Marshal(payload)
	if err != nil {
		b = []byte(fmt.Sprintf("%#v", payload))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
