package strategy

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rafaeljc/mimir/internal/constraint"
	"github.com/rafaeljc/mimir/internal/parameter"
)

// Violation is a single problem found in a strategy instance. Field points at
// the offending part, e.g. "constraints[1].operator" or "parameters.rollout".
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

// ValidateInstance checks an instance against its definition and the context
// fields known to reg. It never fails; an empty result means the instance can
// be committed as-is. A nil registry skips the context field checks.
func ValidateInstance(inst Instance, def Definition, reg *Registry) []Violation {
	var out []Violation

	for i, c := range inst.Constraints {
		out = append(out, validateConstraint(i, c, reg)...)
	}

	seen := make(map[string]struct{}, len(inst.Segments))
	for i, name := range inst.Segments {
		field := fmt.Sprintf("segments[%d]", i)
		if _, dup := seen[name]; dup {
			out = append(out, Violation{Field: field, Message: fmt.Sprintf("segment %q is listed twice", name)})
			continue
		}
		seen[name] = struct{}{}
		if strings.TrimSpace(name) == "" {
			out = append(out, Violation{Field: field, Message: "segment name is required"})
			continue
		}
		if reg == nil {
			continue
		}
		if _, ok := reg.Segment(name); !ok {
			out = append(out, Violation{Field: field, Message: fmt.Sprintf("unknown segment %q", name)})
		}
	}

	for _, p := range def.Parameters {
		out = append(out, validateParameter(inst, p, reg)...)
	}

	return out
}

// ValidateSegment checks the constraints of a segment the way instance
// constraints are checked.
func ValidateSegment(seg Segment, reg *Registry) []Violation {
	var out []Violation
	for i, c := range seg.Constraints {
		out = append(out, validateConstraint(i, c, reg)...)
	}
	return out
}

// ValidateConstraint checks a single constraint, reporting violations with
// field paths relative to the constraint itself.
func ValidateConstraint(c constraint.Constraint, reg *Registry) []Violation {
	vs := validateConstraint(-1, c, reg)
	for i := range vs {
		vs[i].Field = strings.TrimPrefix(vs[i].Field, ".")
	}
	return vs
}

func validateConstraint(index int, c constraint.Constraint, reg *Registry) []Violation {
	prefix := ""
	if index >= 0 {
		prefix = fmt.Sprintf("constraints[%d]", index)
	}
	field := func(name string) string { return prefix + "." + name }

	var out []Violation

	if strings.TrimSpace(c.ContextName) == "" {
		out = append(out, Violation{Field: field("contextName"), Message: "context field is required"})
	}

	if _, err := constraint.ParseOperator(string(c.Operator)); err != nil {
		// Nothing else can be said about the values of an unknown operator.
		return append(out, Violation{Field: field("operator"), Message: err.Error()})
	}

	if !constraint.IsComplete(c) {
		valueField := "values"
		if !c.Operator.MultiValue() {
			valueField = "value"
		}
		out = append(out, Violation{Field: field(valueField), Message: fmt.Sprintf("operator %s requires a non-empty %s", c.Operator, valueField)})
	}

	if reg == nil || c.ContextName == "" {
		return out
	}

	cf, ok := reg.ContextField(c.ContextName)
	if !ok {
		return append(out, Violation{Field: field("contextName"), Message: fmt.Sprintf("unknown context field %q", c.ContextName)})
	}

	if len(cf.LegalValues) > 0 {
		for _, v := range c.MatchValues() {
			if !slices.Contains(cf.LegalValues, v) {
				out = append(out, Violation{Field: field("values"), Message: fmt.Sprintf("%q is not a legal value for %s", v, cf.Name)})
			}
		}
	}

	return out
}

func validateParameter(inst Instance, p ParameterDefinition, reg *Registry) []Violation {
	path := "parameters." + p.Name
	raw, present := inst.Parameters[p.Name]

	if !present || parameter.Text(raw) == "" {
		// Empty percentages read as 0, so only other types can be missing.
		if p.Required && p.Type != parameter.TypePercentage {
			return []Violation{{Field: path, Message: "parameter is required"}}
		}
		if !present {
			return nil
		}
	}

	v := parameter.Interpret(p.Type, raw)
	switch tv := v.(type) {
	case nil:
		return []Violation{{Field: path, Message: fmt.Sprintf("unsupported parameter type %q", p.Type)}}
	case parameter.Percentage:
		if !tv.OK() {
			return []Violation{{Field: path, Message: fmt.Sprintf("%q is not a number", tv.Raw)}}
		}
		if !tv.InRange() {
			return []Violation{{Field: path, Message: "percentage must be between 0 and 100"}}
		}
	case parameter.Number:
		if !tv.OK() && tv.Raw != "" {
			return []Violation{{Field: path, Message: fmt.Sprintf("%q is not a non-negative integer", tv.Raw)}}
		}
	case parameter.Boolean:
		if !tv.OK() && tv.Raw != "" {
			return []Violation{{Field: path, Message: fmt.Sprintf("%q must be \"true\" or \"false\"", tv.Raw)}}
		}
	case parameter.String:
		if p.Name == "stickiness" && reg != nil {
			return validateStickiness(path, tv.Value, reg)
		}
	}

	return nil
}

func validateStickiness(path, value string, reg *Registry) []Violation {
	if value == "" || value == StickinessDefault || value == StickinessRandom {
		return nil
	}
	cf, ok := reg.ContextField(value)
	if !ok {
		return []Violation{{Field: path, Message: fmt.Sprintf("unknown context field %q", value)}}
	}
	if !cf.Stickiness {
		return []Violation{{Field: path, Message: fmt.Sprintf("context field %q cannot be used for stickiness", value)}}
	}
	return nil
}
