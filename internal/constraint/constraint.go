package constraint

import (
	"fmt"
	"slices"
	"strings"
)

// Constraint is a condition on one context field that must hold for a
// strategy to apply. Multi-value operators read Values, single-value
// operators (numeric, date, semver) read Value.
type Constraint struct {
	ContextName     string   `json:"contextName"`
	Operator        Operator `json:"operator"`
	Values          []string `json:"values,omitempty"`
	Value           string   `json:"value,omitempty"`
	Inverted        bool     `json:"inverted,omitempty"`
	CaseInsensitive bool     `json:"caseInsensitive,omitempty"`
}

// Option tweaks a constraint built with New.
type Option func(*Constraint)

// WithValues sets the value list used by multi-value operators.
func WithValues(values ...string) Option {
	return func(c *Constraint) { c.Values = values }
}

// WithValue sets the single value used by comparison operators.
func WithValue(value string) Option {
	return func(c *Constraint) { c.Value = value }
}

// Inverted negates the operator result.
func Inverted() Option {
	return func(c *Constraint) { c.Inverted = true }
}

// CaseInsensitive makes string comparisons ignore case.
func CaseInsensitive() Option {
	return func(c *Constraint) { c.CaseInsensitive = true }
}

// New builds a constraint, rejecting operators outside the enumeration with
// an *InvalidOperatorError.
func New(contextName, operator string, opts ...Option) (Constraint, error) {
	op, err := ParseOperator(operator)
	if err != nil {
		return Constraint{}, err
	}

	c := Constraint{ContextName: contextName, Operator: op}
	for _, opt := range opts {
		opt(&c)
	}
	return c, nil
}

// Normalize returns a copy whose value fields match the operator's shape.
// A multi-value operator given only a bare Value gets Values = [Value]; a
// single-value operator given only Values gets Value = Values[0]. The field
// that was originally set is kept as-is.
func Normalize(c Constraint) Constraint {
	n := c
	n.Values = slices.Clone(c.Values)

	if !c.Operator.Valid() {
		return n
	}

	if c.Operator.MultiValue() {
		if len(n.Values) == 0 && c.Value != "" {
			n.Values = []string{c.Value}
		}
		return n
	}

	if n.Value == "" && len(n.Values) > 0 {
		n.Value = n.Values[0]
	}
	return n
}

// IsComplete reports whether the normalized constraint carries the value
// field its operator needs. Unknown operators are never complete.
func IsComplete(c Constraint) bool {
	if !c.Operator.Valid() {
		return false
	}

	n := Normalize(c)
	if n.Operator.MultiValue() {
		return slices.ContainsFunc(n.Values, func(v string) bool {
			return strings.TrimSpace(v) != ""
		})
	}
	return strings.TrimSpace(n.Value) != ""
}

// FilterComplete drops incomplete constraints, keeping the input order.
// It is applied when a strategy is committed, not while it is being edited.
func FilterComplete(cs []Constraint) []Constraint {
	out := make([]Constraint, 0, len(cs))
	for _, c := range cs {
		if IsComplete(c) {
			out = append(out, c)
		}
	}
	return out
}

// MatchValues returns the values the operator compares against, after
// normalization.
func (c Constraint) MatchValues() []string {
	n := Normalize(c)
	if !n.Operator.Valid() || n.Operator.MultiValue() {
		return n.Values
	}
	if n.Value == "" {
		return nil
	}
	return []string{n.Value}
}

// Evaluate tests a context value against the constraint.
func (c Constraint) Evaluate(contextValue string) bool {
	return Matches(c.Operator, c.Inverted, c.CaseInsensitive, c.MatchValues(), contextValue)
}

// Format renders the constraint as a sentence, e.g.
// "userId not is one of (1,2)" or "appVersion is a SemVer greater than 2.0.0".
func Format(c Constraint) string {
	n := Normalize(c)

	val := fmt.Sprintf("(%s)", strings.Join(n.Values, ","))
	if n.Operator.Valid() && !n.Operator.MultiValue() {
		val = n.Value
	}

	not := ""
	if n.Inverted {
		not = "not "
	}
	return fmt.Sprintf("%s %s%s %s", n.ContextName, not, DescriptionFor(n.Operator), val)
}
