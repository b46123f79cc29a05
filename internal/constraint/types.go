// Package constraint implements the constraint model of a strategy: a test on a
// single context field, the operator catalogue and the operator semantics used
// both for rendering ("userId IS 123") and for dry-run evaluation.
package constraint

import (
	"fmt"
	"slices"
)

// Operator names the comparison a constraint performs.
// The wire format is the upper-case name (e.g. "IN", "NUM_GT").
type Operator string

const (
	OperatorIn         Operator = "IN"
	OperatorNotIn      Operator = "NOT_IN"
	OperatorContains   Operator = "STR_CONTAINS"
	OperatorStartsWith Operator = "STR_STARTS_WITH"
	OperatorEndsWith   Operator = "STR_ENDS_WITH"
	OperatorNumEq      Operator = "NUM_EQ"
	OperatorNumGt      Operator = "NUM_GT"
	OperatorNumGte     Operator = "NUM_GTE"
	OperatorNumLt      Operator = "NUM_LT"
	OperatorNumLte     Operator = "NUM_LTE"
	OperatorDateBefore Operator = "DATE_BEFORE"
	OperatorDateAfter  Operator = "DATE_AFTER"
	OperatorSemverEq   Operator = "SEMVER_EQ"
	OperatorSemverGt   Operator = "SEMVER_GT"
	OperatorSemverLt   Operator = "SEMVER_LT"
)

// Family groups operators that share a value domain.
type Family string

const (
	FamilySet     Family = "set"
	FamilyString  Family = "string"
	FamilyNumeric Family = "numeric"
	FamilyDate    Family = "date"
	FamilySemver  Family = "semver"
)

// operators is the catalogue in display order.
var operators = []Operator{
	OperatorIn,
	OperatorNotIn,
	OperatorContains,
	OperatorStartsWith,
	OperatorEndsWith,
	OperatorNumEq,
	OperatorNumGt,
	OperatorNumGte,
	OperatorNumLt,
	OperatorNumLte,
	OperatorDateBefore,
	OperatorDateAfter,
	OperatorSemverEq,
	OperatorSemverGt,
	OperatorSemverLt,
}

// Operators returns every known operator in catalogue order.
func Operators() []Operator {
	return slices.Clone(operators)
}

// Valid reports whether op belongs to the known enumeration.
func (op Operator) Valid() bool {
	return slices.Contains(operators, op)
}

// Family returns the value domain of the operator, or "" if it is unknown.
func (op Operator) Family() Family {
	switch op {
	case OperatorIn, OperatorNotIn:
		return FamilySet
	case OperatorContains, OperatorStartsWith, OperatorEndsWith:
		return FamilyString
	case OperatorNumEq, OperatorNumGt, OperatorNumGte, OperatorNumLt, OperatorNumLte:
		return FamilyNumeric
	case OperatorDateBefore, OperatorDateAfter:
		return FamilyDate
	case OperatorSemverEq, OperatorSemverGt, OperatorSemverLt:
		return FamilySemver
	default:
		return ""
	}
}

// MultiValue reports whether the operator reads the Values list rather than
// the single Value field.
func (op Operator) MultiValue() bool {
	f := op.Family()
	return f == FamilySet || f == FamilyString
}

// InvalidOperatorError is returned when a constraint names an operator outside
// the known enumeration.
type InvalidOperatorError struct {
	Operator string
}

func (e *InvalidOperatorError) Error() string {
	return fmt.Sprintf("invalid constraint operator %q", e.Operator)
}

// ParseOperator converts a wire name into an Operator.
func ParseOperator(s string) (Operator, error) {
	op := Operator(s)
	if !op.Valid() {
		return "", &InvalidOperatorError{Operator: s}
	}
	return op, nil
}
