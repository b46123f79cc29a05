package constraint

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// labels is the canonical short form shown next to the context field name.
var labels = map[Operator]string{
	OperatorIn:         "IS",
	OperatorNotIn:      "IS NOT",
	OperatorContains:   "contains",
	OperatorStartsWith: "starts with",
	OperatorEndsWith:   "ends with",
	OperatorNumEq:      "=",
	OperatorNumGt:      ">",
	OperatorNumGte:     ">=",
	OperatorNumLt:      "<",
	OperatorNumLte:     "<=",
	OperatorDateBefore: "before",
	OperatorDateAfter:  "after",
	OperatorSemverEq:   "=",
	OperatorSemverGt:   ">",
	OperatorSemverLt:   "<",
}

var descriptions = map[Operator]string{
	OperatorIn:         "is one of",
	OperatorNotIn:      "is not one of",
	OperatorContains:   "is a string that contains",
	OperatorStartsWith: "is a string that starts with",
	OperatorEndsWith:   "is a string that ends with",
	OperatorNumEq:      "is a number equal to",
	OperatorNumGt:      "is a number greater than",
	OperatorNumGte:     "is a number greater than or equal to",
	OperatorNumLt:      "is a number less than",
	OperatorNumLte:     "is a number less than or equal to",
	OperatorDateBefore: "is a date before",
	OperatorDateAfter:  "is a date after",
	OperatorSemverEq:   "is a SemVer equal to",
	OperatorSemverGt:   "is a SemVer greater than",
	OperatorSemverLt:   "is a SemVer less than",
}

// LabelFor returns the short label of an operator ("IS", ">", "before").
// Unknown operators are echoed back unchanged.
func LabelFor(op Operator) string {
	if l, ok := labels[op]; ok {
		return l
	}
	return string(op)
}

// DescriptionFor returns the spelled-out form of an operator ("is one of").
// Unknown operators are echoed back unchanged.
func DescriptionFor(op Operator) string {
	if d, ok := descriptions[op]; ok {
		return d
	}
	return string(op)
}

// Matches evaluates an operator against a single context value.
//
// values holds the constraint's value set; single-value operators read
// values[0]. The function never panics: values that cannot be parsed in the
// operator's domain produce a non-match before inversion is applied.
func Matches(op Operator, inverted, caseInsensitive bool, values []string, contextValue string) bool {
	raw := rawMatch(op, caseInsensitive, values, contextValue)
	if inverted {
		return !raw
	}
	return raw
}

func rawMatch(op Operator, caseInsensitive bool, values []string, contextValue string) bool {
	switch op.Family() {
	case FamilySet:
		found := containsValue(values, contextValue, caseInsensitive)
		if op == OperatorNotIn {
			return !found
		}
		return found
	case FamilyString:
		return matchString(op, caseInsensitive, values, contextValue)
	case FamilyNumeric:
		return matchNumeric(op, values, contextValue)
	case FamilyDate:
		return matchDate(op, values, contextValue)
	case FamilySemver:
		return matchSemver(op, values, contextValue)
	default:
		return false
	}
}

func containsValue(values []string, v string, caseInsensitive bool) bool {
	for _, candidate := range values {
		if caseInsensitive {
			if strings.EqualFold(candidate, v) {
				return true
			}
			continue
		}
		if candidate == v {
			return true
		}
	}
	return false
}

func matchString(op Operator, caseInsensitive bool, values []string, contextValue string) bool {
	subject := contextValue
	if caseInsensitive {
		subject = strings.ToLower(subject)
	}

	for _, v := range values {
		if caseInsensitive {
			v = strings.ToLower(v)
		}
		var hit bool
		switch op {
		case OperatorContains:
			hit = strings.Contains(subject, v)
		case OperatorStartsWith:
			hit = strings.HasPrefix(subject, v)
		case OperatorEndsWith:
			hit = strings.HasSuffix(subject, v)
		}
		if hit {
			return true
		}
	}
	return false
}

func matchNumeric(op Operator, values []string, contextValue string) bool {
	if len(values) == 0 {
		return false
	}
	want, err := strconv.ParseFloat(strings.TrimSpace(values[0]), 64)
	if err != nil {
		return false
	}
	got, err := strconv.ParseFloat(strings.TrimSpace(contextValue), 64)
	if err != nil {
		return false
	}

	switch op {
	case OperatorNumEq:
		return got == want
	case OperatorNumGt:
		return got > want
	case OperatorNumGte:
		return got >= want
	case OperatorNumLt:
		return got < want
	case OperatorNumLte:
		return got <= want
	}
	return false
}

func matchDate(op Operator, values []string, contextValue string) bool {
	if len(values) == 0 {
		return false
	}
	want, err := time.Parse(time.RFC3339, strings.TrimSpace(values[0]))
	if err != nil {
		return false
	}
	got, err := time.Parse(time.RFC3339, strings.TrimSpace(contextValue))
	if err != nil {
		return false
	}

	if op == OperatorDateBefore {
		return got.Before(want)
	}
	return got.After(want)
}

func matchSemver(op Operator, values []string, contextValue string) bool {
	if len(values) == 0 {
		return false
	}
	want, ok := strictSemver(values[0])
	if !ok {
		return false
	}
	got, ok := strictSemver(contextValue)
	if !ok {
		return false
	}

	cmp := semver.Compare(got, want)
	switch op {
	case OperatorSemverEq:
		return cmp == 0
	case OperatorSemverGt:
		return cmp > 0
	case OperatorSemverLt:
		return cmp < 0
	}
	return false
}

// strictSemver adds the "v" prefix expected by x/mod/semver and rejects the
// "1" and "1.2" shorthands that package would otherwise expand.
func strictSemver(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", false
	}
	if semver.Canonical(v) != strings.TrimSuffix(v, semver.Build(v)) {
		return "", false
	}
	return v, true
}
