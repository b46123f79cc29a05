// Package plan derives execution plans: deterministic, human-readable
// descriptions of who a strategy instance activates for.
package plan

import "github.com/rafaeljc/mimir/internal/parameter"

// Kind selects how a population descriptor is presented. A percentage is
// shown as a circle plus a sentence, chips enumerate the users, hosts or IPs
// of the well-known list parameters, and list is any other list parameter.
type Kind string

const (
	KindPercentage Kind = "percentage"
	KindChips      Kind = "chips"
	KindBoolean    Kind = "boolean"
	KindNumber     Kind = "number"
	KindText       Kind = "text"
	KindList       Kind = "list"
)

// Chip categories of the well-known list parameters.
const (
	CategoryUser = "user"
	CategoryHost = "host"
	CategoryIP   = "IP"
)

// Plan is the execution plan of a strategy instance. Segments and
// constraints are joined by AND and precede the population section.
type Plan struct {
	Segments    []SegmentDescription    `json:"segmentDescriptions,omitempty"`
	Constraints []ConstraintDescription `json:"constraintDescriptions"`
	Population  []PopulationDescriptor  `json:"populationDescriptors"`
	// Standard is set for the standard strategy, which is on for all users.
	Standard bool `json:"standard"`
	// Disabled marks an instance that is kept on the feature but never evaluated.
	Disabled bool       `json:"disabled,omitempty"`
	Omitted  []Omission `json:"omitted,omitempty"`
}

// SegmentDescription is the display form of one targeted segment.
type SegmentDescription struct {
	Name        string                  `json:"name"`
	Constraints []ConstraintDescription `json:"constraintDescriptions"`
}

// ConstraintDescription is the display form of one constraint.
type ConstraintDescription struct {
	ContextName     string   `json:"contextName"`
	OperatorLabel   string   `json:"operatorLabel"`
	Values          []string `json:"values"`
	Inverted        bool     `json:"inverted,omitempty"`
	CaseInsensitive bool     `json:"caseInsensitive,omitempty"`
}

// PopulationDescriptor describes one parameter-derived slice of the
// population. Which fields are set depends on Kind.
type PopulationDescriptor struct {
	Kind       Kind           `json:"kind"`
	Name       string         `json:"name"`
	Type       parameter.Type `json:"type"`
	Percentage float64        `json:"percentage,omitempty"`
	Category   string         `json:"category,omitempty"`
	Values     []string       `json:"values,omitempty"`
	Value      string         `json:"value,omitempty"`
	Valid      bool           `json:"valid"`
	Text       string         `json:"text,omitempty"`
}

// OmissionKind tells what was left out of a plan.
type OmissionKind string

const (
	OmittedConstraint OmissionKind = "constraint"
	OmittedParameter  OmissionKind = "parameter"
	OmittedSegment    OmissionKind = "segment"
)

// Omission records a constraint, parameter or segment that could not be
// described. Omissions are partial results, not errors. Segment names the
// segment an omitted constraint belongs to; Index is then relative to it.
type Omission struct {
	Kind    OmissionKind `json:"kind"`
	Name    string       `json:"name"`
	Index   int          `json:"index"`
	Segment string       `json:"segment,omitempty"`
	Reason  string       `json:"reason"`
}
