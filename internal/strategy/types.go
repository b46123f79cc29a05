// Package strategy holds the strategy model: definitions (the parameter shape
// of a named strategy), instances (a configured strategy attached to a feature)
// and the context fields constraints may test against.
package strategy

import (
	"github.com/rafaeljc/mimir/internal/constraint"
	"github.com/rafaeljc/mimir/internal/parameter"
)

// DefaultName is the name of the standard strategy that is on for everyone.
const DefaultName = "default"

// Definition describes a strategy and the parameters its instances carry.
// Built-in definitions are not editable; custom ones are.
type Definition struct {
	Name        string                `json:"name" validate:"required,max=255"`
	DisplayName string                `json:"displayName,omitempty" validate:"max=255"`
	Description string                `json:"description,omitempty"`
	Deprecated  bool                  `json:"deprecated"`
	Editable    bool                  `json:"editable"`
	Parameters  []ParameterDefinition `json:"parameters" validate:"dive"`
}

// ParameterDefinition declares one parameter of a strategy.
type ParameterDefinition struct {
	Name        string         `json:"name" validate:"required,max=255"`
	Type        parameter.Type `json:"type" validate:"required,oneof=percentage list number boolean string"`
	Description string         `json:"description,omitempty"`
	Required    bool           `json:"required"`
}

// Parameter returns the declared parameter with the given name.
func (d Definition) Parameter(name string) (ParameterDefinition, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterDefinition{}, false
}

// Instance is a strategy configured on a feature: the definition it follows,
// raw parameter values (string, number or absent), ordered constraints and
// the names of the segments it targets. A disabled instance is kept on the
// feature but never evaluated.
type Instance struct {
	Name        string                  `json:"name" validate:"required"`
	Parameters  map[string]any          `json:"parameters,omitempty"`
	Constraints []constraint.Constraint `json:"constraints,omitempty"`
	Segments    []string                `json:"segments,omitempty"`
	Disabled    bool                    `json:"disabled,omitempty"`
}

// ContextField is a named attribute of the evaluation context.
// LegalValues, when set, restricts the values constraints may use.
type ContextField struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Description string   `json:"description,omitempty"`
	LegalValues []string `json:"legalValues,omitempty"`
	Stickiness  bool     `json:"stickiness"`
}

// Segment is a named, reusable group of constraints. An instance targeting a
// segment only matches when every constraint of the segment holds.
type Segment struct {
	Name        string                  `json:"name" validate:"required,max=255"`
	Description string                  `json:"description,omitempty"`
	Constraints []constraint.Constraint `json:"constraints"`
}
