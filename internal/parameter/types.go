// Package parameter interprets raw strategy parameter values (as stored and
// sent over the wire: strings, numbers or nothing) according to the type the
// strategy definition declares for them.
package parameter

// Type is the declared type of a strategy parameter.
type Type string

const (
	TypePercentage Type = "percentage"
	TypeList       Type = "list"
	TypeNumber     Type = "number"
	TypeBoolean    Type = "boolean"
	TypeString     Type = "string"
)

// Valid reports whether t is one of the known parameter types.
func (t Type) Valid() bool {
	switch t {
	case TypePercentage, TypeList, TypeNumber, TypeBoolean, TypeString:
		return true
	}
	return false
}

// Value is an interpreted parameter. The concrete type is one of Percentage,
// List, Number, Boolean or String; consumers switch on it.
type Value interface {
	// Type returns the declared type this value was interpreted as.
	Type() Type
	// OK reports whether the raw value was well-formed for its type.
	OK() bool

	sealed()
}

// Percentage is a rollout share. Out-of-range values are kept as parsed;
// range checks belong to the caller.
type Percentage struct {
	Percent float64
	Raw     string
	Valid   bool
}

// InRange reports whether the percentage lies within [0,100].
func (p Percentage) InRange() bool {
	return p.Percent >= 0 && p.Percent <= 100
}

// List is a sequence of trimmed, non-empty elements.
type List struct {
	Items []string
}

// Number is a non-negative integer kept in its raw textual form.
type Number struct {
	Raw   string
	Valid bool
}

// Boolean is decoded from the literal strings "true" / "false".
type Boolean struct {
	Value bool
	Raw   string
	Valid bool
}

// String is passed through unchanged.
type String struct {
	Value string
}

func (Percentage) Type() Type { return TypePercentage }
func (List) Type() Type       { return TypeList }
func (Number) Type() Type     { return TypeNumber }
func (Boolean) Type() Type    { return TypeBoolean }
func (String) Type() Type     { return TypeString }

func (p Percentage) OK() bool { return p.Valid }
func (List) OK() bool         { return true }
func (n Number) OK() bool     { return n.Valid }
func (b Boolean) OK() bool    { return b.Valid }
func (String) OK() bool       { return true }

func (Percentage) sealed() {}
func (List) sealed()       {}
func (Number) sealed()     {}
func (Boolean) sealed()    {}
func (String) sealed()     {}
