package strategy

import (
	"slices"
	"sort"
	"sync/atomic"
)

// Registry is an in-memory catalogue of strategy definitions, context
// fields and segments. Reads are lock-free against an immutable snapshot; Replace swaps
// the whole snapshot, so readers never observe a half-applied reload.
//
// Built-in definitions and standard context fields are always present and
// cannot be shadowed by custom entries of the same name.
type Registry struct {
	current atomic.Pointer[snapshot]
}

type snapshot struct {
	definitions map[string]Definition
	defOrder    []string
	fields      map[string]ContextField
	fieldOrder  []string
	segments    map[string]Segment
	segOrder    []string
}

// Counts reports how many custom entries a Replace accepted.
type Counts struct {
	Definitions   int
	ContextFields int
	Segments      int
}

// NewRegistry returns a registry holding only the built-ins.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Replace(nil, nil, nil)
	return r
}

// Replace installs a new set of custom definitions, context fields and
// segments. Definitions and fields whose names collide with a built-in are
// ignored, as are unnamed entries.
func (r *Registry) Replace(custom []Definition, fields []ContextField, segments []Segment) Counts {
	s := &snapshot{
		definitions: make(map[string]Definition),
		fields:      make(map[string]ContextField),
		segments:    make(map[string]Segment, len(segments)),
	}

	for _, d := range Builtins() {
		s.definitions[d.Name] = d
		s.defOrder = append(s.defOrder, d.Name)
	}
	for _, f := range StandardContextFields() {
		s.fields[f.Name] = f
		s.fieldOrder = append(s.fieldOrder, f.Name)
	}

	customDefs := make([]string, 0, len(custom))
	for _, d := range custom {
		if _, exists := s.definitions[d.Name]; exists || d.Name == "" {
			continue
		}
		d.Editable = true
		d.Parameters = slices.Clone(d.Parameters)
		s.definitions[d.Name] = d
		customDefs = append(customDefs, d.Name)
	}
	sort.Strings(customDefs)
	s.defOrder = append(s.defOrder, customDefs...)

	customFields := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, exists := s.fields[f.Name]; exists || f.Name == "" {
			continue
		}
		f.LegalValues = slices.Clone(f.LegalValues)
		s.fields[f.Name] = f
		customFields = append(customFields, f.Name)
	}
	sort.Strings(customFields)
	s.fieldOrder = append(s.fieldOrder, customFields...)

	for _, seg := range segments {
		if _, exists := s.segments[seg.Name]; exists || seg.Name == "" {
			continue
		}
		seg.Constraints = slices.Clone(seg.Constraints)
		s.segments[seg.Name] = seg
		s.segOrder = append(s.segOrder, seg.Name)
	}
	sort.Strings(s.segOrder)

	r.current.Store(s)
	return Counts{
		Definitions:   len(customDefs),
		ContextFields: len(customFields),
		Segments:      len(s.segOrder),
	}
}

// Definition returns the definition registered under name.
func (r *Registry) Definition(name string) (Definition, bool) {
	d, ok := r.current.Load().definitions[name]
	return d, ok
}

// Lookup returns the definition registered under name, or fallback when the
// name is unknown. Callers choose the fallback explicitly.
func (r *Registry) Lookup(name string, fallback Definition) Definition {
	if d, ok := r.Definition(name); ok {
		return d
	}
	return fallback
}

// Definitions lists built-ins in catalogue order followed by custom
// definitions sorted by name.
func (r *Registry) Definitions() []Definition {
	s := r.current.Load()
	out := make([]Definition, 0, len(s.defOrder))
	for _, name := range s.defOrder {
		out = append(out, s.definitions[name])
	}
	return out
}

// ContextField returns the context field registered under name.
func (r *Registry) ContextField(name string) (ContextField, bool) {
	f, ok := r.current.Load().fields[name]
	return f, ok
}

// ContextFields lists standard fields followed by custom fields sorted by name.
func (r *Registry) ContextFields() []ContextField {
	s := r.current.Load()
	out := make([]ContextField, 0, len(s.fieldOrder))
	for _, name := range s.fieldOrder {
		out = append(out, s.fields[name])
	}
	return out
}

// Segment returns the segment registered under name.
func (r *Registry) Segment(name string) (Segment, bool) {
	seg, ok := r.current.Load().segments[name]
	return seg, ok
}

// Segments lists every segment sorted by name.
func (r *Registry) Segments() []Segment {
	s := r.current.Load()
	out := make([]Segment, 0, len(s.segOrder))
	for _, name := range s.segOrder {
		out = append(out, s.segments[name])
	}
	return out
}

// ResolveSegments looks up the named segments in order. Names that are not
// registered are returned separately, in the order they were given.
func (r *Registry) ResolveSegments(names []string) (found []Segment, missing []string) {
	s := r.current.Load()
	for _, name := range names {
		seg, ok := s.segments[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		found = append(found, seg)
	}
	return found, missing
}

// CustomCount returns how many custom definitions the current snapshot holds.
func (r *Registry) CustomCount() int {
	s := r.current.Load()
	return len(s.definitions) - len(builtinNames)
}
