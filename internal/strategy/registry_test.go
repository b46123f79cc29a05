package strategy

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/mimir/internal/constraint"
	"github.com/rafaeljc/mimir/internal/parameter"
)

func TestNewRegistry_HoldsBuiltins(t *testing.T) {
	t.Parallel()

	// Arrange & Act
	r := NewRegistry()

	// Assert
	defs := r.Definitions()
	require.Len(t, defs, len(Builtins()))
	assert.Equal(t, DefaultName, defs[0].Name, "catalogue order starts with the standard strategy")

	for _, d := range defs {
		assert.False(t, d.Editable, "built-in %s must not be editable", d.Name)
		assert.True(t, IsBuiltin(d.Name))
	}

	fields := r.ContextFields()
	require.Len(t, fields, len(StandardContextFields()))
	userID, ok := r.ContextField(FieldUserID)
	require.True(t, ok)
	assert.True(t, userID.Stickiness)
	assert.Equal(t, 0, r.CustomCount())
}

func TestRegistry_Lookup(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	fallback := Definition{Name: "fallback"}

	t.Run("known name", func(t *testing.T) {
		t.Parallel()

		got := r.Lookup(NameFlexibleRollout, fallback)
		assert.Equal(t, NameFlexibleRollout, got.Name)
		_, ok := got.Parameter("rollout")
		assert.True(t, ok)
	})

	t.Run("unknown name returns the caller's fallback", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, fallback, r.Lookup("doesNotExist", fallback))
	})
}

func TestRegistry_Replace(t *testing.T) {
	t.Parallel()

	// Arrange
	r := NewRegistry()
	custom := []Definition{
		{Name: "zeta", Parameters: []ParameterDefinition{{Name: "level", Type: parameter.TypeNumber}}},
		{Name: "alpha"},
		{Name: DefaultName, Description: "shadowing attempt"},
		{Name: ""},
	}
	fields := []ContextField{
		{Name: "tenant", LegalValues: []string{"a", "b"}},
		{Name: FieldUserID, Stickiness: false},
	}

	// Act
	counts := r.Replace(custom, fields, nil)

	// Assert
	assert.Equal(t, Counts{Definitions: 2, ContextFields: 1}, counts)
	assert.Equal(t, 2, r.CustomCount())

	defs := r.Definitions()
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"alpha", "zeta"}, names[len(names)-2:], "custom definitions follow built-ins sorted by name")

	zeta, ok := r.Definition("zeta")
	require.True(t, ok)
	assert.True(t, zeta.Editable, "custom definitions are always editable")

	def, _ := r.Definition(DefaultName)
	assert.NotEqual(t, "shadowing attempt", def.Description, "built-ins cannot be overridden")

	userID, _ := r.ContextField(FieldUserID)
	assert.True(t, userID.Stickiness, "standard fields cannot be overridden")

	// A later reload replaces, not merges.
	r.Replace(nil, nil, nil)
	_, ok = r.Definition("zeta")
	assert.False(t, ok)
	_, ok = r.ContextField("tenant")
	assert.False(t, ok)
}

func TestRegistry_Replace_DoesNotAliasInput(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	legal := []string{"eu", "us"}
	r.Replace(nil, []ContextField{{Name: "region", LegalValues: legal}}, nil)

	legal[0] = "mutated"

	f, ok := r.ContextField("region")
	require.True(t, ok)
	assert.Equal(t, []string{"eu", "us"}, f.LegalValues)
}

func TestRegistry_ConcurrentReadsDuringReplace(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				r.Replace([]Definition{{Name: "custom"}}, nil, []Segment{{Name: "beta"}})
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = r.Lookup(NameUserWithID, Definition{})
				_ = r.Definitions()
				_, _ = r.ResolveSegments([]string{"beta"})
			}
		}()
	}

	wg.Wait()
	_, ok := r.Definition("custom")
	assert.True(t, ok)
}

func TestRegistry_Segments(t *testing.T) {
	t.Parallel()

	// Arrange
	r := NewRegistry()
	betaTesters := Segment{
		Name: "betaTesters",
		Constraints: []constraint.Constraint{
			{ContextName: FieldUserID, Operator: constraint.OperatorIn, Values: []string{"1", "2"}},
		},
	}

	// Act
	counts := r.Replace(nil, nil, []Segment{
		{Name: "nordics"},
		betaTesters,
		{Name: "nordics", Description: "duplicate"},
		{Name: ""},
	})

	// Assert
	assert.Equal(t, 2, counts.Segments)

	names := make([]string, 0, 2)
	for _, seg := range r.Segments() {
		names = append(names, seg.Name)
	}
	assert.Equal(t, []string{"betaTesters", "nordics"}, names, "segments are sorted by name")

	nordics, ok := r.Segment("nordics")
	require.True(t, ok)
	assert.Empty(t, nordics.Description, "the first segment of a name wins")

	got, ok := r.Segment("betaTesters")
	require.True(t, ok)
	assert.Equal(t, betaTesters, got)
}

func TestRegistry_ResolveSegments(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Replace(nil, nil, []Segment{{Name: "a"}, {Name: "b"}})

	tests := []struct {
		name        string
		names       []string
		wantFound   []string
		wantMissing []string
	}{
		{name: "no names", names: nil},
		{name: "keeps request order", names: []string{"b", "a"}, wantFound: []string{"b", "a"}},
		{name: "reports unknown names", names: []string{"a", "gone", "b", "zzz"}, wantFound: []string{"a", "b"}, wantMissing: []string{"gone", "zzz"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			found, missing := r.ResolveSegments(tt.names)

			var gotFound []string
			for _, seg := range found {
				gotFound = append(gotFound, seg.Name)
			}
			assert.Equal(t, tt.wantFound, gotFound)
			assert.Equal(t, tt.wantMissing, missing)
		})
	}
}

func TestRegistry_Replace_DoesNotAliasSegmentConstraints(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	cs := []constraint.Constraint{{ContextName: "region", Operator: constraint.OperatorIn, Values: []string{"eu"}}}
	r.Replace(nil, nil, []Segment{{Name: "eu", Constraints: cs}})

	cs[0].ContextName = "mutated"

	seg, ok := r.Segment("eu")
	require.True(t, ok)
	assert.Equal(t, "region", seg.Constraints[0].ContextName)
}
