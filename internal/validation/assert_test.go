package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type repo interface{ Name() string }

type pgRepo struct{}

func (*pgRepo) Name() string { return "pg" }

func TestAssertNotNil(t *testing.T) {
	t.Parallel()

	var nilPtr *int
	value := 1

	assert.PanicsWithValue(t, "critical error: pool cannot be nil", func() { AssertNotNil(nilPtr, "pool") })
	assert.NotPanics(t, func() { AssertNotNil(&value, "pool") })
}

func TestAssertImplemented(t *testing.T) {
	t.Parallel()

	var typedNil *pgRepo

	tests := []struct {
		name      string
		value     repo
		wantPanic bool
	}{
		{name: "Should panic on nil interface", value: nil, wantPanic: true},
		{name: "Should panic on interface wrapping a nil pointer", value: typedNil, wantPanic: true},
		{name: "Should accept a real implementation", value: &pgRepo{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fn := func() { AssertImplemented(tt.value, "repository") }

			if tt.wantPanic {
				assert.PanicsWithValue(t, "critical error: repository cannot be nil", fn)
				return
			}
			assert.NotPanics(t, fn)
		})
	}
}
