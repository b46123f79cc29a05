//go:build integration

// Package store_test contains integration tests for the Data Access Layer.
// We use the '_test' suffix to enforce black-box testing, ensuring we only
// access the exported API of the store package.
package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/mimir/internal/constraint"
	"github.com/rafaeljc/mimir/internal/parameter"
	"github.com/rafaeljc/mimir/internal/store"
	"github.com/rafaeljc/mimir/internal/strategy"
	"github.com/rafaeljc/mimir/internal/testsupport"
)

// TestPostgresStore_Integration orchestrates the integration tests for the repository.
// It spins up a real PostgreSQL container once and runs scenarios against it.
func TestPostgresStore_Integration(t *testing.T) {
	// 1. Infrastructure Setup
	ctx := context.Background()

	pgContainer, err := testsupport.StartPostgresContainer(ctx)
	require.NoError(t, err, "failed to start postgres container")

	// Ensure resource cleanup even if tests fail
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	repo := store.NewPostgresStore(pgContainer.DB)

	// 2. Scenarios
	// We run these sequentially as they share the same container state.

	t.Run("CreateDefinition_RoundTrip", func(t *testing.T) {
		// Arrange
		input := &strategy.Definition{
			Name:        "betaProgram-" + fmt.Sprint(time.Now().UnixNano()),
			DisplayName: "Beta program",
			Description: "Members of the beta program",
			Parameters: []strategy.ParameterDefinition{
				{Name: "tiers", Type: parameter.TypeList, Required: true},
				{Name: "rollout", Type: parameter.TypePercentage},
			},
		}

		// Act
		err := repo.CreateDefinition(ctx, input)

		// Assert
		require.NoError(t, err)
		assert.True(t, input.Editable, "stored definitions are editable")

		got, err := repo.GetDefinition(ctx, input.Name)
		require.NoError(t, err)
		assert.Equal(t, input.DisplayName, got.DisplayName)
		assert.Equal(t, input.Description, got.Description)
		assert.True(t, got.Editable)
		assert.Equal(t, input.Parameters, got.Parameters, "parameters must survive the JSONB round-trip in order")
	})

	t.Run("CreateDefinition_Duplicate_ShouldConflict", func(t *testing.T) {
		name := "dup-" + fmt.Sprint(time.Now().UnixNano())
		require.NoError(t, repo.CreateDefinition(ctx, &strategy.Definition{Name: name}))

		err := repo.CreateDefinition(ctx, &strategy.Definition{Name: name})

		assert.ErrorIs(t, err, store.ErrConflict)
	})

	t.Run("GetDefinition_Missing_ShouldBeNotFound", func(t *testing.T) {
		_, err := repo.GetDefinition(ctx, "does-not-exist")

		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("UpdateDefinition", func(t *testing.T) {
		// Arrange
		def := &strategy.Definition{Name: "upd-" + fmt.Sprint(time.Now().UnixNano()), Description: "old"}
		require.NoError(t, repo.CreateDefinition(ctx, def))

		// Act
		def.Description = "new"
		def.Deprecated = true
		def.Parameters = []strategy.ParameterDefinition{{Name: "limit", Type: parameter.TypeNumber}}
		err := repo.UpdateDefinition(ctx, def)

		// Assert
		require.NoError(t, err)
		got, err := repo.GetDefinition(ctx, def.Name)
		require.NoError(t, err)
		assert.Equal(t, "new", got.Description)
		assert.True(t, got.Deprecated)
		require.Len(t, got.Parameters, 1)
		assert.Equal(t, parameter.TypeNumber, got.Parameters[0].Type)
	})

	t.Run("UpdateDefinition_Missing_ShouldBeNotFound", func(t *testing.T) {
		err := repo.UpdateDefinition(ctx, &strategy.Definition{Name: "ghost"})

		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("DeleteDefinition", func(t *testing.T) {
		name := "del-" + fmt.Sprint(time.Now().UnixNano())
		require.NoError(t, repo.CreateDefinition(ctx, &strategy.Definition{Name: name}))

		require.NoError(t, repo.DeleteDefinition(ctx, name))

		_, err := repo.GetDefinition(ctx, name)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, repo.DeleteDefinition(ctx, name), store.ErrNotFound, "second delete finds nothing")
	})

	t.Run("ListDefinitions_OrderedByName", func(t *testing.T) {
		// Arrange
		for _, n := range []string{"zz-list", "aa-list", "mm-list"} {
			require.NoError(t, repo.CreateDefinition(ctx, &strategy.Definition{Name: n}))
		}

		// Act
		defs, err := repo.ListDefinitions(ctx)

		// Assert
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(defs), 3)
		for i := 0; i < len(defs)-1; i++ {
			assert.Less(t, defs[i].Name, defs[i+1].Name, "ordering violation at index %d", i)
		}
	})

	t.Run("ContextFields_Lifecycle", func(t *testing.T) {
		// Arrange
		field := &strategy.ContextField{
			Name:        "region",
			Description: "Deployment region",
			LegalValues: []string{"eu", "us"},
			Stickiness:  true,
		}

		// Act & Assert: create
		require.NoError(t, repo.CreateContextField(ctx, field))
		assert.ErrorIs(t, repo.CreateContextField(ctx, field), store.ErrConflict)

		// Act & Assert: list
		fields, err := repo.ListContextFields(ctx)
		require.NoError(t, err)
		require.Len(t, fields, 1)
		assert.Equal(t, *field, fields[0])

		// Act & Assert: delete
		require.NoError(t, repo.DeleteContextField(ctx, "region"))
		assert.ErrorIs(t, repo.DeleteContextField(ctx, "region"), store.ErrNotFound)
	})

	t.Run("ContextFields_EmptyLegalValuesAreNil", func(t *testing.T) {
		require.NoError(t, repo.CreateContextField(ctx, &strategy.ContextField{Name: "tenant"}))

		fields, err := repo.ListContextFields(ctx)

		require.NoError(t, err)
		require.Len(t, fields, 1)
		assert.Nil(t, fields[0].LegalValues)
	})

	t.Run("Segments_Lifecycle", func(t *testing.T) {
		// Arrange
		seg := &strategy.Segment{
			Name:        "betaTesters",
			Description: "Opted into beta builds",
			Constraints: []constraint.Constraint{
				{ContextName: "userId", Operator: constraint.OperatorIn, Values: []string{"1", "2"}},
				{ContextName: "appVersion", Operator: constraint.OperatorSemverGt, Value: "2.0.0", Inverted: true},
			},
		}

		// Act & Assert: create
		require.NoError(t, repo.CreateSegment(ctx, seg))
		assert.ErrorIs(t, repo.CreateSegment(ctx, seg), store.ErrConflict)

		got, err := repo.GetSegment(ctx, seg.Name)
		require.NoError(t, err)
		assert.Equal(t, *seg, *got, "constraints must survive the JSONB round-trip in order")

		// Act & Assert: update
		seg.Description = "Beta cohort"
		seg.Constraints = nil
		require.NoError(t, repo.UpdateSegment(ctx, seg))

		segs, err := repo.ListSegments(ctx)
		require.NoError(t, err)
		require.Len(t, segs, 1)
		assert.Equal(t, "Beta cohort", segs[0].Description)
		assert.Equal(t, []constraint.Constraint{}, segs[0].Constraints)

		// Act & Assert: delete
		require.NoError(t, repo.DeleteSegment(ctx, seg.Name))
		assert.ErrorIs(t, repo.DeleteSegment(ctx, seg.Name), store.ErrNotFound)
		_, err = repo.GetSegment(ctx, seg.Name)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, repo.UpdateSegment(ctx, seg), store.ErrNotFound)
	})

	t.Run("Schema_ColumnTypes", func(t *testing.T) {
		tests := []struct {
			table   string
			column  string
			wantUDT string
		}{
			{table: "strategy_definitions", column: "parameters", wantUDT: "jsonb"},
			{table: "context_fields", column: "legal_values", wantUDT: "_text"},
			{table: "segments", column: "constraints", wantUDT: "jsonb"},
		}

		for _, tt := range tests {
			t.Run(tt.table+"."+tt.column, func(t *testing.T) {
				var udt string
				err := pgContainer.DB.QueryRow(ctx,
					`SELECT udt_name FROM information_schema.columns WHERE table_name = $1 AND column_name = $2`,
					tt.table, tt.column,
				).Scan(&udt)

				require.NoError(t, err)
				assert.Equal(t, tt.wantUDT, udt)
			})
		}
	})
}
