package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rafaeljc/mimir/internal/strategy"
)

const definitionColumns = `name, display_name, description, deprecated, parameters`

// ListDefinitions retrieves every custom strategy definition ordered by name.
func (s *PostgresStore) ListDefinitions(ctx context.Context) ([]strategy.Definition, error) {
	query := `SELECT ` + definitionColumns + ` FROM strategy_definitions ORDER BY name`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list strategy definitions: %w", err)
	}
	// Ensure rows are closed to prevent connection leaks in the pool.
	defer rows.Close()

	defs := make([]strategy.Definition, 0)
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return defs, nil
}

// GetDefinition retrieves a single custom definition by name.
func (s *PostgresStore) GetDefinition(ctx context.Context, name string) (*strategy.Definition, error) {
	query := `SELECT ` + definitionColumns + ` FROM strategy_definitions WHERE name = $1`

	d, err := scanDefinition(s.db.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("strategy %q: %w", name, ErrNotFound)
		}
		return nil, err
	}
	return d, nil
}

// CreateDefinition inserts a new custom definition.
func (s *PostgresStore) CreateDefinition(ctx context.Context, d *strategy.Definition) error {
	params, err := encodeParameters(d.Parameters)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO strategy_definitions (name, display_name, description, deprecated, parameters)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := s.db.Exec(ctx, query, d.Name, d.DisplayName, d.Description, d.Deprecated, params); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("strategy %q: %w", d.Name, ErrConflict)
		}
		return fmt.Errorf("failed to insert strategy definition: %w", err)
	}

	d.Editable = true
	return nil
}

// UpdateDefinition overwrites the stored definition with the same name.
func (s *PostgresStore) UpdateDefinition(ctx context.Context, d *strategy.Definition) error {
	params, err := encodeParameters(d.Parameters)
	if err != nil {
		return err
	}

	query := `
		UPDATE strategy_definitions
		SET display_name = $2, description = $3, deprecated = $4, parameters = $5, updated_at = NOW()
		WHERE name = $1
	`

	tag, err := s.db.Exec(ctx, query, d.Name, d.DisplayName, d.Description, d.Deprecated, params)
	if err != nil {
		return fmt.Errorf("failed to update strategy definition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("strategy %q: %w", d.Name, ErrNotFound)
	}

	d.Editable = true
	return nil
}

// DeleteDefinition removes a custom definition by name.
func (s *PostgresStore) DeleteDefinition(ctx context.Context, name string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM strategy_definitions WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete strategy definition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("strategy %q: %w", name, ErrNotFound)
	}
	return nil
}

// scanDefinition maps one row onto a Definition. Stored definitions are always editable.
func scanDefinition(row pgx.Row) (*strategy.Definition, error) {
	var (
		d   strategy.Definition
		raw []byte
	)
	if err := row.Scan(&d.Name, &d.DisplayName, &d.Description, &d.Deprecated, &raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan strategy definition row: %w", err)
	}

	d.Parameters = []strategy.ParameterDefinition{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &d.Parameters); err != nil {
			return nil, fmt.Errorf("failed to decode parameters of %q: %w", d.Name, err)
		}
	}
	d.Editable = true

	return &d, nil
}

func encodeParameters(params []strategy.ParameterDefinition) ([]byte, error) {
	if params == nil {
		params = []strategy.ParameterDefinition{}
	}
	b, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode parameters: %w", err)
	}
	return b, nil
}
