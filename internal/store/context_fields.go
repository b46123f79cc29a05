package store

import (
	"context"
	"fmt"

	"github.com/rafaeljc/mimir/internal/strategy"
)

// ListContextFields retrieves every custom context field ordered by name.
func (s *PostgresStore) ListContextFields(ctx context.Context) ([]strategy.ContextField, error) {
	query := `
		SELECT name, description, legal_values, stickiness
		FROM context_fields
		ORDER BY name
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list context fields: %w", err)
	}
	defer rows.Close()

	fields := make([]strategy.ContextField, 0)
	for rows.Next() {
		var f strategy.ContextField
		if err := rows.Scan(&f.Name, &f.Description, &f.LegalValues, &f.Stickiness); err != nil {
			return nil, fmt.Errorf("failed to scan context field row: %w", err)
		}
		if len(f.LegalValues) == 0 {
			f.LegalValues = nil
		}
		fields = append(fields, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return fields, nil
}

// CreateContextField inserts a new custom context field.
func (s *PostgresStore) CreateContextField(ctx context.Context, f *strategy.ContextField) error {
	legal := f.LegalValues
	if legal == nil {
		legal = []string{}
	}

	query := `
		INSERT INTO context_fields (name, description, legal_values, stickiness)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := s.db.Exec(ctx, query, f.Name, f.Description, legal, f.Stickiness); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("context field %q: %w", f.Name, ErrConflict)
		}
		return fmt.Errorf("failed to insert context field: %w", err)
	}
	return nil
}

// DeleteContextField removes a custom context field by name.
func (s *PostgresStore) DeleteContextField(ctx context.Context, name string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM context_fields WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete context field: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("context field %q: %w", name, ErrNotFound)
	}
	return nil
}
