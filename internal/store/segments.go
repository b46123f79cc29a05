package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rafaeljc/mimir/internal/constraint"
	"github.com/rafaeljc/mimir/internal/strategy"
)

// ListSegments retrieves every segment ordered by name.
func (s *PostgresStore) ListSegments(ctx context.Context) ([]strategy.Segment, error) {
	rows, err := s.db.Query(ctx, `SELECT name, description, constraints FROM segments ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	defer rows.Close()

	segs := make([]strategy.Segment, 0)
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segs = append(segs, *seg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return segs, nil
}

// GetSegment retrieves a single segment by name.
func (s *PostgresStore) GetSegment(ctx context.Context, name string) (*strategy.Segment, error) {
	row := s.db.QueryRow(ctx, `SELECT name, description, constraints FROM segments WHERE name = $1`, name)

	seg, err := scanSegment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("segment %q: %w", name, ErrNotFound)
		}
		return nil, err
	}
	return seg, nil
}

// CreateSegment inserts a new segment.
func (s *PostgresStore) CreateSegment(ctx context.Context, seg *strategy.Segment) error {
	cs, err := encodeConstraints(seg.Constraints)
	if err != nil {
		return err
	}

	query := `INSERT INTO segments (name, description, constraints) VALUES ($1, $2, $3)`

	if _, err := s.db.Exec(ctx, query, seg.Name, seg.Description, cs); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("segment %q: %w", seg.Name, ErrConflict)
		}
		return fmt.Errorf("failed to insert segment: %w", err)
	}
	return nil
}

// UpdateSegment overwrites the description and constraints of a segment.
func (s *PostgresStore) UpdateSegment(ctx context.Context, seg *strategy.Segment) error {
	cs, err := encodeConstraints(seg.Constraints)
	if err != nil {
		return err
	}

	query := `
		UPDATE segments
		SET description = $2, constraints = $3, updated_at = NOW()
		WHERE name = $1
	`

	tag, err := s.db.Exec(ctx, query, seg.Name, seg.Description, cs)
	if err != nil {
		return fmt.Errorf("failed to update segment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("segment %q: %w", seg.Name, ErrNotFound)
	}
	return nil
}

// DeleteSegment removes a segment by name.
func (s *PostgresStore) DeleteSegment(ctx context.Context, name string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM segments WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete segment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("segment %q: %w", name, ErrNotFound)
	}
	return nil
}

func scanSegment(row pgx.Row) (*strategy.Segment, error) {
	var (
		seg strategy.Segment
		raw []byte
	)
	if err := row.Scan(&seg.Name, &seg.Description, &raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan segment row: %w", err)
	}

	seg.Constraints = []constraint.Constraint{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &seg.Constraints); err != nil {
			return nil, fmt.Errorf("failed to decode constraints of segment %q: %w", seg.Name, err)
		}
	}
	return &seg, nil
}

func encodeConstraints(cs []constraint.Constraint) ([]byte, error) {
	if cs == nil {
		cs = []constraint.Constraint{}
	}
	b, err := json.Marshal(cs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode constraints: %w", err)
	}
	return b, nil
}
