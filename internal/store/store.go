// Package store provides the Data Access Layer (Repository) for custom strategy
// definitions, custom context fields and segments.
// It handles all direct interactions with the PostgreSQL database using the pgx driver.
// Built-in strategies and standard context fields live in code and are never stored.
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafaeljc/mimir/internal/strategy"
)

// Compile-time check to verify that PostgresStore implements Repository.
var _ Repository = (*PostgresStore)(nil)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a row with the same name already exists.
	ErrConflict = errors.New("already exists")
)

// uniqueViolation is the PostgreSQL error code for unique_violation.
const uniqueViolation = "23505"

// DefinitionRepository persists custom strategy definitions.
type DefinitionRepository interface {
	// ListDefinitions returns every custom definition ordered by name.
	ListDefinitions(ctx context.Context) ([]strategy.Definition, error)

	// GetDefinition returns the definition with the given name or ErrNotFound.
	GetDefinition(ctx context.Context, name string) (*strategy.Definition, error)

	// CreateDefinition inserts a definition. Returns ErrConflict on duplicate names.
	CreateDefinition(ctx context.Context, d *strategy.Definition) error

	// UpdateDefinition replaces a definition in place. Returns ErrNotFound if it does not exist.
	UpdateDefinition(ctx context.Context, d *strategy.Definition) error

	// DeleteDefinition removes a definition. Returns ErrNotFound if it does not exist.
	DeleteDefinition(ctx context.Context, name string) error
}

// ContextFieldRepository persists custom context fields.
type ContextFieldRepository interface {
	ListContextFields(ctx context.Context) ([]strategy.ContextField, error)
	CreateContextField(ctx context.Context, f *strategy.ContextField) error
	DeleteContextField(ctx context.Context, name string) error
}

// SegmentRepository persists segments. Methods follow the error contract of
// DefinitionRepository.
type SegmentRepository interface {
	ListSegments(ctx context.Context) ([]strategy.Segment, error)
	GetSegment(ctx context.Context, name string) (*strategy.Segment, error)
	CreateSegment(ctx context.Context, seg *strategy.Segment) error
	UpdateSegment(ctx context.Context, seg *strategy.Segment) error
	DeleteSegment(ctx context.Context, name string) error
}

// Repository groups every persistence operation of the service.
type Repository interface {
	DefinitionRepository
	ContextFieldRepository
	SegmentRepository
}

// PostgresStore is the implementation of Repository backed by PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new repository instance with the given connection pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	if db == nil {
		panic("store: database pool cannot be nil")
	}
	return &PostgresStore{db: db}
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
