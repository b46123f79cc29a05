package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaProbe fails readiness when migrations have not been applied.
const schemaProbe = `SELECT to_regclass('public.strategy_definitions') IS NOT NULL
	AND to_regclass('public.context_fields') IS NOT NULL`

// HealthChecker implements the observability.Checker interface for PostgreSQL.
type HealthChecker struct {
	pool *pgxpool.Pool
}

// NewHealthChecker creates a new health checker for the given pool.
func NewHealthChecker(pool *pgxpool.Pool) *HealthChecker {
	return &HealthChecker{pool: pool}
}

// Name returns the component name.
func (h *HealthChecker) Name() string {
	return "postgres"
}

// Check pings the database and verifies the schema exists.
func (h *HealthChecker) Check(ctx context.Context) error {
	if h.pool == nil {
		return errors.New("database pool is nil")
	}

	var migrated bool
	if err := h.pool.QueryRow(ctx, schemaProbe).Scan(&migrated); err != nil {
		return fmt.Errorf("postgres probe failed: %w", err)
	}
	if !migrated {
		return errors.New("schema not migrated")
	}
	return nil
}
