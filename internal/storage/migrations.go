package storage

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/0001_init.sql
var initSchema string

// runMigrations applies the relational schema. There is no migration
// framework in the pack (refinery/migrate-style dependencies never surface
// in any example repo's go.mod), so this stays a single embedded,
// idempotent (IF NOT EXISTS) schema statement rather than inventing a
// versioned-migration runner this codebase doesn't otherwise need.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, initSchema)
	if err != nil {
		return wrapError(ErrKindDatabase, "postgres storage: run migrations", err)
	}
	return nil
}
