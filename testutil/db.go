// Package testutil provides shared helpers for the Postgres integration tests.
// Every helper that takes a *testing.T skips the test when TEST_DATABASE_URL
// is unset, so `go test ./...` stays green on machines without a database.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/pkordes/trek-booking/migrations"
)

// DSNEnv names the variable holding the test database connection string.
const DSNEnv = "TEST_DATABASE_URL"

// NewPool connects to the test database and closes the pool when t and its
// subtests finish.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pool, err := openPool(context.Background(), requireDSN(t))
	if err != nil {
		t.Fatalf("testutil.NewPool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// NewSQLDB exposes a test pool through database/sql, which is what goose
// drives. The handle shares the pool's connections and goes away with it.
func NewSQLDB(t *testing.T) *sql.DB {
	t.Helper()
	return stdlib.OpenDBFromPool(NewPool(t))
}

// NewMigrator returns a goose provider over the embedded trek-booking
// migrations.
func NewMigrator(db *sql.DB) (*goose.Provider, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return nil, fmt.Errorf("testutil.NewMigrator: %w", err)
	}
	return provider, nil
}

// MigrateUp applies every pending migration to the database at dsn. It is
// meant for TestMain, where there is no *testing.T to skip or fail.
func MigrateUp(ctx context.Context, dsn string) (int, error) {
	pool, err := openPool(ctx, dsn)
	if err != nil {
		return 0, fmt.Errorf("testutil.MigrateUp: %w", err)
	}
	defer pool.Close()

	provider, err := NewMigrator(stdlib.OpenDBFromPool(pool))
	if err != nil {
		return 0, fmt.Errorf("testutil.MigrateUp: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("testutil.MigrateUp: up: %w", err)
	}
	return len(results), nil
}

func openPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

func requireDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv(DSNEnv)
	if dsn == "" {
		t.Skip(DSNEnv + " not set; skipping integration test")
	}
	return dsn
}
