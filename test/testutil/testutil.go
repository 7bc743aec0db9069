// Package testutil provides shared test utilities for mentat integration
// tests.
package testutil

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Embedded test fixture: a rental-store schema with an enum, an array
// column, a view and a materialized view.
//
//go:embed testdata/schema.sql
var schemaSQL string

// Singleton container state
var (
	singletonOnce sync.Once
	singletonDSN  string
	singletonErr  error
)

// ensureSingleton lazily initializes the singleton PostgreSQL container
// with the fixture schema applied. Safe for concurrent access via
// sync.Once.
func ensureSingleton() (string, error) {
	singletonOnce.Do(func() {
		ctx := context.Background()

		container, err := postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("postgres"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithEnv(map[string]string{
				"POSTGRES_INITDB_ARGS": "--auth-host=trust",
			}),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			singletonErr = fmt.Errorf("failed to start PostgreSQL container: %w", err)
			return
		}

		dsn, err := container.ConnectionString(ctx)
		if err != nil {
			_ = container.Terminate(ctx)
			singletonErr = fmt.Errorf("failed to get PostgreSQL connection string: %w", err)
			return
		}

		// Append sslmode=disable for local testing
		dsn += "sslmode=disable"

		if err := applySchema(ctx, dsn); err != nil {
			_ = container.Terminate(ctx)
			singletonErr = err
			return
		}

		singletonDSN = dsn
		// Container is not stored - ryuk will handle cleanup automatically
	})

	return singletonDSN, singletonErr
}

func applySchema(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("opening fixture connection: %w", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("applying fixture schema: %w", err)
	}
	return nil
}

// DSN returns the connection string of the singleton fixture database,
// skipping the test when Docker is unavailable.
func DSN(t *testing.T) string {
	t.Helper()
	dsn, err := ensureSingleton()
	if err != nil {
		t.Skipf("PostgreSQL container unavailable: %v", err)
	}
	return dsn
}

// OpenDB opens the fixture database with the pgx stdlib driver and closes
// it when the test finishes.
func OpenDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("pgx", DSN(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
