package testutil

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations applies the schema migrations from the migrations/
// directory against the test database.
func RunMigrations(ctx context.Context, tc *TestDBContainer) error {
	m, err := migrate.New("file://"+migrationsDir(), tc.ConnString)
	if err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// migrationsDir resolves the migrations directory relative to this file
// so tests work regardless of the package they run from.
func migrationsDir() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "migrations")
}

// TruncateAll empties every table, keeping the schema in place between tests.
func TruncateAll(ctx context.Context, tc *TestDBContainer) error {
	tables := []string{
		"webhook_events",
		"pricing_experiments",
		"customer_scores",
		"alerts",
		"usage_records",
		"mrr_snapshots",
		"revenue_events",
		"subscriptions",
		"plans",
		"products",
	}
	for _, table := range tables {
		if _, err := tc.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return err
		}
	}
	return nil
}
