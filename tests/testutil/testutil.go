package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SetupTestDB starts a PostgreSQL container via the testcontainers
// postgres module. Functionally equivalent to SetupTestDBContainer but
// lets the module handle the connection string.
func SetupTestDB(ctx context.Context) (*TestDBContainer, func(), error) {
	pgContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("radar_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, func() { pgContainer.Terminate(ctx) }, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, func() { pgContainer.Terminate(ctx) }, fmt.Errorf("failed to create pool: %w", err)
	}

	tc := &TestDBContainer{
		Container:  pgContainer,
		ConnString: connStr,
		Pool:       pool,
	}
	cleanup := func() {
		pool.Close()
		pgContainer.Terminate(ctx)
	}
	return tc, cleanup, nil
}
