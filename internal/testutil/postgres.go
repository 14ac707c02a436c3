// Package testutil provides a seeded PostgreSQL for integration tests.
package testutil

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"slices"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// testDBEnv points the tests at an existing database instead of Docker.
const testDBEnv = "SQLSPECTRE_TEST_DB_URL"

const image = "postgres:16-alpine"

// seedSchema is the catalog code references are checked against: two
// public tables with activity, one idle table, a view and a table in a
// second schema.
var seedSchema = []string{
	`CREATE TABLE users (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		status TEXT DEFAULT 'active'
	)`,
	`CREATE TABLE orders (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		amount NUMERIC(10,2) NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`,
	`CREATE TABLE empty_table (
		id SERIAL PRIMARY KEY,
		data TEXT
	)`,
	`CREATE VIEW active_users AS
		SELECT id, name, email FROM users WHERE status = 'active'`,
	`CREATE SCHEMA app`,
	`CREATE TABLE app.audit_log (
		id BIGSERIAL PRIMARY KEY,
		user_id INTEGER,
		action TEXT NOT NULL
	)`,
}

// seedData gives users and orders scan counts so only the idle tables
// are reported as unreferenced.
var seedData = []string{
	`INSERT INTO users (name, email, status) VALUES
		('Alice', 'alice@example.com', 'active'),
		('Bob', 'bob@example.com', 'inactive'),
		('Charlie', 'charlie@example.com', 'active')`,
	`INSERT INTO orders (user_id, amount) VALUES (1, 99.99), (1, 49.50), (2, 150.00)`,
	`SELECT count(*) FROM users`,
	`SELECT count(*) FROM orders`,
}

// runPostgresContainer starts a PG container, recovering from panics if Docker is unavailable.
func runPostgresContainer(ctx context.Context) (container *postgres.PostgresContainer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return postgres.Run(ctx, image,
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
	)
}

func seedDatabase(ctx context.Context, connStr string) error {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return fmt.Errorf("seed connect: %w", err)
	}
	defer conn.Close(ctx)

	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		for _, stmt := range slices.Concat(seedSchema, seedData) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("%.40s: %w", stmt, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	// fills reltuples for Relation.EstimatedRows
	if _, err := conn.Exec(ctx, "ANALYZE"); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	return nil
}

// Setup starts a seeded PostgreSQL and returns its connection string and a
// cleanup function. With SQLSPECTRE_TEST_DB_URL set, that database is
// seeded instead. Returns an error if Docker is not available.
func Setup() (string, func(), error) {
	ctx := context.Background()

	if connStr := os.Getenv(testDBEnv); connStr != "" {
		if err := seedDatabase(ctx, connStr); err != nil {
			return "", nil, fmt.Errorf("seed %s: %w", testDBEnv, err)
		}
		return connStr, func() {}, nil
	}

	container, err := runPostgresContainer(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("docker not available: %w", err)
	}
	terminate := func() { _ = container.Terminate(ctx) }

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err == nil {
		err = seedDatabase(ctx, connStr)
	}
	if err != nil {
		terminate()
		return "", nil, err
	}
	return connStr, terminate, nil
}

// SetupPostgres is Setup for a single test. It skips the test without Docker.
func SetupPostgres(t *testing.T) (string, func()) {
	t.Helper()
	connStr, cleanup, err := Setup()
	if err != nil {
		t.Skipf("skipping: %v", err)
	}
	return connStr, cleanup
}

// WithPassword returns connStr with its password replaced.
func WithPassword(t *testing.T, connStr, password string) string {
	t.Helper()
	u, err := url.Parse(connStr)
	if err != nil {
		t.Fatalf("parse connection string: %v", err)
	}
	u.User = url.UserPassword(u.User.Username(), password)
	return u.String()
}
