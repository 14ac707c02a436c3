package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const systemSchemas = `('pg_catalog', 'information_schema', 'pg_toast')`

// Inspector reads catalog metadata from a live PostgreSQL database.
type Inspector struct {
	pool *pgxpool.Pool
}

// Connect opens a pool and verifies it, retrying transient failures.
func Connect(ctx context.Context, cfg Config) (*Inspector, error) {
	if cfg.URL == "" {
		return nil, errors.New("no database URL (use --db-url or SQLSPECTRE_DB_URL)")
	}
	return connectWithRetry(ctx, cfg)
}

func connectOnce(ctx context.Context, cfg Config) (*Inspector, error) {
	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Inspector{pool: pool}, nil
}

// Close releases the connection pool.
func (i *Inspector) Close() {
	i.pool.Close()
}

// ServerVersion returns the server_version setting.
func (i *Inspector) ServerVersion(ctx context.Context) (string, error) {
	var version string
	if err := i.pool.QueryRow(ctx, "SHOW server_version").Scan(&version); err != nil {
		return "", fmt.Errorf("server version: %w", err)
	}
	return version, nil
}

// Relations lists user tables and views.
func (i *Inspector) Relations(ctx context.Context) ([]Relation, error) {
	query := `
		SELECT
			n.nspname,
			c.relname,
			CASE WHEN c.relkind IN ('v', 'm') THEN 'view' ELSE 'table' END,
			GREATEST(c.reltuples::bigint, 0)
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind IN ('r', 'p', 'v', 'm', 'f')
			AND n.nspname NOT IN ` + systemSchemas + `
		ORDER BY n.nspname, c.relname`

	rows, err := i.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}
	rels, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Relation, error) {
		var r Relation
		err := row.Scan(&r.Schema, &r.Name, &r.Kind, &r.EstimatedRows)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan relation: %w", err)
	}
	return rels, nil
}

// Columns lists the columns of every user relation.
func (i *Inspector) Columns(ctx context.Context) ([]Column, error) {
	query := `
		SELECT
			table_schema,
			table_name,
			column_name,
			data_type,
			is_nullable = 'YES'
		FROM information_schema.columns
		WHERE table_schema NOT IN ` + systemSchemas + `
		ORDER BY table_schema, table_name, ordinal_position`

	rows, err := i.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	cols, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Column, error) {
		var c Column
		err := row.Scan(&c.Schema, &c.Table, &c.Name, &c.DataType, &c.Nullable)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan column: %w", err)
	}
	return cols, nil
}

// Activity reads scan counters for user tables.
func (i *Inspector) Activity(ctx context.Context) ([]Activity, error) {
	query := `
		SELECT
			schemaname,
			relname,
			COALESCE(seq_scan, 0),
			COALESCE(idx_scan, 0),
			COALESCE(n_live_tup, 0)
		FROM pg_catalog.pg_stat_user_tables
		ORDER BY schemaname, relname`

	rows, err := i.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("table activity: %w", err)
	}
	acts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Activity, error) {
		var a Activity
		err := row.Scan(&a.Schema, &a.Name, &a.SeqScan, &a.IdxScan, &a.LiveTuples)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan activity: %w", err)
	}
	return acts, nil
}

// Inspect reads the full catalog.
func (i *Inspector) Inspect(ctx context.Context) (*Catalog, error) {
	version, err := i.ServerVersion(ctx)
	if err != nil {
		return nil, err
	}
	rels, err := i.Relations(ctx)
	if err != nil {
		return nil, err
	}
	cols, err := i.Columns(ctx)
	if err != nil {
		return nil, err
	}
	acts, err := i.Activity(ctx)
	if err != nil {
		return nil, err
	}
	return &Catalog{
		ServerVersion: version,
		Relations:     rels,
		Columns:       cols,
		Activity:      acts,
	}, nil
}
