// Package store exports scan results to a SQLite file for ad-hoc querying.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/sqlspectre/internal/aggregate"
	"github.com/ppiankov/sqlspectre/internal/analyzer"
	"github.com/ppiankov/sqlspectre/internal/techstack"
)

// Run is one scan as written to the store.
type Run struct {
	ID           string
	Repo         string
	ToolVersion  string
	StartedAt    time.Time
	Report       aggregate.Report
	Technologies []techstack.Technology
	Findings     []analyzer.Finding
}

// RunInfo is a stored run header.
type RunInfo struct {
	ID          string
	Repo        string
	ToolVersion string
	StartedAt   time.Time
	Files       int
	Statements  int
	Unparsed    int
}

// Store wraps a SQLite database holding exported runs.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// one writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Export writes run in a single transaction. A run id that already exists
// is rejected.
func (s *Store) Export(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	return s.transaction(ctx, func(tx *sql.Tx) error {
		sum := run.Report.Summary
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO runs (id, repo, tool_version, started_at, files, statements, unparsed)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.Repo, run.ToolVersion, run.StartedAt.UTC(), sum.Files, sum.Statements, sum.Unparsed,
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		if err := insertStatements(ctx, tx, run); err != nil {
			return err
		}
		if err := insertMappings(ctx, tx, run); err != nil {
			return err
		}
		for _, tech := range run.Technologies {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO technologies (run_id, name, category, version, evidence_path) VALUES (?, ?, ?, ?, ?)`,
				run.ID, tech.Name, string(tech.Category), tech.Version, tech.EvidencePath,
			); err != nil {
				return fmt.Errorf("insert technology %s: %w", tech.Name, err)
			}
		}
		for _, f := range run.Findings {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO findings (run_id, type, severity, path, line, schema_name, table_name, column_name, message)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				run.ID, string(f.Type), string(f.Severity), f.File, f.Line, f.Schema, f.Table, f.Column, f.Message,
			); err != nil {
				return fmt.Errorf("insert finding: %w", err)
			}
		}
		return nil
	})
}

func insertStatements(ctx context.Context, tx *sql.Tx, run Run) error {
	stmtIns, err := tx.PrepareContext(ctx,
		`INSERT INTO statements (run_id, path, language, line, byte_offset, kind, dynamic, text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statements: %w", err)
	}
	defer stmtIns.Close()
	tableIns, err := tx.PrepareContext(ctx,
		`INSERT INTO table_refs (statement_id, schema_name, name, alias, object) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare table refs: %w", err)
	}
	defer tableIns.Close()
	colIns, err := tx.PrepareContext(ctx,
		`INSERT INTO column_refs (statement_id, name, table_name, ambiguous) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare column refs: %w", err)
	}
	defer colIns.Close()

	for path, st := range run.Report.Statements() {
		lang := run.Report.Files[path].Language
		res, err := stmtIns.ExecContext(ctx, run.ID, path, lang, st.Line, st.Offset, string(st.Kind), st.Dynamic, st.Text)
		if err != nil {
			return fmt.Errorf("insert statement %s:%d: %w", path, st.Line, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("statement id: %w", err)
		}
		for _, t := range st.Tables {
			if _, err := tableIns.ExecContext(ctx, id, t.Schema, t.Name, t.Alias, t.Object); err != nil {
				return fmt.Errorf("insert table ref %s: %w", t.Name, err)
			}
		}
		for _, c := range st.Columns {
			if _, err := colIns.ExecContext(ctx, id, c.Name, c.Table, c.Ambiguous); err != nil {
				return fmt.Errorf("insert column ref %s: %w", c.Name, err)
			}
		}
	}
	return nil
}

func insertMappings(ctx context.Context, tx *sql.Tx, run Run) error {
	for _, path := range run.Report.Paths() {
		for _, m := range run.Report.Files[path].Mappings {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO mappings (run_id, path, line, schema_name, name, pattern) VALUES (?, ?, ?, ?, ?, ?)`,
				run.ID, path, m.Line, m.Schema, m.Table, m.Pattern,
			); err != nil {
				return fmt.Errorf("insert mapping %s: %w", m.Table, err)
			}
		}
	}
	return nil
}

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, repo, tool_version, started_at, files, statements, unparsed
		 FROM runs ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var r RunInfo
		if err := rows.Scan(&r.ID, &r.Repo, &r.ToolVersion, &r.StartedAt, &r.Files, &r.Statements, &r.Unparsed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TableUsage counts statements per referenced table name for one run.
func (s *Store) TableUsage(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT lower(t.name), count(DISTINCT t.statement_id)
		 FROM table_refs t JOIN statements s ON s.id = t.statement_id
		 WHERE s.run_id = ?
		 GROUP BY lower(t.name)`, runID)
	if err != nil {
		return nil, fmt.Errorf("query table usage: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scan table usage: %w", err)
		}
		out[name] = n
	}
	return out, rows.Err()
}

func (s *Store) transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
