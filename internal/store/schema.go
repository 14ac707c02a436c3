package store

// schema is applied on every Open. Statements and findings reference their
// run so several scans can share one file.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    repo TEXT NOT NULL,
    tool_version TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    files INTEGER NOT NULL,
    statements INTEGER NOT NULL,
    unparsed INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS statements (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    path TEXT NOT NULL,
    language TEXT NOT NULL,
    line INTEGER NOT NULL,
    byte_offset INTEGER NOT NULL,
    kind TEXT NOT NULL,
    dynamic INTEGER NOT NULL,
    text TEXT NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS table_refs (
    statement_id INTEGER NOT NULL,
    schema_name TEXT NOT NULL,
    name TEXT NOT NULL,
    alias TEXT NOT NULL,
    object TEXT NOT NULL,
    FOREIGN KEY (statement_id) REFERENCES statements(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS column_refs (
    statement_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    table_name TEXT NOT NULL,
    ambiguous INTEGER NOT NULL,
    FOREIGN KEY (statement_id) REFERENCES statements(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS mappings (
    run_id TEXT NOT NULL,
    path TEXT NOT NULL,
    line INTEGER NOT NULL,
    schema_name TEXT NOT NULL,
    name TEXT NOT NULL,
    pattern TEXT NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS technologies (
    run_id TEXT NOT NULL,
    name TEXT NOT NULL,
    category TEXT NOT NULL,
    version TEXT NOT NULL,
    evidence_path TEXT NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS findings (
    run_id TEXT NOT NULL,
    type TEXT NOT NULL,
    severity TEXT NOT NULL,
    path TEXT NOT NULL,
    line INTEGER NOT NULL,
    schema_name TEXT NOT NULL,
    table_name TEXT NOT NULL,
    column_name TEXT NOT NULL,
    message TEXT NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_statements_run ON statements(run_id);
CREATE INDEX IF NOT EXISTS idx_table_refs_name ON table_refs(name);
CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id);
`
