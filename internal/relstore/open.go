package relstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure-Go driver; avoids a second cgo dependency alongside bleve/hnsw
)

// OpenConfig controls the pragmas applied when a connection is opened.
// Defaults mirror the store contract in the component design: WAL
// journaling, foreign keys enabled, a busy-timeout, a negative
// (KiB) cache-size budget, and NORMAL synchronous.
type OpenConfig struct {
	BusyTimeoutMs int
	CacheSizeKiB  int // negative cache_size pragma value is -CacheSizeKiB
}

// DefaultOpenConfig returns the documented defaults (5s busy-timeout).
func DefaultOpenConfig() OpenConfig {
	return OpenConfig{BusyTimeoutMs: 5000, CacheSizeKiB: 20000}
}

// Open opens (creating if necessary) the relational store at path and
// applies the mandated pragmas. The pipeline owns the returned handle for
// the duration of a job; DAOs are pure functions over it.
func Open(path string, cfg OpenConfig) (*sql.DB, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	// _txlock=immediate makes db.BeginTx start a BEGIN IMMEDIATE rather
	// than a deferred transaction, matching the indexing pipeline's
	// requirement to take the write lock up front instead of on first write.
	dsn += "?_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Single-writer embedded store: one physical connection avoids
	// modernc.org/sqlite's per-connection isolated in-process state
	// racing on writes.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeoutMs),
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA cache_size = -%d", cfg.CacheSizeKiB),
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func applySchema(db *sql.DB) error {
	_, err := db.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
	project_id     TEXT PRIMARY KEY,
	repo_root      TEXT NOT NULL UNIQUE,
	default_ref    TEXT NOT NULL,
	vcs_mode       TEXT NOT NULL DEFAULT 'git',
	schema_version INTEGER NOT NULL DEFAULT 1,
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS known_workspaces (
	project_id  TEXT PRIMARY KEY REFERENCES projects(project_id),
	repo_root   TEXT NOT NULL,
	registered_at TEXT NOT NULL,
	last_used_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS branch_state (
	project_id            TEXT NOT NULL REFERENCES projects(project_id),
	ref                   TEXT NOT NULL,
	last_indexed_commit   TEXT NOT NULL DEFAULT '',
	merge_base_commit     TEXT NOT NULL DEFAULT '',
	overlay_dir           TEXT,
	file_count            INTEGER NOT NULL DEFAULT 0,
	symbol_count          INTEGER NOT NULL DEFAULT 0,
	is_default            INTEGER NOT NULL DEFAULT 0,
	status                TEXT NOT NULL DEFAULT 'indexing',
	eviction_eligible_at  TEXT,
	created_at            TEXT NOT NULL,
	updated_at            TEXT NOT NULL,
	last_used_at          TEXT NOT NULL,
	PRIMARY KEY (project_id, ref)
);

CREATE TABLE IF NOT EXISTS file_manifest (
	project_id   TEXT NOT NULL,
	ref          TEXT NOT NULL,
	path         TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	size_bytes   INTEGER NOT NULL,
	mtime_ns     INTEGER,
	language     TEXT,
	indexed_at   TEXT NOT NULL,
	PRIMARY KEY (project_id, ref, path)
);

CREATE TABLE IF NOT EXISTS symbol_relations (
	project_id       TEXT NOT NULL,
	ref              TEXT NOT NULL,
	symbol_id        TEXT NOT NULL,
	symbol_stable_id TEXT NOT NULL,
	name             TEXT NOT NULL,
	qualified_name   TEXT NOT NULL,
	kind             TEXT NOT NULL,
	path             TEXT NOT NULL,
	line_start       INTEGER NOT NULL,
	line_end         INTEGER NOT NULL,
	parent_symbol_id TEXT,
	visibility       TEXT,
	signature        TEXT,
	content          TEXT,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL,
	PRIMARY KEY (project_id, ref, symbol_id)
);
CREATE INDEX IF NOT EXISTS idx_symbols_path ON symbol_relations(project_id, ref, path, line_start);
CREATE INDEX IF NOT EXISTS idx_symbols_qualified ON symbol_relations(project_id, ref, qualified_name);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbol_relations(project_id, ref, name, line_start);
CREATE INDEX IF NOT EXISTS idx_symbols_stable ON symbol_relations(project_id, ref, symbol_stable_id);

CREATE TABLE IF NOT EXISTS symbol_edges (
	project_id     TEXT NOT NULL,
	ref            TEXT NOT NULL,
	from_symbol_id TEXT NOT NULL,
	to_symbol_id   TEXT,
	to_name        TEXT,
	edge_type      TEXT NOT NULL,
	confidence     TEXT NOT NULL,
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_edges_from ON symbol_edges(project_id, ref, from_symbol_id);
CREATE UNIQUE INDEX IF NOT EXISTS uq_edges ON symbol_edges(project_id, ref, from_symbol_id, to_symbol_id, to_name, edge_type);

CREATE TABLE IF NOT EXISTS symbol_call_edges (
	project_id     TEXT NOT NULL,
	ref            TEXT NOT NULL,
	from_symbol_id TEXT NOT NULL,
	to_symbol_id   TEXT,
	to_name        TEXT,
	source_file    TEXT NOT NULL,
	source_line    INTEGER NOT NULL,
	confidence     TEXT NOT NULL,
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_call_edges_from ON symbol_call_edges(project_id, ref, from_symbol_id);
CREATE INDEX IF NOT EXISTS idx_call_edges_to ON symbol_call_edges(project_id, ref, to_symbol_id);
CREATE INDEX IF NOT EXISTS idx_call_edges_source ON symbol_call_edges(project_id, ref, source_file);

CREATE TABLE IF NOT EXISTS index_jobs (
	job_id            TEXT PRIMARY KEY,
	project_id        TEXT NOT NULL,
	ref               TEXT NOT NULL,
	mode              TEXT NOT NULL,
	status            TEXT NOT NULL,
	retry_count       INTEGER NOT NULL DEFAULT 0,
	files_scanned     INTEGER NOT NULL DEFAULT 0,
	files_indexed     INTEGER NOT NULL DEFAULT 0,
	symbols_extracted INTEGER NOT NULL DEFAULT 0,
	changed_files     INTEGER NOT NULL DEFAULT 0,
	duration_ms       INTEGER,
	error_message     TEXT,
	created_at        TEXT NOT NULL,
	updated_at        TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_index_jobs_active
	ON index_jobs(project_id, ref)
	WHERE status IN ('queued', 'running', 'validating');

CREATE TABLE IF NOT EXISTS semantic_enrichment_queue (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id      TEXT NOT NULL,
	ref             TEXT NOT NULL,
	path            TEXT NOT NULL,
	generation      INTEGER NOT NULL,
	status          TEXT NOT NULL,
	retry_count     INTEGER NOT NULL DEFAULT 0,
	last_error_code TEXT,
	next_attempt_at TEXT,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_queue_triple ON semantic_enrichment_queue(project_id, ref, path, generation DESC);
CREATE INDEX IF NOT EXISTS idx_queue_pending ON semantic_enrichment_queue(status, next_attempt_at, id);

CREATE TABLE IF NOT EXISTS semantic_vectors (
	project_id       TEXT NOT NULL,
	ref              TEXT NOT NULL,
	symbol_stable_id TEXT NOT NULL,
	snippet_hash     TEXT NOT NULL,
	model_version    TEXT NOT NULL,
	dimensions       INTEGER NOT NULL,
	path             TEXT NOT NULL,
	line_start       INTEGER NOT NULL,
	line_end         INTEGER NOT NULL,
	chunk_type       TEXT NOT NULL,
	vector           BLOB NOT NULL,
	created_at       TEXT NOT NULL,
	PRIMARY KEY (project_id, ref, symbol_stable_id, snippet_hash, model_version)
);

CREATE TABLE IF NOT EXISTS worktree_leases (
	project_id    TEXT NOT NULL,
	ref           TEXT NOT NULL,
	worktree_path TEXT NOT NULL DEFAULT '',
	owner_pid     INTEGER NOT NULL DEFAULT 0,
	refcount      INTEGER NOT NULL DEFAULT 0,
	status        TEXT NOT NULL DEFAULT 'stale',
	created_at    TEXT NOT NULL,
	last_used_at  TEXT NOT NULL,
	PRIMARY KEY (project_id, ref)
);
`
