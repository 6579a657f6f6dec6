package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrExportNotFound is returned when an export ID is not in the archive.
var ErrExportNotFound = errors.New("export not found")

// Store is the SQLite data access layer for the export archive.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for read-only script queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS exports (
  id              TEXT PRIMARY KEY,
  entry_label     TEXT NOT NULL,
  node_count      INTEGER NOT NULL,
  edge_count      INTEGER NOT NULL,
  tree_hash       TEXT NOT NULL,
  created_at      TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS nodes (
  id              INTEGER PRIMARY KEY,
  export_id       TEXT NOT NULL REFERENCES exports(id),
  key             TEXT NOT NULL,
  tag             TEXT NOT NULL,
  file            TEXT,
  line            INTEGER,
  ordinal         INTEGER NOT NULL,
  UNIQUE(export_id, key)
);

CREATE TABLE IF NOT EXISTS edges (
  id              INTEGER PRIMARY KEY,
  export_id       TEXT NOT NULL REFERENCES exports(id),
  parent_key      TEXT NOT NULL,
  child_key       TEXT NOT NULL,
  ordinal         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS game_files (
  export_id       TEXT NOT NULL REFERENCES exports(id),
  path            TEXT NOT NULL,
  ordinal         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS images (
  export_id       TEXT NOT NULL REFERENCES exports(id),
  name            TEXT NOT NULL,
  ordinal         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS diagnostics (
  id              INTEGER PRIMARY KEY,
  export_id       TEXT NOT NULL REFERENCES exports(id),
  kind            TEXT NOT NULL,
  node_key        TEXT NOT NULL,
  file            TEXT,
  line            INTEGER,
  target          TEXT,
  message         TEXT
);

CREATE TABLE IF NOT EXISTS python_targets (
  id              INTEGER PRIMARY KEY,
  export_id       TEXT NOT NULL REFERENCES exports(id),
  node_key        TEXT NOT NULL,
  function        TEXT NOT NULL,
  label           TEXT,
  dynamic         BOOLEAN DEFAULT FALSE,
  file            TEXT,
  line            INTEGER
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_nodes_tag ON nodes(export_id, tag);
CREATE INDEX IF NOT EXISTS idx_nodes_file ON nodes(export_id, file);
CREATE INDEX IF NOT EXISTS idx_edges_parent ON edges(export_id, parent_key);
CREATE INDEX IF NOT EXISTS idx_edges_child ON edges(export_id, child_key);
CREATE INDEX IF NOT EXISTS idx_diagnostics_export ON diagnostics(export_id);
CREATE INDEX IF NOT EXISTS idx_python_targets_export ON python_targets(export_id);
`

// metaLatestExport names the metadata row holding the most recent export ID.
const metaLatestExport = "latest_export"

// SetMetadata stores a key/value pair, replacing any existing value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec("INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("set metadata: %w", err)
	}
	return nil
}

// GetMetadata returns the value for key, or "" if it is not set.
func (s *Store) GetMetadata(key string) (string, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata: %w", err)
	}
	return v, nil
}

// DeleteExport removes an export and every row that belongs to it. If it
// was the latest export, the latest pointer moves to the newest remaining
// export.
func (s *Store) DeleteExport(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM python_targets WHERE export_id = ?",
		"DELETE FROM diagnostics WHERE export_id = ?",
		"DELETE FROM images WHERE export_id = ?",
		"DELETE FROM game_files WHERE export_id = ?",
		"DELETE FROM edges WHERE export_id = ?",
		"DELETE FROM nodes WHERE export_id = ?",
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return fmt.Errorf("delete export data: %w", err)
		}
	}
	res, err := tx.Exec("DELETE FROM exports WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete export: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete export %s: %w", id, ErrExportNotFound)
	}

	var latest string
	err = tx.QueryRow("SELECT value FROM metadata WHERE key = ?", metaLatestExport).Scan(&latest)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("read latest export: %w", err)
	}
	if latest == id {
		var next string
		err := tx.QueryRow("SELECT id FROM exports ORDER BY created_at DESC, rowid DESC LIMIT 1").Scan(&next)
		switch {
		case err == sql.ErrNoRows:
			if _, err := tx.Exec("DELETE FROM metadata WHERE key = ?", metaLatestExport); err != nil {
				return fmt.Errorf("clear latest export: %w", err)
			}
		case err != nil:
			return fmt.Errorf("find newest export: %w", err)
		default:
			if _, err := tx.Exec("UPDATE metadata SET value = ? WHERE key = ?", next, metaLatestExport); err != nil {
				return fmt.Errorf("update latest export: %w", err)
			}
		}
	}

	return tx.Commit()
}
