package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for the persisted model index.
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

// DB returns the underlying *sql.DB for use in transactions.
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
CREATE TABLE IF NOT EXISTS documents (
  id              INTEGER PRIMARY KEY,
  uri             TEXT NOT NULL UNIQUE,
  language        TEXT NOT NULL,
  library         BOOLEAN DEFAULT FALSE,
  hash            TEXT,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS elements (
  id              INTEGER PRIMARY KEY,
  document_id     INTEGER NOT NULL REFERENCES documents(id),
  parent_id       INTEGER REFERENCES elements(id),
  ordinal         INTEGER NOT NULL,
  kind            TEXT NOT NULL,
  name            TEXT,
  short_name      TEXT,
  qualified_name  TEXT,
  visibility      TEXT,
  abstract        BOOLEAN DEFAULT FALSE,
  modifiers       TEXT,
  direction       TEXT,
  lower           INTEGER,
  upper           INTEGER,
  value_expr      TEXT,
  value_initial   BOOLEAN DEFAULT FALSE,
  implied         BOOLEAN DEFAULT FALSE,
  reference_text  TEXT,
  target_name     TEXT,
  resolved        BOOLEAN DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS diagnostics (
  id              INTEGER PRIMARY KEY,
  document_id     INTEGER NOT NULL REFERENCES documents(id),
  element_name    TEXT,
  message         TEXT NOT NULL,
  property        TEXT,
  ordinal         INTEGER
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT
);

CREATE INDEX IF NOT EXISTS idx_documents_language ON documents(language);
CREATE INDEX IF NOT EXISTS idx_elements_document ON elements(document_id);
CREATE INDEX IF NOT EXISTS idx_elements_parent ON elements(parent_id);
CREATE INDEX IF NOT EXISTS idx_elements_name ON elements(name);
CREATE INDEX IF NOT EXISTS idx_elements_kind ON elements(kind);
CREATE INDEX IF NOT EXISTS idx_elements_qualified ON elements(qualified_name);
CREATE INDEX IF NOT EXISTS idx_diagnostics_document ON diagnostics(document_id);
`

// DeleteDocumentData transactionally removes a document and everything
// derived from it. Deletes in reverse-dependency order to respect FK
// constraints.
func (s *Store) DeleteDocumentData(documentID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteDocumentDataTx(tx, documentID); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteDocumentDataTx(tx *sql.Tx, documentID int64) error {
	// Clear the self-referential parent links before deleting element rows.
	for _, q := range []string{
		"UPDATE elements SET parent_id = NULL WHERE document_id = ?",
		"DELETE FROM diagnostics WHERE document_id = ?",
		"DELETE FROM elements WHERE document_id = ?",
		"DELETE FROM documents WHERE id = ?",
	} {
		if _, err := tx.Exec(q, documentID); err != nil {
			return fmt.Errorf("delete document data: %w", err)
		}
	}
	return nil
}

// GetMetadata returns the value for key, or empty string when unset.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata: %w", err)
	}
	return value, nil
}

// SetMetadata upserts the value for key.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata: %w", err)
	}
	return nil
}
