package snapshot

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/adalundhe/dirsentry/core/fingerprint"
	"github.com/adalundhe/dirsentry/core/storage"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshot (
	path   TEXT PRIMARY KEY,
	digest TEXT NOT NULL
);
`

// SQLiteStore persists a snapshot in a SQLite table. Save replaces the table
// contents inside one transaction, so readers never see a partial snapshot.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	inited bool
}

// NewSQLiteStore prepares a handle on the database at path without touching
// the filesystem. The file and its directory are created by the first Save;
// the schema is created on first use so that a corrupt file surfaces from
// Load as a *MalformedStoreError rather than failing construction.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &StoreError{Op: "open", Path: path, Err: err}
	}
	// One connection keeps the WAL pragma and transactions on the same handle.
	db.SetMaxOpenConns(1)

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// ensureSchema enables WAL and creates the table once.
func (s *SQLiteStore) ensureSchema() error {
	if s.inited {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := s.db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	s.inited = true
	return nil
}

// Load reads every row of the snapshot table. A missing database yields an
// empty snapshot and is not created.
func (s *SQLiteStore) Load() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inited {
		if _, err := os.Stat(s.path); os.IsNotExist(err) {
			return Snapshot{}, nil
		}
	}

	if err := s.ensureSchema(); err != nil {
		return Snapshot{}, &MalformedStoreError{Path: s.path, Err: err}
	}

	rows, err := s.db.Query("SELECT path, digest FROM snapshot")
	if err != nil {
		return Snapshot{}, &MalformedStoreError{Path: s.path, Err: err}
	}
	defer rows.Close()

	snap := Snapshot{}
	for rows.Next() {
		var raw []byte
		var digest string
		if err := rows.Scan(&raw, &digest); err != nil {
			return Snapshot{}, &MalformedStoreError{Path: s.path, Err: err}
		}
		path := string(raw)
		if err := validateDigest(path, fingerprint.Digest(digest)); err != nil {
			return Snapshot{}, &MalformedStoreError{Path: s.path, Err: err}
		}
		snap[path] = fingerprint.Digest(digest)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, &MalformedStoreError{Path: s.path, Err: err}
	}

	return snap, nil
}

// Save replaces the table contents with snap in a single transaction.
func (s *SQLiteStore) Save(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := storage.EnsureParent(s.path); err != nil {
		return &StoreError{Op: "mkdir", Path: s.path, Err: err}
	}
	if err := s.ensureSchema(); err != nil {
		return &StoreError{Op: "init", Path: s.path, Err: err}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return &StoreError{Op: "begin", Path: s.path, Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM snapshot"); err != nil {
		return &StoreError{Op: "clear", Path: s.path, Err: err}
	}

	stmt, err := tx.Prepare("INSERT INTO snapshot (path, digest) VALUES (?, ?)")
	if err != nil {
		return &StoreError{Op: "prepare", Path: s.path, Err: err}
	}
	defer stmt.Close()

	// Paths are bound as bytes so names that are not valid UTF-8 are
	// stored unchanged.
	for path, digest := range snap {
		if _, err := stmt.Exec([]byte(path), string(digest)); err != nil {
			return &StoreError{Op: "insert", Path: s.path, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StoreError{Op: "commit", Path: s.path, Err: err}
	}
	return nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
