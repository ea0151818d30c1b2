// Package store opens the device-local SQLite database and the remote
// Postgres system of record.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Local wraps the device-local SQLite database.
type Local struct {
	Client *sql.DB
}

// OpenLocal opens (creating if needed) the local database under dataDir.
// WAL mode keeps reads cheap while the scan loop writes; a single writer
// connection is enough because classification is serialized per device.
func OpenLocal(dataDir string) (*Local, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dataDir, "scanengine.db"))
	if err != nil {
		return nil, fmt.Errorf("open local db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := CreateSchema(db); err != nil {
		return nil, err
	}
	return &Local{Client: db}, nil
}

// OpenMemory opens an in-memory database with the full schema. Used by
// tests and by hosts that treat the cache as disposable.
func OpenMemory() (*Local, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := CreateSchema(db); err != nil {
		return nil, err
	}
	return &Local{Client: db}, nil
}

// Close closes the underlying connection.
func (l *Local) Close() error {
	if l == nil || l.Client == nil {
		return nil
	}
	return l.Client.Close()
}
