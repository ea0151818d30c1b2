package store

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates the three local tables: event snapshots, the
// allowed-student index, and the scan queue. Safe to call repeatedly.
func CreateSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

const schema = `
-- One snapshot per downloaded event; replaced wholesale on re-download.
CREATE TABLE IF NOT EXISTS event_snapshots (
    event_id      TEXT PRIMARY KEY,
    title         TEXT NOT NULL,
    venue         TEXT NOT NULL DEFAULT '',
    start_date    TEXT NOT NULL,
    end_date      TEXT NOT NULL,
    schedule_json TEXT NOT NULL,
    downloaded_at INTEGER NOT NULL
);

-- Allowlist rows, bulk-replaced with the snapshot in one transaction.
CREATE TABLE IF NOT EXISTS allowed_students (
    event_id        TEXT NOT NULL,
    student_id      TEXT NOT NULL,
    credential_hash TEXT NOT NULL,
    full_name       TEXT NOT NULL,
    grade           TEXT NOT NULL DEFAULT '',
    section         TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (event_id, credential_hash)
);

-- Append-only scan queue; rows are never deleted (audit trail), only the
-- sync_status flips pending -> synced.
CREATE TABLE IF NOT EXISTS scan_records (
    id                TEXT PRIMARY KEY,
    event_id          TEXT NOT NULL,
    student_id        TEXT NOT NULL DEFAULT '',
    credential_hash   TEXT NOT NULL,
    scanned_at        INTEGER NOT NULL,
    status            TEXT NOT NULL CHECK (status IN ('PRESENT','LATE','DENIED','DUPLICATE')),
    reason            TEXT NOT NULL DEFAULT '',
    session_id        TEXT NOT NULL DEFAULT '',
    session_name      TEXT NOT NULL DEFAULT '',
    session_direction TEXT NOT NULL DEFAULT '',
    sync_status       TEXT NOT NULL DEFAULT 'pending' CHECK (sync_status IN ('pending','synced')),
    created_at        INTEGER NOT NULL
);

-- Duplicate lookup during classification.
CREATE INDEX IF NOT EXISTS idx_scan_records_session_student
    ON scan_records(event_id, session_id, student_id);

-- Drain path for the sync reconciler.
CREATE INDEX IF NOT EXISTS idx_scan_records_sync_status
    ON scan_records(event_id, sync_status);
`
