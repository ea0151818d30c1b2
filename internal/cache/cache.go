// Package cache persists per-event resource snapshots on the device: the
// event metadata, its session schedule, and the allowed-student index the
// classifier consults on every scan.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"scanengine/internal/schedule"
)

// Snapshot is the locally cached copy of one event. At most one snapshot
// exists per event id; re-downloading replaces it wholesale.
type Snapshot struct {
	EventID      string
	Title        string
	Venue        string
	StartDate    string
	EndDate      string
	Schedule     schedule.Schedule
	DownloadedAt time.Time
}

// AllowedStudent is one allowlist row, keyed by (event, credential hash)
// for O(1) lookup during classification.
type AllowedStudent struct {
	EventID        string
	StudentID      string
	CredentialHash string
	FullName       string
	Grade          string
	Section        string
}

// Repository persists snapshots and allowlist rows in the local store.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo over the local database.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// SaveSnapshot replaces the event's snapshot and allowlist in a single
// transaction. Either everything lands or nothing does; a failed replace
// leaves the previous stale-but-consistent snapshot untouched.
func (r *Repository) SaveSnapshot(ctx context.Context, snap Snapshot, students []AllowedStudent) error {
	if snap.EventID == "" {
		return errors.New("event id required")
	}
	scheduleJSON, err := json.Marshal(snap.Schedule)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	if snap.DownloadedAt.IsZero() {
		snap.DownloadedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO event_snapshots (event_id, title, venue, start_date, end_date, schedule_json, downloaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO UPDATE SET
			title = excluded.title,
			venue = excluded.venue,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			schedule_json = excluded.schedule_json,
			downloaded_at = excluded.downloaded_at
	`, snap.EventID, snap.Title, snap.Venue, snap.StartDate, snap.EndDate, string(scheduleJSON), snap.DownloadedAt.Unix()); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM allowed_students WHERE event_id = ?`, snap.EventID); err != nil {
		return fmt.Errorf("purge allowlist: %w", err)
	}
	for _, s := range students {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO allowed_students (event_id, student_id, credential_hash, full_name, grade, section)
			VALUES (?, ?, ?, ?, ?, ?)
		`, snap.EventID, s.StudentID, s.CredentialHash, s.FullName, s.Grade, s.Section); err != nil {
			return fmt.Errorf("insert allowlist row %s: %w", s.StudentID, err)
		}
	}

	return tx.Commit()
}

// Get returns the cached snapshot for an event, or nil when none was
// downloaded.
func (r *Repository) Get(ctx context.Context, eventID string) (*Snapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT event_id, title, venue, start_date, end_date, schedule_json, downloaded_at
		FROM event_snapshots WHERE event_id = ?
	`, eventID)
	var snap Snapshot
	var scheduleJSON string
	var downloadedAt int64
	if err := row.Scan(&snap.EventID, &snap.Title, &snap.Venue, &snap.StartDate, &snap.EndDate, &scheduleJSON, &downloadedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(scheduleJSON), &snap.Schedule); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}
	snap.DownloadedAt = time.Unix(downloadedAt, 0).UTC()
	return &snap, nil
}

// LookupAllowed returns the allowlist row for a credential, or nil when
// the credential is not registered for the event.
func (r *Repository) LookupAllowed(ctx context.Context, eventID, credentialHash string) (*AllowedStudent, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT event_id, student_id, credential_hash, full_name, grade, section
		FROM allowed_students WHERE event_id = ? AND credential_hash = ?
	`, eventID, credentialHash)
	var s AllowedStudent
	if err := row.Scan(&s.EventID, &s.StudentID, &s.CredentialHash, &s.FullName, &s.Grade, &s.Section); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Count returns the number of allowlist rows cached for an event.
func (r *Repository) Count(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM allowed_students WHERE event_id = ?`, eventID).Scan(&n)
	return n, err
}

// Delete removes the event's snapshot and allowlist. Used when the
// operator clears cached data; queued scan records are left alone.
func (r *Repository) Delete(ctx context.Context, eventID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM allowed_students WHERE event_id = ?`, eventID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM event_snapshots WHERE event_id = ?`, eventID); err != nil {
		return err
	}
	return tx.Commit()
}
