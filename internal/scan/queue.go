package scan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"scanengine/internal/schedule"
)

// Queue is the append-only local store of scan records.
type Queue struct {
	db *sql.DB
}

// NewQueue creates a queue over the local database.
func NewQueue(db *sql.DB) *Queue {
	return &Queue{db: db}
}

const recordColumns = `id, event_id, student_id, credential_hash, scanned_at, status, reason,
		session_id, session_name, session_direction, sync_status, created_at`

// Append inserts a new record. Missing id, timestamps and sync status are
// filled in. Re-inserting an id already present is a no-op, so replaying
// a capture burst cannot double-append.
func (q *Queue) Append(ctx context.Context, rec *Record) error {
	if rec.EventID == "" {
		return errors.New("event id required")
	}
	if !rec.Status.Valid() {
		return fmt.Errorf("invalid status %q", rec.Status)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.ScannedAt.IsZero() {
		rec.ScannedAt = time.Now().UTC()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.SyncStatus == "" {
		rec.SyncStatus = SyncPending
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO scan_records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.EventID, rec.StudentID, rec.CredentialHash, rec.ScannedAt.Unix(), string(rec.Status),
		rec.Reason, rec.SessionID, rec.SessionName, string(rec.SessionDirection), string(rec.SyncStatus), rec.CreatedAt.Unix())
	return err
}

// FindBySessionAndStudent returns a prior counted (PRESENT/LATE) record
// for the student in the session, or nil. DUPLICATE and DENIED rows never
// block a fresh attempt.
func (q *Queue) FindBySessionAndStudent(ctx context.Context, eventID, sessionID, studentID string) (*Record, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM scan_records
		WHERE event_id = ? AND session_id = ? AND student_id = ?
		  AND status IN ('PRESENT', 'LATE')
		ORDER BY scanned_at
		LIMIT 1
	`, eventID, sessionID, studentID)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// ListPending returns the event's unsynced records in capture order.
func (q *Queue) ListPending(ctx context.Context, eventID string) ([]Record, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM scan_records
		WHERE event_id = ? AND sync_status = 'pending'
		ORDER BY created_at, id
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *rec)
	}
	return res, rows.Err()
}

// MarkSynced flips the given records to synced. Ids already synced or
// unknown are ignored.
func (q *Queue) MarkSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := q.db.ExecContext(ctx, `
		UPDATE scan_records SET sync_status = 'synced'
		WHERE id IN (`+placeholders+`)
	`, args...)
	return err
}

// CountByStatus returns how many records of each status the event has,
// regardless of sync state. Operators use this for the tally screen.
func (q *Queue) CountByStatus(ctx context.Context, eventID string) (map[Status]int, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM scan_records WHERE event_id = ? GROUP BY status
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var scannedAt, createdAt int64
	var status, direction, syncStatus string
	if err := row.Scan(&rec.ID, &rec.EventID, &rec.StudentID, &rec.CredentialHash, &scannedAt, &status,
		&rec.Reason, &rec.SessionID, &rec.SessionName, &direction, &syncStatus, &createdAt); err != nil {
		return nil, err
	}
	rec.ScannedAt = time.Unix(scannedAt, 0).UTC()
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	rec.Status = Status(status)
	rec.SessionDirection = schedule.Direction(direction)
	rec.SyncStatus = SyncStatus(syncStatus)
	return &rec, nil
}
