package syncer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"scanengine/internal/cache"
	"scanengine/internal/scan"
	"scanengine/internal/schedule"
)

// uniqueViolation is the Postgres error code for a uniqueness conflict.
const uniqueViolation = "23505"

// PostgresRemote implements Remote against the central Postgres store.
//
// It touches three tables, migrated elsewhere by the admin application:
//
//	events               (id, title, venue, start_date, end_date, schedule_json)
//	event_students       (event_id, student_id, credential_hash, full_name, grade, section)
//	event_sessions       (id, event_id, name, period, direction, opens_at, closes_at, late_after)
//	                     UNIQUE (event_id, name)
//	attendance_records   (id, session_id, student_id, scanned_at, status)
//	                     UNIQUE (session_id, student_id)
//
// The attendance uniqueness constraint is the cross-device arbiter: when
// two offline devices scanned the same student, the second upload loses
// cleanly.
type PostgresRemote struct {
	db *sql.DB
}

// NewPostgresRemote creates a remote over an open Postgres connection.
func NewPostgresRemote(db *sql.DB) *PostgresRemote {
	return &PostgresRemote{db: db}
}

// FetchEventSnapshot downloads the event row and its full allowlist.
func (p *PostgresRemote) FetchEventSnapshot(ctx context.Context, eventID string) (*cache.Snapshot, []cache.AllowedStudent, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, title, venue, start_date, end_date, schedule_json
		FROM events WHERE id = $1
	`, eventID)
	var snap cache.Snapshot
	var scheduleJSON string
	if err := row.Scan(&snap.EventID, &snap.Title, &snap.Venue, &snap.StartDate, &snap.EndDate, &scheduleJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("event %s not found", eventID)
		}
		return nil, nil, err
	}
	if err := json.Unmarshal([]byte(scheduleJSON), &snap.Schedule); err != nil {
		return nil, nil, fmt.Errorf("decode remote schedule: %w", err)
	}
	snap.DownloadedAt = time.Now().UTC()

	rows, err := p.db.QueryContext(ctx, `
		SELECT event_id, student_id, credential_hash, full_name, grade, section
		FROM event_students WHERE event_id = $1
	`, eventID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var students []cache.AllowedStudent
	for rows.Next() {
		var s cache.AllowedStudent
		if err := rows.Scan(&s.EventID, &s.StudentID, &s.CredentialHash, &s.FullName, &s.Grade, &s.Section); err != nil {
			return nil, nil, err
		}
		students = append(students, s)
	}
	return &snap, students, rows.Err()
}

// EnsureSession lazily materializes the remote session entity. Matching
// is by event + name; the insert tolerates a concurrent device winning
// the race.
func (p *PostgresRemote) EnsureSession(ctx context.Context, eventID string, sess schedule.Session) (string, error) {
	var id string
	err := p.db.QueryRowContext(ctx, `
		SELECT id FROM event_sessions WHERE event_id = $1 AND name = $2
	`, eventID, sess.Name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	var lateAfter *string
	if sess.LateAfter != nil {
		s := sess.LateAfter.String()
		lateAfter = &s
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO event_sessions (id, event_id, name, period, direction, opens_at, closes_at, late_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id, name) DO NOTHING
	`, uuid.NewString(), eventID, sess.Name, string(sess.Period), string(sess.Direction),
		sess.OpensAt.String(), sess.ClosesAt.String(), lateAfter)
	if err != nil {
		return "", err
	}

	// Re-read: either our insert landed or another device's did.
	err = p.db.QueryRowContext(ctx, `
		SELECT id FROM event_sessions WHERE event_id = $1 AND name = $2
	`, eventID, sess.Name).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("session %q not resolvable after insert: %w", sess.Name, err)
	}
	return id, nil
}

// InsertAttendance inserts one attendance entry, converting the remote
// uniqueness violation into ErrDuplicate.
func (p *PostgresRemote) InsertAttendance(ctx context.Context, remoteSessionID string, rec scan.Record) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO attendance_records (id, session_id, student_id, scanned_at, status)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.ID, remoteSessionID, rec.StudentID, rec.ScannedAt, string(rec.Status))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return err
	}
	return nil
}
