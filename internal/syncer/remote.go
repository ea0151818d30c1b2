// Package syncer reconciles the device-local scan queue with the remote
// system of record. It is the only component that touches the network;
// classification never does.
package syncer

import (
	"context"
	"errors"

	"scanengine/internal/cache"
	"scanengine/internal/scan"
	"scanengine/internal/schedule"
)

// ErrDuplicate is returned by InsertAttendance when the remote uniqueness
// constraint already holds an entry for (session, student). It is a
// success signal, not a fault: it is how multi-device races resolve.
var ErrDuplicate = errors.New("attendance already recorded remotely")

// Remote is the narrow surface of the remote system of record consumed by
// the engine. Injected so tests substitute a fake.
type Remote interface {
	// FetchEventSnapshot downloads one event's metadata, schedule and
	// allowlist for local caching.
	FetchEventSnapshot(ctx context.Context, eventID string) (*cache.Snapshot, []cache.AllowedStudent, error)

	// EnsureSession resolves the remote session entity matched by event
	// and session name, creating it from the definition if absent, and
	// returns its remote id.
	EnsureSession(ctx context.Context, eventID string, sess schedule.Session) (string, error)

	// InsertAttendance inserts one attendance entry under the remote
	// session. Returns ErrDuplicate when the entry already exists.
	InsertAttendance(ctx context.Context, remoteSessionID string, rec scan.Record) error
}
