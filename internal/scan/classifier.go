package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"scanengine/internal/cache"
	"scanengine/internal/metrics"
	"scanengine/internal/schedule"
)

// Reasons attached to DENIED records. Temporal reasons come from the
// schedule resolver.
const (
	ReasonNoSnapshot    = "download event data first"
	ReasonNotRegistered = "not registered for this event"
)

// Classifier is the single entry point for captured credentials. Every
// call appends exactly one record to the queue; classification conditions
// are resolved locally and surface as record statuses, never as errors.
// Only local storage I/O can fail.
type Classifier struct {
	cache *cache.Repository
	queue *Queue
}

// NewClassifier creates a classifier over the event cache and scan queue.
func NewClassifier(cache *cache.Repository, queue *Queue) *Classifier {
	return &Classifier{cache: cache, queue: queue}
}

// Classify maps a captured credential to an attendance outcome using only
// cached data and the device clock. Branches are evaluated in strict
// order; the first match wins:
//
//  1. no snapshot downloaded            -> DENIED
//  2. no active session right now       -> DENIED (resolver reason)
//  3. credential not on the allowlist   -> DENIED
//  4. student already counted this session -> DUPLICATE
//  5. otherwise PRESENT, or LATE past the session's late threshold
//
// An unregistered credential is DENIED even during an active session, and
// duplicate detection is scoped to the session, not the event: the same
// student legitimately scans once per session (morning-in, morning-out).
func (c *Classifier) Classify(ctx context.Context, eventID, credentialHash string, now time.Time) (Record, error) {
	rec := Record{
		ID:             uuid.NewString(),
		EventID:        eventID,
		CredentialHash: credentialHash,
		ScannedAt:      now.UTC(),
		SyncStatus:     SyncPending,
	}

	snap, err := c.cache.Get(ctx, eventID)
	if err != nil {
		return Record{}, fmt.Errorf("load snapshot: %w", err)
	}

	switch {
	case snap == nil:
		rec.Status = StatusDenied
		rec.Reason = ReasonNoSnapshot

	default:
		res := schedule.Resolve(snap.Schedule, now)
		if res.Active == nil {
			rec.Status = StatusDenied
			rec.Reason = res.Reason
			break
		}
		rec.SessionID = res.Active.ID
		rec.SessionName = res.Active.Name
		rec.SessionDirection = res.Active.Direction

		student, err := c.cache.LookupAllowed(ctx, eventID, credentialHash)
		if err != nil {
			return Record{}, fmt.Errorf("allowlist lookup: %w", err)
		}
		if student == nil {
			rec.Status = StatusDenied
			rec.Reason = ReasonNotRegistered
			break
		}
		rec.StudentID = student.StudentID

		prior, err := c.queue.FindBySessionAndStudent(ctx, eventID, res.Active.ID, student.StudentID)
		if err != nil {
			return Record{}, fmt.Errorf("duplicate lookup: %w", err)
		}
		if prior != nil {
			rec.Status = StatusDuplicate
			rec.Reason = fmt.Sprintf("already scanned for %s", res.Active.Name)
			break
		}

		if schedule.IsLate(*res.Active, now) {
			rec.Status = StatusLate
		} else {
			rec.Status = StatusPresent
		}
	}

	if err := c.queue.Append(ctx, &rec); err != nil {
		return Record{}, fmt.Errorf("append record: %w", err)
	}
	metrics.ScansClassified.WithLabelValues(string(rec.Status)).Inc()
	return rec, nil
}
