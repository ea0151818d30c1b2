package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"scanengine/internal/cache"
	"scanengine/internal/metrics"
	"scanengine/internal/scan"
	"scanengine/internal/schedule"
)

// Result summarizes one reconciliation pass.
type Result struct {
	Uploaded   int
	Duplicates int
	Skipped    int
	Errors     int

	// UploadedIDs are the record ids applied remotely (inserted or
	// duplicate-resolved) and flipped to synced locally.
	UploadedIDs []string
}

// Reconciler drains the pending scan queue into the remote store
// exactly-once per (event, session, student).
type Reconciler struct {
	remote Remote
	queue  *scan.Queue
	cache  *cache.Repository
}

// NewReconciler creates a reconciler.
func NewReconciler(remote Remote, queue *scan.Queue, cache *cache.Repository) *Reconciler {
	return &Reconciler{remote: remote, queue: queue, cache: cache}
}

// Upload pushes the event's pending records to the remote store.
//
// DENIED and DUPLICATE records are local-only audit rows and are skipped.
// The rest are grouped by session; each group's remote session entity is
// lazily materialized, and a failure there leaves the group pending
// without blocking other groups. A remote uniqueness violation counts as
// a duplicate and is treated as success, which makes the whole pass
// idempotent and safe to retry after partial failure or a multi-device
// race. Cancellation aborts before anything is marked synced; rows
// already applied remotely resolve as duplicates on the next pass.
func (r *Reconciler) Upload(ctx context.Context, eventID string) (Result, error) {
	var res Result

	pending, err := r.queue.ListPending(ctx, eventID)
	if err != nil {
		return Result{}, fmt.Errorf("list pending: %w", err)
	}
	if len(pending) == 0 {
		return res, nil
	}

	// Session definitions come from the cached snapshot; records whose
	// session is no longer in the schedule fall back to what the record
	// itself carries.
	var sched schedule.Schedule
	if snap, err := r.cache.Get(ctx, eventID); err == nil && snap != nil {
		sched = snap.Schedule
	}

	groups := make(map[string][]scan.Record)
	var order []string
	for _, rec := range pending {
		if !rec.Status.Attended() || rec.StudentID == "" || rec.SessionID == "" {
			res.Skipped++
			metrics.SyncOutcomes.WithLabelValues("skipped").Inc()
			continue
		}
		if _, ok := groups[rec.SessionID]; !ok {
			order = append(order, rec.SessionID)
		}
		groups[rec.SessionID] = append(groups[rec.SessionID], rec)
	}

	for _, sessionID := range order {
		recs := groups[sessionID]

		sess := schedule.FindSession(sched, sessionID)
		if sess == nil {
			sess = &schedule.Session{
				ID:        sessionID,
				Name:      recs[0].SessionName,
				Direction: recs[0].SessionDirection,
			}
		}

		remoteSessionID, err := r.remote.EnsureSession(ctx, eventID, *sess)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			log.Printf("sync: session %q not materialized, leaving %d record(s) pending: %v", sess.Name, len(recs), err)
			res.Errors += len(recs)
			metrics.SyncOutcomes.WithLabelValues("error").Add(float64(len(recs)))
			continue
		}

		for _, rec := range recs {
			switch err := r.remote.InsertAttendance(ctx, remoteSessionID, rec); {
			case err == nil:
				res.Uploaded++
				res.UploadedIDs = append(res.UploadedIDs, rec.ID)
				metrics.SyncOutcomes.WithLabelValues("uploaded").Inc()
			case errors.Is(err, ErrDuplicate):
				res.Duplicates++
				res.UploadedIDs = append(res.UploadedIDs, rec.ID)
				metrics.SyncOutcomes.WithLabelValues("duplicate").Inc()
			default:
				if ctx.Err() != nil {
					return Result{}, ctx.Err()
				}
				log.Printf("sync: record %s not applied, leaving pending: %v", rec.ID, err)
				res.Errors++
				metrics.SyncOutcomes.WithLabelValues("error").Inc()
			}
		}
	}

	if err := r.queue.MarkSynced(ctx, res.UploadedIDs); err != nil {
		return Result{}, fmt.Errorf("mark synced: %w", err)
	}
	return res, nil
}

// Downloader fetches an event snapshot from the remote store into the
// local cache, making the device ready to scan offline.
type Downloader struct {
	remote Remote
	cache  *cache.Repository
}

// NewDownloader creates a downloader.
func NewDownloader(remote Remote, cache *cache.Repository) *Downloader {
	return &Downloader{remote: remote, cache: cache}
}

// Download replaces the local snapshot and allowlist for the event and
// returns the snapshot plus the number of allowlist rows cached.
func (d *Downloader) Download(ctx context.Context, eventID string) (*cache.Snapshot, int, error) {
	snap, students, err := d.remote.FetchEventSnapshot(ctx, eventID)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch snapshot: %w", err)
	}
	snap.DownloadedAt = time.Now().UTC()
	if err := d.cache.SaveSnapshot(ctx, *snap, students); err != nil {
		return nil, 0, fmt.Errorf("cache snapshot: %w", err)
	}
	return snap, len(students), nil
}
