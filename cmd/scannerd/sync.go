package main

import (
	"context"
	"log"
	"time"

	"scanengine/internal/config"
	"scanengine/internal/syncer"
)

// runSyncLoop reconciles the pending queue on a fixed interval until the
// context is cancelled. Failures are logged and retried wholesale on the
// next tick; the remote insert path is idempotent.
func runSyncLoop(ctx context.Context, reconciler *syncer.Reconciler, cfg config.App) {
	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := reconciler.Upload(ctx, cfg.EventID)
			if err != nil {
				log.Printf("sync pass failed, will retry: %v", err)
				continue
			}
			if res.Uploaded+res.Duplicates+res.Skipped+res.Errors > 0 {
				log.Printf("sync: uploaded=%d duplicates=%d skipped=%d errors=%d",
					res.Uploaded, res.Duplicates, res.Skipped, res.Errors)
			}
		}
	}
}
