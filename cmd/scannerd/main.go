package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"scanengine/internal/cache"
	"scanengine/internal/capture"
	"scanengine/internal/config"
	"scanengine/internal/scan"
	"scanengine/internal/store"
	"scanengine/internal/syncer"
)

// Scannerd runs the device scan loop: it caches the event's resources,
// classifies credentials from the capture feed, and periodically
// reconciles the local queue with the remote store.
func main() {
	cfg := config.Load()
	if cfg.EventID == "" {
		log.Fatal("EVENT_ID is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	local, err := store.OpenLocal(cfg.DataDir)
	if err != nil {
		log.Fatalf("local db open failed: %v", err)
	}
	defer local.Close()

	cacheRepo := cache.NewRepository(local.Client)
	queue := scan.NewQueue(local.Client)
	classifier := scan.NewClassifier(cacheRepo, queue)

	var feed capture.Feed
	if cfg.FeedBackend == "redis" {
		redisClient := store.NewRedis(cfg.RedisAddr)
		if !redisClient.Healthy(ctx) {
			log.Printf("warning: redis not reachable at %s", cfg.RedisAddr)
		}
		feed = capture.NewRedisFeed(redisClient.Client, cfg.FeedKey)
	} else {
		feed = capture.NewInMemory(64)
	}

	// The remote store is optional at startup; the device scans offline
	// and reconciles whenever connectivity exists.
	var reconciler *syncer.Reconciler
	remote, err := store.NewRemote(cfg.RemoteDatabaseURL)
	if err != nil {
		log.Printf("warning: remote store not reachable, running offline: %v", err)
	} else {
		defer remote.Close()
		pg := syncer.NewPostgresRemote(remote.Client)
		reconciler = syncer.NewReconciler(pg, queue, cacheRepo)

		if snap, err := cacheRepo.Get(ctx, cfg.EventID); err != nil {
			log.Fatalf("snapshot check failed: %v", err)
		} else if snap == nil {
			dl := syncer.NewDownloader(pg, cacheRepo)
			snap, n, err := dl.Download(ctx, cfg.EventID)
			if err != nil {
				log.Printf("warning: snapshot download failed, scans will be denied until one exists: %v", err)
			} else {
				log.Printf("cached event %q with %d allowed student(s)", snap.Title, n)
			}
		}
	}

	if reconciler != nil {
		go runSyncLoop(ctx, reconciler, cfg)
	}

	engine := capture.NewEngine(feed, classifier, cfg.EventID, cfg.DebounceWindow, func(rec scan.Record) {
		log.Printf("scan %s: %s %s", rec.ID, rec.Status, rec.Reason)
	})

	log.Println("scanner started, waiting for detections...")
	if err := engine.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("scan loop failed: %v", err)
	}
	log.Println("scanner stopped")
}
