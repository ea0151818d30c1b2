package capture

import (
	"context"
	"log"
	"time"

	"scanengine/internal/metrics"
	"scanengine/internal/scan"
)

// Engine is the single scan loop of one device: it consumes the feed,
// debounces repeated frames, classifies each surviving credential, and
// reports the outcome for display. Classification is serialized, one
// credential at a time.
type Engine struct {
	feed       Feed
	classifier *scan.Classifier
	eventID    string
	debounce   *Debouncer
	onResult   func(scan.Record)
}

// NewEngine creates a scan loop for one event. onResult may be nil when
// the host does not render outcomes.
func NewEngine(feed Feed, classifier *scan.Classifier, eventID string, window time.Duration, onResult func(scan.Record)) *Engine {
	return &Engine{
		feed:       feed,
		classifier: classifier,
		eventID:    eventID,
		debounce:   NewDebouncer(window),
		onResult:   onResult,
	}
}

// Run consumes the feed until the context is cancelled. Classification
// failures (local storage I/O) are logged and the loop keeps going; a
// scan device must not die mid-event.
func (e *Engine) Run(ctx context.Context) error {
	dets, err := e.feed.Consume(ctx)
	if err != nil {
		return err
	}
	for det := range dets {
		if det.Credential == "" {
			continue
		}
		at := det.At
		if at.IsZero() {
			at = time.Now()
		}
		if !e.debounce.Allow(det.Credential, at) {
			metrics.CaptureSuppressed.Inc()
			continue
		}
		rec, err := e.classifier.Classify(ctx, e.eventID, det.Credential, at)
		if err != nil {
			log.Printf("classify failed for credential: %v", err)
			continue
		}
		if e.onResult != nil {
			e.onResult(rec)
		}
	}
	return ctx.Err()
}
