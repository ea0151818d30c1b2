// Package metrics exposes the engine's Prometheus collectors. The engine
// never opens a port; the host application decides whether and where to
// serve the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansClassified counts classification outcomes by status.
	ScansClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scanengine_scans_classified_total",
		Help: "Scan classifications by outcome status.",
	}, []string{"status"})

	// CaptureSuppressed counts raw detections dropped by the debounce
	// window before reaching the classifier.
	CaptureSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanengine_capture_suppressed_total",
		Help: "Repeated capture frames suppressed by the debounce window.",
	})

	// BackendFallbacks counts one-way capture backend switches.
	BackendFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanengine_capture_backend_fallbacks_total",
		Help: "Capture decode backend fallback transitions.",
	})

	// SyncOutcomes counts reconciliation results by kind
	// (uploaded, duplicate, skipped, error).
	SyncOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scanengine_sync_records_total",
		Help: "Sync reconciliation record outcomes.",
	}, []string{"outcome"})
)
