package capture

import (
	"sync"

	"scanengine/internal/metrics"
)

// Backend identifies a decode backend of the capture front-end.
type Backend string

const (
	BackendPrimary  Backend = "primary"
	BackendFallback Backend = "fallback"
)

// DefaultFallbackThreshold is how many consecutive decode errors the
// primary backend gets before the one-way switch.
const DefaultFallbackThreshold = 3

// BackendSelector is the fallback state machine for the capture
// front-end: after the primary backend fails threshold times in a row it
// switches to the fallback, and never switches back.
type BackendSelector struct {
	mu        sync.Mutex
	threshold int
	errors    int
	current   Backend
}

// NewBackendSelector creates a selector; threshold <= 0 uses the default.
func NewBackendSelector(threshold int) *BackendSelector {
	if threshold <= 0 {
		threshold = DefaultFallbackThreshold
	}
	return &BackendSelector{threshold: threshold, current: BackendPrimary}
}

// Current returns the backend the front-end should decode with.
func (s *BackendSelector) Current() Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// RecordError notes a decode failure and returns the backend to use
// next. The primary->fallback transition happens at the threshold.
func (s *BackendSelector) RecordError() Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == BackendFallback {
		return s.current
	}
	s.errors++
	if s.errors >= s.threshold {
		s.current = BackendFallback
		metrics.BackendFallbacks.Inc()
	}
	return s.current
}

// RecordSuccess resets the consecutive-error count while still on the
// primary backend.
func (s *BackendSelector) RecordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == BackendPrimary {
		s.errors = 0
	}
}
