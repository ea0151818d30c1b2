package capture

import (
	"sync"
	"time"
)

// DefaultDebounceWindow suppresses repeated camera frames of the same
// code. A second physical scan attempt comes later than this and reaches
// the classifier, where it becomes a DUPLICATE business outcome instead.
const DefaultDebounceWindow = 500 * time.Millisecond

// Debouncer suppresses the same raw credential value arriving again
// within the window.
type Debouncer struct {
	mu       sync.Mutex
	window   time.Duration
	lastSeen map[string]time.Time
}

// NewDebouncer creates a debouncer; window <= 0 uses the default.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{
		window:   window,
		lastSeen: make(map[string]time.Time),
	}
}

// Allow reports whether the detection should reach the classifier, and
// records it as the latest sighting when it does.
func (d *Debouncer) Allow(credential string, at time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.lastSeen[credential]; ok && at.Sub(last) < d.window {
		return false
	}
	d.lastSeen[credential] = at
	if len(d.lastSeen) > 4096 {
		d.prune(at)
	}
	return true
}

// prune drops stale entries; callers hold the lock.
func (d *Debouncer) prune(now time.Time) {
	for cred, last := range d.lastSeen {
		if now.Sub(last) >= d.window {
			delete(d.lastSeen, cred)
		}
	}
}
