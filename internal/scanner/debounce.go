package scanner

import (
	"sync"
	"time"
)

// DefaultDebounceWindow is how long a repeated key stays suppressed.
const DefaultDebounceWindow = 3 * time.Second

const pruneThreshold = 1024

// Debouncer suppresses a key seen again within the window. Safe for
// concurrent use.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	seen   map[string]time.Time
}

// NewDebouncer creates a Debouncer. A nil clock uses time.Now; a zero window
// disables suppression.
func NewDebouncer(window time.Duration, now func() time.Time) *Debouncer {
	if now == nil {
		now = time.Now
	}
	return &Debouncer{window: window, now: now, seen: make(map[string]time.Time)}
}

// Allow reports whether key should be processed and records it if so.
func (d *Debouncer) Allow(key string) bool {
	if d == nil || d.window <= 0 {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.seen[key]; ok && now.Sub(last) < d.window {
		return false
	}
	d.seen[key] = now
	if len(d.seen) > pruneThreshold {
		d.prune(now)
	}
	return true
}

// Reset forgets key so the next Allow passes.
func (d *Debouncer) Reset(key string) {
	if d == nil {
		return
	}
	d.mu.Lock()
	delete(d.seen, key)
	d.mu.Unlock()
}

func (d *Debouncer) prune(now time.Time) {
	for k, t := range d.seen {
		if now.Sub(t) >= d.window {
			delete(d.seen, k)
		}
	}
}
