// internal/core/services/debounce.go
package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultDebounceWindow is how long a code stays suppressed after a scan
// when the seller neither acts on nor clears the result.
const DefaultDebounceWindow = 4 * time.Second

// ScanDebouncer suppresses repeat reads of the same barcode while a prior
// resolution for that code is awaiting seller action. A camera held over a
// label emits the same code many times per second; without suppression each
// read would trigger a resolution.
//
// Suppression is keyed by (owner, code): scanning a second, different code
// proceeds immediately, and sellers never debounce each other.
//
// The debouncer is plain in-memory state with no ties to any capture
// pipeline, so it is testable with a fake clock.
type ScanDebouncer struct {
	mu      sync.Mutex
	entries map[string]time.Time
	window  time.Duration
	now     func() time.Time
}

func NewScanDebouncer(window time.Duration) *ScanDebouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &ScanDebouncer{
		entries: make(map[string]time.Time),
		window:  window,
		now:     time.Now,
	}
}

// Observe records a scan of code. It returns true when the scan should be
// processed and false while the code is inside its suppression window.
// The window is NOT extended by suppressed reads, so a held scanner
// re-triggers once the original window elapses.
func (d *ScanDebouncer) Observe(ownerID uuid.UUID, code string) bool {
	key := ownerID.String() + ":" + code
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.sweepLocked(now)

	if deadline, ok := d.entries[key]; ok && now.Before(deadline) {
		return false
	}
	d.entries[key] = now.Add(d.window)
	return true
}

// Clear releases the suppression for code immediately, letting the next
// read resolve again. Called when the seller acts on a resolution (adds to
// cart, quick-registers) or dismisses it.
func (d *ScanDebouncer) Clear(ownerID uuid.UUID, code string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, ownerID.String()+":"+code)
}

// sweepLocked drops expired entries so the map does not grow with every
// distinct code ever scanned. Caller holds mu.
func (d *ScanDebouncer) sweepLocked(now time.Time) {
	for key, deadline := range d.entries {
		if !now.Before(deadline) {
			delete(d.entries, key)
		}
	}
}
