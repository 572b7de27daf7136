// internal/memory/shortterm.go
package memory

import (
	"sync"
	"time"
)

// ShortTermBuffer holds the most recent records for one session. One buffer
// per session keeps cross-session dispatches from contending on a single lock.
// Evicted records are dropped without trace; records flagged Promote survive
// eviction until the consolidation worker picks them up.
type ShortTermBuffer struct {
	mu       sync.Mutex
	capacity int
	window   time.Duration
	records  []Record
}

// NewShortTermBuffer creates a buffer bounded by capacity and a rolling
// time window.
func NewShortTermBuffer(capacity int, window time.Duration) *ShortTermBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ShortTermBuffer{
		capacity: capacity,
		window:   window,
	}
}

// Append adds a record, ordered by arrival, then enforces the bounds.
func (b *ShortTermBuffer) Append(rec Record) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records = append(b.records, rec)
	b.evictLocked(time.Now())
}

// Recent returns up to n records, newest first.
func (b *ShortTermBuffer) Recent(n int) []Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || n > len(b.records) {
		n = len(b.records)
	}
	out := make([]Record, 0, n)
	for i := len(b.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, b.records[i])
	}
	return out
}

// TakeOlderThan removes and returns every record created before cutoff, in
// arrival order. Used by the consolidation worker.
func (b *ShortTermBuffer) TakeOlderThan(cutoff time.Time) []Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	var taken, kept []Record
	for _, rec := range b.records {
		if rec.CreatedAt.Before(cutoff) {
			taken = append(taken, rec)
		} else {
			kept = append(kept, rec)
		}
	}
	b.records = kept
	return taken
}

// Len returns the current number of buffered records.
func (b *ShortTermBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// evictLocked drops the oldest non-promoted records until the buffer fits
// its capacity, then drops non-promoted records outside the time window.
// Caller must hold b.mu.
func (b *ShortTermBuffer) evictLocked(now time.Time) {
	if over := len(b.records) - b.capacity; over > 0 {
		kept := make([]Record, 0, b.capacity)
		for _, rec := range b.records {
			if over > 0 && !rec.Promote {
				over--
				continue
			}
			kept = append(kept, rec)
		}
		b.records = kept
	}

	if b.window <= 0 {
		return
	}
	horizon := now.Add(-b.window)
	kept := b.records[:0]
	for _, rec := range b.records {
		if rec.Promote || !rec.CreatedAt.Before(horizon) {
			kept = append(kept, rec)
		}
	}
	b.records = kept
}
