package sink

import (
	"sync"

	"github.com/adalundhe/dirsentry/core/change"
)

// DefaultRingSize is the default number of events retained by a Ring.
const DefaultRingSize = 256

// Ring keeps the most recent events in a fixed-size buffer for read-only
// consumers such as the dashboard.
type Ring struct {
	mu    sync.RWMutex
	items []change.Event
	next  int
	count int
	total uint64
}

// NewRing creates a ring holding up to size events.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Ring{items: make([]change.Event, size)}
}

// Emit stores event, overwriting the oldest one when full.
func (r *Ring) Emit(event change.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[r.next] = event
	r.next = (r.next + 1) % len(r.items)
	if r.count < len(r.items) {
		r.count++
	}
	r.total++
}

// Recent returns up to limit of the newest events, oldest first. A limit of
// zero or less returns everything retained.
func (r *Ring) Recent(limit int) []change.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.count
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]change.Event, n)
	start := (r.next - n + len(r.items)) % len(r.items)
	for i := 0; i < n; i++ {
		out[i] = r.items[(start+i)%len(r.items)]
	}
	return out
}

// Len returns the number of retained events.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Total returns the number of events ever emitted to the ring.
func (r *Ring) Total() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total
}
