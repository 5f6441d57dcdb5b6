package match

import (
	"sync"
	"time"
)

// DefaultWindowSpan is how far back the hit/miss counters reach.
const DefaultWindowSpan = 24 * time.Hour

type event struct {
	at  time.Time
	hit bool
}

// Window keeps a rolling record of match outcomes for the stats surface.
// Events older than the span fall out of the counts on the next access.
type Window struct {
	mu     sync.Mutex
	span   time.Duration
	events []event
	now    func() time.Time
}

func NewWindow(span time.Duration) *Window {
	if span <= 0 {
		span = DefaultWindowSpan
	}
	return &Window{span: span, now: time.Now}
}

func (w *Window) RecordHit()  { w.record(true) }
func (w *Window) RecordMiss() { w.record(false) }

func (w *Window) record(hit bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked()
	w.events = append(w.events, event{at: w.now(), hit: hit})
}

// Stats returns hit and miss counts inside the window.
func (w *Window) Stats() (hits, misses int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked()
	for _, e := range w.events {
		if e.hit {
			hits++
		} else {
			misses++
		}
	}
	return hits, misses
}

func (w *Window) pruneLocked() {
	cutoff := w.now().Add(-w.span)
	idx := 0
	for idx < len(w.events) && w.events[idx].at.Before(cutoff) {
		idx++
	}
	if idx > 0 {
		w.events = append(w.events[:0], w.events[idx:]...)
	}
}
