package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/docreview-backend/internal/logger"
)

const bufferCapacity = 100

type reviewBuffer struct {
	events     []Event
	lastActive time.Time
}

// Buffer retains the most recent events per review so a client that
// reconnects mid-run can replay what it missed. Retention is bounded at
// bufferCapacity events per review; older entries are discarded oldest-first.
type Buffer struct {
	mu      sync.Mutex
	log     *logger.Logger
	reviews map[uuid.UUID]*reviewBuffer
}

func NewBuffer(log *logger.Logger) *Buffer {
	return &Buffer{
		log:     log.With("component", "EventBuffer"),
		reviews: make(map[uuid.UUID]*reviewBuffer),
	}
}

func (b *Buffer) Append(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rb, ok := b.reviews[ev.ReviewID]
	if !ok {
		rb = &reviewBuffer{events: make([]Event, 0, bufferCapacity)}
		b.reviews[ev.ReviewID] = rb
	}
	if len(rb.events) >= bufferCapacity {
		copy(rb.events, rb.events[1:])
		rb.events = rb.events[:bufferCapacity-1]
	}
	rb.events = append(rb.events, ev)
	rb.lastActive = time.Now()
}

// Snapshot returns copies of the buffered events for a review, oldest first,
// each marked Replayed so clients can distinguish catch-up from live traffic.
func (b *Buffer) Snapshot(reviewID uuid.UUID) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	rb, ok := b.reviews[reviewID]
	if !ok {
		return nil
	}
	out := make([]Event, len(rb.events))
	copy(out, rb.events)
	for i := range out {
		out[i].Replayed = true
	}
	return out
}

func (b *Buffer) Drop(reviewID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.reviews, reviewID)
}

// Sweep removes buffers idle for longer than maxAge when keep reports the
// review no longer needs retention, and returns how many were removed.
// The keep callback may hit storage, so it runs with the lock released;
// Append and Snapshot are never blocked behind it.
func (b *Buffer) Sweep(maxAge time.Duration, keep func(reviewID uuid.UUID) bool) int {
	cutoff := time.Now().Add(-maxAge)

	b.mu.Lock()
	var stale []uuid.UUID
	for id, rb := range b.reviews {
		if !rb.lastActive.After(cutoff) {
			stale = append(stale, id)
		}
	}
	b.mu.Unlock()

	var expired []uuid.UUID
	for _, id := range stale {
		if keep != nil && keep(id) {
			continue
		}
		expired = append(expired, id)
	}

	b.mu.Lock()
	removed := 0
	for _, id := range expired {
		rb, ok := b.reviews[id]
		if !ok || rb.lastActive.After(cutoff) {
			// Revived by an Append while the keep checks ran.
			continue
		}
		delete(b.reviews, id)
		removed++
	}
	b.mu.Unlock()

	if removed > 0 {
		b.log.Info("swept stale event buffers", "removed", removed)
	}
	return removed
}
