package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestBufferSnapshotMarksReplayed(t *testing.T) {
	buf := NewBuffer(mustTestLogger(t))
	reviewID := uuid.New()
	userID := uuid.New()

	buf.Append(Event{Type: EventAnalysisStarted, ReviewID: reviewID, UserID: userID})
	buf.Append(Event{Type: EventCellCompleted, ReviewID: reviewID, UserID: userID})

	snap := buf.Snapshot(reviewID)
	if len(snap) != 2 {
		t.Fatalf("snapshot length: want=2 got=%d", len(snap))
	}
	if snap[0].Type != EventAnalysisStarted || snap[1].Type != EventCellCompleted {
		t.Fatalf("snapshot order wrong: %s, %s", snap[0].Type, snap[1].Type)
	}
	for i, ev := range snap {
		if !ev.Replayed {
			t.Fatalf("snapshot[%d] should be marked replayed", i)
		}
	}

	// originals stay unmarked
	again := buf.Snapshot(reviewID)
	if len(again) != 2 {
		t.Fatalf("second snapshot length: want=2 got=%d", len(again))
	}
}

func TestBufferBoundedRetention(t *testing.T) {
	buf := NewBuffer(mustTestLogger(t))
	reviewID := uuid.New()

	for i := 0; i < bufferCapacity+25; i++ {
		buf.Append(Event{Type: EventCellCompleted, ReviewID: reviewID, Payload: map[string]any{"seq": i}})
	}

	snap := buf.Snapshot(reviewID)
	if len(snap) != bufferCapacity {
		t.Fatalf("retained events: want=%d got=%d", bufferCapacity, len(snap))
	}
	// oldest surviving event is the 26th appended
	if got := snap[0].Payload["seq"].(int); got != 25 {
		t.Fatalf("oldest retained seq: want=25 got=%d", got)
	}
	if got := snap[len(snap)-1].Payload["seq"].(int); got != bufferCapacity+24 {
		t.Fatalf("newest retained seq: want=%d got=%d", bufferCapacity+24, got)
	}
}

func TestBufferDrop(t *testing.T) {
	buf := NewBuffer(mustTestLogger(t))
	reviewID := uuid.New()

	buf.Append(Event{Type: EventCellCompleted, ReviewID: reviewID})
	buf.Drop(reviewID)
	if snap := buf.Snapshot(reviewID); snap != nil {
		t.Fatalf("snapshot after drop should be nil, got %d events", len(snap))
	}
}

func TestBufferSweep(t *testing.T) {
	buf := NewBuffer(mustTestLogger(t))
	stale := uuid.New()
	fresh := uuid.New()
	kept := uuid.New()

	buf.Append(Event{Type: EventCellCompleted, ReviewID: stale})
	buf.Append(Event{Type: EventCellCompleted, ReviewID: kept})
	buf.reviews[stale].lastActive = time.Now().Add(-3 * time.Hour)
	buf.reviews[kept].lastActive = time.Now().Add(-3 * time.Hour)
	buf.Append(Event{Type: EventCellCompleted, ReviewID: fresh})

	removed := buf.Sweep(2*time.Hour, func(id uuid.UUID) bool { return id == kept })
	if removed != 1 {
		t.Fatalf("swept buffers: want=1 got=%d", removed)
	}
	if buf.Snapshot(stale) != nil {
		t.Fatalf("stale buffer should be gone")
	}
	if buf.Snapshot(kept) == nil {
		t.Fatalf("kept buffer should survive the sweep")
	}
	if buf.Snapshot(fresh) == nil {
		t.Fatalf("fresh buffer should survive the sweep")
	}
}

func TestBufferSweepReleasesLockDuringKeep(t *testing.T) {
	buf := NewBuffer(mustTestLogger(t))
	stale := uuid.New()
	revived := uuid.New()

	buf.Append(Event{Type: EventCellCompleted, ReviewID: stale})
	buf.Append(Event{Type: EventCellCompleted, ReviewID: revived})
	buf.reviews[stale].lastActive = time.Now().Add(-3 * time.Hour)
	buf.reviews[revived].lastActive = time.Now().Add(-3 * time.Hour)

	// The keep callback appends concurrently, which deadlocks if the sweep
	// still holds the buffer lock while calling it. Appending to a stale
	// review mid-sweep also revives it.
	removed := buf.Sweep(2*time.Hour, func(id uuid.UUID) bool {
		buf.Append(Event{Type: EventCellCompleted, ReviewID: revived})
		return false
	})
	if removed != 1 {
		t.Fatalf("swept buffers: want=1 got=%d", removed)
	}
	if buf.Snapshot(stale) != nil {
		t.Fatalf("stale buffer should be gone")
	}
	if buf.Snapshot(revived) == nil {
		t.Fatalf("buffer appended to during the sweep should survive")
	}
}
