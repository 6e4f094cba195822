package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/docreview-backend/internal/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvEvent(t *testing.T, ch <-chan Event, timeout time.Duration) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for event")
	}
	return Event{}
}

func TestHubBroadcastOrdering(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	userID := uuid.New()
	reviewID := uuid.New()

	client := hub.Register(userID, reviewID)

	first := Event{Type: EventCellProcessingStarted, ReviewID: reviewID, UserID: userID, Payload: map[string]any{"seq": 1}}
	second := Event{Type: EventCellCompleted, ReviewID: reviewID, UserID: userID, Payload: map[string]any{"seq": 2}}
	hub.Broadcast(first)
	hub.Broadcast(second)

	gotFirst := recvEvent(t, client.Outbound, time.Second)
	gotSecond := recvEvent(t, client.Outbound, time.Second)
	if gotFirst.Type != EventCellProcessingStarted {
		t.Fatalf("first event: want=%s got=%s", EventCellProcessingStarted, gotFirst.Type)
	}
	if gotSecond.Type != EventCellCompleted {
		t.Fatalf("second event: want=%s got=%s", EventCellCompleted, gotSecond.Type)
	}
}

func TestHubFiltersByReview(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	userID := uuid.New()
	watched := uuid.New()
	other := uuid.New()

	client := hub.Register(userID, watched)

	hub.Broadcast(Event{Type: EventCellCompleted, ReviewID: other, UserID: userID})
	hub.Broadcast(Event{Type: EventAnalysisCompleted, ReviewID: watched, UserID: userID})

	got := recvEvent(t, client.Outbound, time.Second)
	if got.Type != EventAnalysisCompleted || got.ReviewID != watched {
		t.Fatalf("expected only the watched review's event, got type=%s review=%s", got.Type, got.ReviewID)
	}
	select {
	case ev := <-client.Outbound:
		t.Fatalf("unexpected extra event: %s", ev.Type)
	default:
	}
}

func TestHubDropsWhenMailboxFull(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	userID := uuid.New()
	reviewID := uuid.New()

	client := hub.Register(userID, reviewID)

	// one past capacity; the overflow event must be dropped, not block
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < clientMailboxSize+1; i++ {
			hub.Broadcast(Event{Type: EventCellCompleted, ReviewID: reviewID, UserID: userID, Payload: map[string]any{"seq": i}})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("broadcast blocked on a full mailbox")
	}

	received := 0
	for {
		select {
		case <-client.Outbound:
			received++
		default:
			if received != clientMailboxSize {
				t.Fatalf("delivered events: want=%d got=%d", clientMailboxSize, received)
			}
			return
		}
	}
}

func TestHubUnregister(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	userID := uuid.New()
	reviewID := uuid.New()

	client := hub.Register(userID, reviewID)
	if got := hub.ClientCount(userID); got != 1 {
		t.Fatalf("client count after register: want=1 got=%d", got)
	}

	hub.Unregister(client)
	if got := hub.ClientCount(userID); got != 0 {
		t.Fatalf("client count after unregister: want=0 got=%d", got)
	}
	select {
	case <-client.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("done channel should close on unregister")
	}

	// double unregister must not panic
	hub.Unregister(client)
}
