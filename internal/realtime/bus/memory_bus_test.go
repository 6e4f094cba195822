package bus

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/docreview-backend/internal/realtime"
)

func TestMemoryBusLoopback(t *testing.T) {
	b := NewMemoryBus()
	defer b.Close()

	var got []realtime.Event
	if err := b.StartForwarder(context.Background(), func(ev realtime.Event) {
		got = append(got, ev)
	}); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}

	ev := realtime.Event{Type: realtime.EventCellCompleted, ReviewID: uuid.New(), Origin: "proc-a"}
	if err := b.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("forwarded events: want=1 got=%d", len(got))
	}
	if got[0].Type != realtime.EventCellCompleted || got[0].Origin != "proc-a" {
		t.Fatalf("event not delivered intact: %+v", got[0])
	}
}

func TestMemoryBusClosed(t *testing.T) {
	b := NewMemoryBus()
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := b.Publish(context.Background(), realtime.Event{}); err == nil {
		t.Fatalf("publish on a closed bus should fail")
	}
	if err := b.StartForwarder(context.Background(), func(realtime.Event) {}); err == nil {
		t.Fatalf("forwarder registration on a closed bus should fail")
	}
}
