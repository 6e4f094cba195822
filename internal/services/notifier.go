package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/docreview-backend/internal/logger"
	"github.com/yungbote/docreview-backend/internal/realtime"
	"github.com/yungbote/docreview-backend/internal/realtime/bus"
)

// NotifierService is the single publish path for review events: every event
// is buffered for replay, fanned out to local clients, and pushed onto the
// cross-process bus. Events arriving back from the bus that carry this
// process's origin are skipped, since they were already delivered locally.
type NotifierService interface {
	Publish(ctx context.Context, ev realtime.Event)
	Replay(reviewID uuid.UUID) []realtime.Event
	DropReview(reviewID uuid.UUID)
	StartForwarder(ctx context.Context) error
	StartSweeper(ctx context.Context, interval, maxAge time.Duration, keep func(reviewID uuid.UUID) bool)
}

type notifierService struct {
	log    *logger.Logger
	hub    *realtime.Hub
	buffer *realtime.Buffer
	bus    bus.Bus
	origin string
}

func NewNotifierService(hub *realtime.Hub, buffer *realtime.Buffer, eventBus bus.Bus, baseLog *logger.Logger) NotifierService {
	return &notifierService{
		log:    baseLog.With("service", "NotifierService"),
		hub:    hub,
		buffer: buffer,
		bus:    eventBus,
		origin: uuid.NewString(),
	}
}

func (ns *notifierService) Publish(ctx context.Context, ev realtime.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	ev.Origin = ns.origin

	ns.buffer.Append(ev)
	ns.hub.Broadcast(ev)

	if err := ns.bus.Publish(ctx, ev); err != nil {
		ns.log.Warn("failed to publish event to bus", "type", ev.Type, "reviewID", ev.ReviewID, "error", err)
	}
}

func (ns *notifierService) Replay(reviewID uuid.UUID) []realtime.Event {
	return ns.buffer.Snapshot(reviewID)
}

func (ns *notifierService) DropReview(reviewID uuid.UUID) {
	ns.buffer.Drop(reviewID)
}

func (ns *notifierService) StartForwarder(ctx context.Context) error {
	return ns.bus.StartForwarder(ctx, func(ev realtime.Event) {
		if ev.Origin == ns.origin {
			return
		}
		ns.buffer.Append(ev)
		ns.hub.Broadcast(ev)
	})
}

// StartSweeper periodically discards replay buffers for reviews that have
// been idle longer than maxAge, unless keep says otherwise.
func (ns *notifierService) StartSweeper(ctx context.Context, interval, maxAge time.Duration, keep func(reviewID uuid.UUID) bool) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ns.buffer.Sweep(maxAge, keep)
			}
		}
	}()
}
