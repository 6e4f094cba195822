package bus

import (
	"context"

	"github.com/yungbote/docreview-backend/internal/realtime"
)

// Bus carries review events between processes. Publish pushes an event to
// every process; StartForwarder invokes onEvent for events arriving from the
// bus, including this process's own publishes.
type Bus interface {
	Publish(ctx context.Context, ev realtime.Event) error
	StartForwarder(ctx context.Context, onEvent func(ev realtime.Event)) error
	Close() error
}
