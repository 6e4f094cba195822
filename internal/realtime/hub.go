package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/docreview-backend/internal/logger"
)

const clientMailboxSize = 64

// Client is one connected stream (SSE or socket) belonging to a user.
// Delivery into Outbound is non-blocking; a full mailbox drops the event
// rather than stalling the publisher.
type Client struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	ReviewID uuid.UUID
	Outbound chan Event
	done     chan struct{}
	closing  sync.Once
}

// Done is closed when the hub evicts the client.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

type Hub struct {
	mu      sync.RWMutex
	log     *logger.Logger
	clients map[uuid.UUID]map[*Client]bool
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:     log.With("component", "Hub"),
		clients: make(map[uuid.UUID]map[*Client]bool),
	}
}

// Register creates a client subscribed to one review's events and attaches
// it to the owning user's fanout set.
func (hub *Hub) Register(userID, reviewID uuid.UUID) *Client {
	client := &Client{
		ID:       uuid.New(),
		UserID:   userID,
		ReviewID: reviewID,
		Outbound: make(chan Event, clientMailboxSize),
		done:     make(chan struct{}),
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()

	set, exists := hub.clients[userID]
	if !exists {
		set = make(map[*Client]bool)
		hub.clients[userID] = set
	}
	set[client] = true

	hub.log.Debug("client registered", "clientID", client.ID, "userID", userID, "reviewID", reviewID)
	return client
}

func (hub *Hub) Unregister(client *Client) {
	hub.mu.Lock()
	if set, ok := hub.clients[client.UserID]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(hub.clients, client.UserID)
		}
	}
	hub.mu.Unlock()

	client.closing.Do(func() {
		close(client.done)
	})
	hub.log.Debug("client unregistered", "clientID", client.ID, "userID", client.UserID)
}

// Broadcast delivers ev to every client of ev.UserID watching ev.ReviewID.
func (hub *Hub) Broadcast(ev Event) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	set, ok := hub.clients[ev.UserID]
	if !ok {
		return
	}
	for c := range set {
		if c.ReviewID != ev.ReviewID {
			continue
		}
		select {
		case c.Outbound <- ev:
		default:
			hub.log.Warn("dropping event; client mailbox full", "clientID", c.ID, "type", ev.Type)
		}
	}
}

// ClientCount reports the connected clients for a user, used by the
// healthcheck and by tests.
func (hub *Hub) ClientCount(userID uuid.UUID) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.clients[userID])
}
