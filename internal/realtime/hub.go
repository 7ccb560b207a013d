package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrHubBusy is returned when the dispatch queue is full.
var ErrHubBusy = errors.New("realtime hub queue is full")

const connSendBuffer = 64

type outbound struct {
	room  string
	frame []byte
}

// conn is one connected socket as seen by the hub.
type conn struct {
	userID string
	send   chan []byte
	rooms  map[string]struct{}
}

func newConn(userID string) *conn {
	return &conn{
		userID: userID,
		send:   make(chan []byte, connSendBuffer),
		rooms:  make(map[string]struct{}),
	}
}

// Hub fans events out to the connections in a room.
// Delivery never blocks on a slow connection; its frame is dropped instead.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*conn]struct{}
	events chan outbound
}

// NewHub creates a hub with the given dispatch queue size. Call Run to start it.
func NewHub(queue int) *Hub {
	if queue < 1 {
		queue = 256
	}
	return &Hub{
		rooms:  make(map[string]map[*conn]struct{}),
		events: make(chan outbound, queue),
	}
}

// Run dispatches queued events until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	slog.Debug("realtime hub dispatcher started")
	for {
		select {
		case <-ctx.Done():
			slog.Debug("realtime hub dispatcher stopped")
			return
		case ev := <-h.events:
			h.dispatch(ev)
		}
	}
}

func (h *Hub) dispatch(ev outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members, ok := h.rooms[ev.room]
	if !ok {
		slog.Debug("no listeners in room, event dropped", "room", ev.room)
		return
	}
	for c := range members {
		select {
		case c.send <- ev.frame:
		default:
			slog.Warn("connection send buffer full, skipping frame", "room", ev.room, "user_id", c.userID)
		}
	}
}

// Emit queues an event for room.
func (h *Hub) Emit(_ context.Context, room, event string, payload any) error {
	frame, err := encode(event, payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event, err)
	}
	return h.enqueue(room, frame)
}

func (h *Hub) enqueue(room string, frame []byte) error {
	select {
	case h.events <- outbound{room: room, frame: frame}:
		return nil
	default:
		slog.Warn("realtime hub queue full, event dropped", "room", room)
		return ErrHubBusy
	}
}

func (h *Hub) join(c *conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*conn]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

// leave removes c from all its rooms. After it returns the hub never writes to c.send.
func (h *Hub) leave(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range c.rooms {
		members := h.rooms[room]
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	c.rooms = make(map[string]struct{})
}

// RoomSize is the number of connections in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
