package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"campusnest/market/internal/config"
	"campusnest/market/internal/models"
)

// Local events raised by Socket itself, never sent by the server.
const (
	EventConnect         = "connect"
	EventDisconnect      = "disconnect"
	EventReconnectFailed = "reconnect_failed"
)

// ErrNotConnected is returned by Emit while the socket is down.
var ErrNotConnected = errors.New("socket not connected")

// Handler receives the data of an event.
type Handler func(data json.RawMessage)

// SocketOptions configures a client Socket.
type SocketOptions struct {
	URL               string // ws://host/api/ws
	Token             string
	UserID            string
	Role              models.Role
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	Dialer            *websocket.Dialer
}

// Socket is a client connection to the realtime endpoint. It joins the
// user's room on every connect and reconnects a bounded number of times.
type Socket struct {
	opts SocketOptions

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[string][]Handler
	closed   bool
	done     chan struct{}

	writeMu sync.Mutex
}

// WithConfig fills an unset reconnect policy from cfg.
func (o SocketOptions) WithConfig(cfg *config.Config) SocketOptions {
	if o.ReconnectAttempts == 0 {
		o.ReconnectAttempts = cfg.SocketReconnectTries
	}
	if o.ReconnectDelay == 0 {
		o.ReconnectDelay = cfg.SocketReconnectDelay
	}
	return o
}

func NewSocket(opts SocketOptions) *Socket {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &Socket{
		opts:     opts,
		handlers: make(map[string][]Handler),
		done:     make(chan struct{}),
	}
}

// On registers h for event.
func (s *Socket) On(event string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = append(s.handlers[event], h)
}

// Off removes every handler for event.
func (s *Socket) Off(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, event)
}

func (s *Socket) fire(event string, data json.RawMessage) {
	s.mu.Lock()
	hs := append([]Handler(nil), s.handlers[event]...)
	s.mu.Unlock()
	for _, h := range hs {
		h(data)
	}
}

// Connected reports whether a connection is currently open.
func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Connect dials once and starts the read loop. Later drops are retried in the background.
func (s *Socket) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("socket closed")
	}
	s.mu.Unlock()

	ws, err := s.dial(ctx)
	if err != nil {
		return err
	}
	go s.loop(ctx, ws)
	return nil
}

func (s *Socket) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(s.opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid socket url: %w", err)
	}
	q := u.Query()
	q.Set("token", s.opts.Token)
	u.RawQuery = q.Encode()

	ws, _, err := s.opts.Dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", s.opts.URL, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ws.Close()
		return nil, errors.New("socket closed")
	}
	s.conn = ws
	s.mu.Unlock()

	if err := s.Emit(EventJoinRoom, JoinRoomData{UserID: s.opts.UserID, Role: string(s.opts.Role)}); err != nil {
		s.drop(ws)
		return nil, fmt.Errorf("failed to join room: %w", err)
	}
	s.fire(EventConnect, nil)
	return ws, nil
}

func (s *Socket) drop(ws *websocket.Conn) {
	s.mu.Lock()
	if s.conn == ws {
		s.conn = nil
	}
	s.mu.Unlock()
	ws.Close()
}

// loop reads until the connection drops, then reconnects.
func (s *Socket) loop(ctx context.Context, ws *websocket.Conn) {
	for {
		s.read(ws)
		s.drop(ws)
		s.fire(EventDisconnect, nil)

		if s.isClosed() {
			return
		}
		next, ok := s.reconnect(ctx)
		if !ok {
			s.fire(EventReconnectFailed, nil)
			return
		}
		ws = next
	}
}

func (s *Socket) read(ws *websocket.Conn) {
	for {
		var msg Message
		if err := ws.ReadJSON(&msg); err != nil {
			return
		}
		s.fire(msg.Event, msg.Data)
	}
}

func (s *Socket) reconnect(ctx context.Context) (*websocket.Conn, bool) {
	for attempt := 1; attempt <= s.opts.ReconnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, false
		case <-s.done:
			return nil, false
		case <-time.After(s.opts.ReconnectDelay):
		}
		ws, err := s.dial(ctx)
		if err == nil {
			slog.Debug("socket reconnected", "attempt", attempt)
			return ws, true
		}
		slog.Debug("socket reconnect failed", "attempt", attempt, "error", err)
	}
	return nil, false
}

func (s *Socket) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Emit sends an event frame to the server.
func (s *Socket) Emit(event string, payload any) error {
	s.mu.Lock()
	ws := s.conn
	s.mu.Unlock()
	if ws == nil {
		return ErrNotConnected
	}
	frame, err := encode(event, payload)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteMessage(websocket.TextMessage, frame)
}

// Close stops reconnecting and closes the connection.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	ws := s.conn
	s.conn = nil
	s.mu.Unlock()

	if ws == nil {
		return nil
	}
	s.writeMu.Lock()
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	s.writeMu.Unlock()
	return ws.Close()
}
