// Package realtime pushes per-user events over websockets. Users listen in a
// room named after their role and id, e.g. student_<id>.
package realtime

import (
	"context"
	"encoding/json"
)

// Event names sent to clients.
const (
	EventNewNotification     = "new_notification"
	EventNewVisitRequest     = "new_visit_request"
	EventVisitConfirmed      = "visit_confirmed"
	EventVisitRescheduled    = "visit_rescheduled"
	EventVisitRejected       = "visit_rejected"
	EventNewJoinRequest      = "new_join_request"
	EventJoinRequestApproved = "join_request_approved"
	EventJoinRequestRejected = "join_request_rejected"
	EventMetricsUpdated      = "metrics_updated"
	EventReputationUpdated   = "reputation_updated"

	// Frames exchanged on the socket itself.
	EventJoinRoom   = "join_room"
	EventRoomJoined = "room_joined"
	EventError      = "error"
)

// Message is the wire frame in both directions.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinRoomData is the payload of a join_room frame.
type JoinRoomData struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// Emitter sends an event to every connection in a room.
type Emitter interface {
	Emit(ctx context.Context, room, event string, payload any) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, room, event string, payload any) error

func (f EmitterFunc) Emit(ctx context.Context, room, event string, payload any) error {
	return f(ctx, room, event, payload)
}

// Discard drops every event.
var Discard Emitter = EmitterFunc(func(context.Context, string, string, any) error { return nil })

func encode(event string, payload any) ([]byte, error) {
	var data json.RawMessage
	switch v := payload.(type) {
	case nil:
	case json.RawMessage:
		data = v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		data = raw
	}
	return json.Marshal(Message{Event: event, Data: data})
}
