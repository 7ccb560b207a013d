package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// envelope is what travels over the Redis channel.
type envelope struct {
	Room  string          `json:"room"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RedisBridge publishes events to a Redis channel and, when subscribed,
// feeds events from that channel into a local hub. Workers without sockets
// publish through it; every API instance subscribes.
type RedisBridge struct {
	rdb     redis.UniversalClient
	channel string
	hub     *Hub
}

// NewRedisBridge creates a bridge. hub may be nil for publish-only processes.
func NewRedisBridge(rdb redis.UniversalClient, channel string, hub *Hub) *RedisBridge {
	return &RedisBridge{rdb: rdb, channel: channel, hub: hub}
}

// Emit publishes the event for every subscribed instance.
func (b *RedisBridge) Emit(ctx context.Context, room, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event, err)
	}
	msg, err := json.Marshal(envelope{Room: room, Event: event, Data: raw})
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, msg).Err(); err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", event, b.channel, err)
	}
	return nil
}

// Subscribe relays channel messages to the hub until ctx is done.
func (b *RedisBridge) Subscribe(ctx context.Context) error {
	if b.hub == nil {
		return fmt.Errorf("realtime bridge has no hub to deliver to")
	}

	pubsub := b.rdb.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	// wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}
	slog.Info("realtime bridge subscribed", "channel", b.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
				slog.Warn("dropping malformed realtime message", "error", err)
				continue
			}
			if err := b.hub.Emit(ctx, env.Room, env.Event, env.Data); err != nil {
				slog.Warn("failed to relay realtime message", "room", env.Room, "event", env.Event, "error", err)
			}
		}
	}
}
