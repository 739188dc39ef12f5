package ws

import (
	"context"
	"encoding/json"

	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"viewport-relay/internal/app"
	"viewport-relay/internal/relay"
)

// BusMessage carries one accepted location update between relay instances.
// Origin lets an instance skip frames it published itself.
type BusMessage struct {
	RoomID  string          `json:"roomId"`
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

type Bus struct {
	rdb    *redis.Client
	log    *slog.Logger
	origin string
}

// NewBus connects to redis and verifies connectivity
func NewBus(ctx context.Context, cfg app.Config, log *slog.Logger) (*Bus, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Bus{rdb: rdb, log: log, origin: uuid.NewString()}, nil
}

// PublishLocation sends an accepted update to the room's channel.
// Implements relay.Bus.
func (b *Bus) PublishLocation(ctx context.Context, roomID string, env relay.Envelope) error {
	payload, _ := json.Marshal(env)
	raw, _ := json.Marshal(BusMessage{RoomID: roomID, Origin: b.origin, Payload: payload})
	return b.rdb.Publish(ctx, channel(roomID), raw).Err()
}

// Subscribe listens to all room channels and invokes fn for every frame
// published by another instance.
func (b *Bus) Subscribe(ctx context.Context, fn func(roomID string, env relay.Envelope)) {
	pubsub := b.rdb.PSubscribe(ctx, channel("*"))
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			_ = pubsub.Close()
			return
		case msg := <-ch:
			var bm BusMessage
			if err := json.Unmarshal([]byte(msg.Payload), &bm); err != nil {
				continue
			}
			if bm.RoomID == "" || bm.Origin == b.origin {
				continue
			}
			var env relay.Envelope
			if err := json.Unmarshal(bm.Payload, &env); err != nil {
				continue
			}
			fn(bm.RoomID, env)
		}
	}
}

// Close shuts down the redis connection
func (b *Bus) Close() { _ = b.rdb.Close() }

// channel namespacing for room pub/sub
func channel(roomID string) string { return "room:" + roomID }
