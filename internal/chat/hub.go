package chat

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"socialnet/internal/ws"
)

// redisChannel carries chat events between instances when horizontal
// scaling is on.
const redisChannel = "chat.events"

// roomEvent pairs a broadcast payload with its room key.
type roomEvent struct {
	Room    string `json:"room"`
	Payload []byte `json:"payload"`
}

// Hub owns the chat connection registry and serializes broadcasts: one run
// loop delivers events in the order they were processed, so ordering within
// a room follows event order. With a redis client attached, events take a
// round trip through pub/sub so every instance (this one included) fans out
// to its own local connections.
type Hub struct {
	Registry *ws.Registry

	redis *redis.Client
	log   *zap.Logger

	broadcast chan roomEvent
}

func NewHub(redisClient *redis.Client, log *zap.Logger) *Hub {
	return &Hub{
		Registry:  ws.NewRegistry(),
		redis:     redisClient,
		log:       log,
		broadcast: make(chan roomEvent, 64),
	}
}

// Broadcast hands an enriched payload to the fan-out path for a room.
func (h *Hub) Broadcast(ctx context.Context, room string, payload []byte) {
	if h.redis != nil {
		data, err := json.Marshal(roomEvent{Room: room, Payload: payload})
		if err != nil {
			h.log.Error("marshal room event", zap.Error(err))
			return
		}
		if err := h.redis.Publish(ctx, redisChannel, data).Err(); err != nil {
			h.log.Error("redis publish failed", zap.Error(err))
		}
		return
	}
	select {
	case h.broadcast <- roomEvent{Room: room, Payload: payload}:
	case <-ctx.Done():
	}
}

// Run drains the broadcast channel until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case ev := <-h.broadcast:
			h.deliver(ev)
		case <-ctx.Done():
			return
		}
	}
}

// SubscribeToRedis pipes events published by any instance into the local
// broadcast loop. No-op without a redis client.
func (h *Hub) SubscribeToRedis(ctx context.Context) {
	if h.redis == nil {
		return
	}
	pubsub := h.redis.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev roomEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				h.log.Error("bad room event from redis", zap.Error(err))
				continue
			}
			select {
			case h.broadcast <- ev:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// deliver fans an event out to every connection in the room. A connection
// holding an addressed-to restriction (prospective DM identified by
// username) only receives the event when it belongs to that exact user:
// a third party guessing the username path must read nothing.
func (h *Hub) deliver(ev roomEvent) {
	h.Registry.Each(ev.Room, func(c *ws.Client) {
		if c.AddressedTo != uuid.Nil {
			u := c.Identity.User()
			if u == nil || u.ID != c.AddressedTo {
				return
			}
		}
		c.Deliver(ev.Payload)
	})
}
