package notification

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"socialnet/internal/ws"
)

const redisChannel = "notification.events"

// event pairs the raw relay payload with the notification id used for
// recipient filtering.
type event struct {
	ID      uuid.UUID `json:"id"`
	Payload []byte    `json:"payload"`
}

// Hub is the single-room notification fan-out. Delivery is filtered per
// connection: the recipient set is fetched fresh for each event and only
// connections whose user id is in it receive the frame.
type Hub struct {
	Registry *ws.Registry

	store Store
	redis *redis.Client
	log   *zap.Logger

	broadcast chan event
}

func NewHub(store Store, redisClient *redis.Client, log *zap.Logger) *Hub {
	return &Hub{
		Registry:  ws.NewRegistry(),
		store:     store,
		redis:     redisClient,
		log:       log,
		broadcast: make(chan event, 64),
	}
}

func (h *Hub) Broadcast(ctx context.Context, id uuid.UUID, payload []byte) {
	ev := event{ID: id, Payload: payload}
	if h.redis != nil {
		data, err := json.Marshal(ev)
		if err != nil {
			h.log.Error("marshal notification event", zap.Error(err))
			return
		}
		if err := h.redis.Publish(ctx, redisChannel, data).Err(); err != nil {
			h.log.Error("redis publish failed", zap.Error(err))
		}
		return
	}
	select {
	case h.broadcast <- ev:
	case <-ctx.Done():
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case ev := <-h.broadcast:
			h.deliver(ctx, ev)
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
			var ev event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				h.log.Error("bad notification event from redis", zap.Error(err))
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

func (h *Hub) deliver(ctx context.Context, ev event) {
	recipients, err := h.store.RecipientIDs(ctx, ev.ID)
	if err != nil {
		h.log.Error("recipient lookup failed", zap.Error(err), zap.String("notification_id", ev.ID.String()))
		return
	}
	set := make(map[uuid.UUID]struct{}, len(recipients))
	for _, id := range recipients {
		set[id] = struct{}{}
	}

	h.Registry.Each(RoomKey, func(c *ws.Client) {
		u := c.Identity.User()
		if u == nil {
			// Relay listeners and anything identity-less get nothing.
			return
		}
		if _, ok := set[u.ID]; ok {
			c.Deliver(ev.Payload)
		}
	})
}
