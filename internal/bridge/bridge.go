// Package bridge pushes domain events committed by REST handlers into the
// socket layer. It dials the server's own websocket routes with the relay
// secret, writes a single JSON frame, and hangs up. The receiving channel
// manager owns resolution and fan-out, so HTTP and socket traffic converge
// on one broadcast path.
package bridge

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"socialnet/internal/notification"
)

const dialTimeout = 5 * time.Second

type Config struct {
	// Host is the host:port the socket routes are served on.
	Host string
	// Secured selects wss over ws.
	Secured bool
	// Secret is the relay credential.
	Secret string
	// Disabled turns every push into a silent no-op (test/offline runs).
	Disabled bool
}

type Bridge struct {
	cfg    Config
	dialer *websocket.Dialer
	log    *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Bridge {
	return &Bridge{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: dialTimeout},
		log:    log,
	}
}

// MessageDeleted relays a chat message deletion. Deletion pointers may only
// originate here: the HTTP handler has already authorized the deletion, and
// the row is gone, so ownership can no longer be proven socket-side.
func (b *Bridge) MessageDeleted(ctx context.Context, chatID, messageID uuid.UUID) {
	b.push(ctx, "/ws/chats/"+chatID.String(), map[string]any{
		"id":     messageID.String(),
		"status": "DELETED",
	})
}

// NotificationCreated relays a freshly committed notification, enriched with
// everything receivers render: sender snapshot, message text, slugs.
func (b *Bridge) NotificationCreated(ctx context.Context, n *notification.Notification) {
	payload := map[string]any{
		"id":           n.ID.String(),
		"status":       string(notification.StatusCreated),
		"ntype":        n.Ntype,
		"sender":       n.Sender,
		"message":      n.Text(),
		"post_slug":    n.PostSlug,
		"comment_slug": n.CommentSlug,
		"reply_slug":   n.ReplySlug,
		"is_read":      n.IsRead,
	}
	b.push(ctx, "/ws/notifications", payload)
}

// NotificationDeleted relays a notification removal. No enrichment: the row
// is gone and receivers only need the pointer.
func (b *Bridge) NotificationDeleted(ctx context.Context, id uuid.UUID, ntype string) {
	b.push(ctx, "/ws/notifications", map[string]any{
		"id":     id.String(),
		"status": string(notification.StatusDeleted),
		"ntype":  ntype,
	})
}

// push performs the connect/write/close sequence. Real-time delivery is
// best-effort: the originating HTTP transaction has already committed, so
// every failure here is logged and swallowed, never propagated.
func (b *Bridge) push(ctx context.Context, path string, payload any) {
	if b.cfg.Disabled {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.log.Warn("socket push panicked", zap.Any("panic", r))
		}
	}()

	scheme := "ws"
	if b.cfg.Secured {
		scheme = "wss"
	}
	uri := fmt.Sprintf("%s://%s%s", scheme, b.cfg.Host, path)

	header := http.Header{}
	header.Set("Authorization", b.cfg.Secret)

	conn, _, err := b.dialer.DialContext(ctx, uri, header)
	if err != nil {
		b.log.Warn("socket push dial failed", zap.String("uri", uri), zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(dialTimeout))
	if err := conn.WriteJSON(payload); err != nil {
		b.log.Warn("socket push write failed", zap.String("uri", uri), zap.Error(err))
		return
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
