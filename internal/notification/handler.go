package notification

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"socialnet/internal/auth"
	"socialnet/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Handler struct {
	hub  *Hub
	gate *auth.Gate
	log  *zap.Logger
}

func NewHandler(hub *Hub, gate *auth.Gate, log *zap.Logger) *Handler {
	return &Handler{hub: hub, gate: gate, log: log}
}

// ServeWS upgrades GET /ws/notifications. Any resolved identity may listen;
// there is no membership to validate because there is exactly one room. Only
// the relay may publish; the listener contract is read-only.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("notification socket upgrade failed", zap.Error(err))
		return
	}

	identity, rerr := h.gate.Resolve(auth.CredentialFromRequest(r))
	if rerr != nil {
		if errors.Is(rerr, auth.ErrInvalidToken) {
			ws.Reject(conn, ws.ErrInvalidToken())
		} else {
			ws.Reject(conn, ws.ErrUnauthorized("Unauthorized User!"))
		}
		return
	}

	client := ws.NewClient(conn, identity, RoomKey, uuid.Nil, h.log)
	h.hub.Registry.Add(client)
	client.ConfigureRead()
	client.Run()

	defer func() {
		h.hub.Registry.Remove(client)
		client.Close()
	}()
	h.receiveLoop(r, client)
}

func (h *Handler) receiveLoop(r *http.Request, client *ws.Client) {
	ctx := r.Context()
	for {
		raw, err := client.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.log.Debug("notification socket read error", zap.Error(err))
			}
			return
		}

		if !client.Identity.IsRelay() {
			client.Fail(ws.ErrNotAllowed("Unauthorized to send data"))
			return
		}

		var pointer EventPointer
		if err := json.Unmarshal(raw, &pointer); err != nil || !pointer.Valid() {
			client.Fail(ws.ErrInvalidEntry("Invalid Notification data", ws.CloseBadPayload))
			return
		}

		// The frame is re-broadcast verbatim: CREATED enrichment was
		// already merged in by the sender.
		h.hub.Broadcast(ctx, pointer.ID, raw)
	}
}
