package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
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
	hub   *Hub
	gate  *auth.Gate
	store Store
	log   *zap.Logger
}

func NewHandler(hub *Hub, gate *auth.Gate, store Store, log *zap.Logger) *Handler {
	return &Handler{hub: hub, gate: gate, store: store, log: log}
}

// ServeWS upgrades GET /ws/chats/{chat_id} and runs the connection to
// completion. Authorization failures are reported through the socket close
// code (part of the wire contract), which is why the upgrade happens before
// the gate runs.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("chat socket upgrade failed", zap.Error(err))
		return
	}

	identity, sockErr := h.resolveIdentity(r)
	if sockErr != nil {
		ws.Reject(conn, sockErr)
		return
	}

	param := chi.URLParam(r, "chat_id")
	addressedTo, sockErr := h.validateMembership(r, identity, param)
	if sockErr != nil {
		ws.Reject(conn, sockErr)
		return
	}

	client := ws.NewClient(conn, identity, RoomKey(param), addressedTo, h.log)
	h.hub.Registry.Add(client)
	client.ConfigureRead()
	client.Run()

	defer func() {
		h.hub.Registry.Remove(client)
		client.Close()
	}()
	h.receiveLoop(r, client)
}

func (h *Handler) resolveIdentity(r *http.Request) (auth.Identity, *ws.SocketError) {
	identity, err := h.gate.Resolve(auth.CredentialFromRequest(r))
	switch {
	case errors.Is(err, auth.ErrNoCredential):
		return auth.Identity{}, ws.ErrUnauthorized("Unauthorized User!")
	case errors.Is(err, auth.ErrInvalidToken):
		return auth.Identity{}, ws.ErrInvalidToken()
	case err != nil:
		return auth.Identity{}, ws.ErrUnauthorized("Unauthorized User!")
	}
	return identity, nil
}

// validateMembership resolves the path parameter against the store. The
// relay skips validation. For users, the parameter is a chat id whose owner
// or member the user must be, or a username naming the other side of a DM
// that has no chat row yet (including the user's own id for self-DMs);
// those connections carry an addressed-to restriction.
func (h *Handler) validateMembership(r *http.Request, identity auth.Identity, param string) (uuid.UUID, *ws.SocketError) {
	if identity.IsRelay() {
		return uuid.Nil, nil
	}
	u := identity.User()
	ctx := r.Context()

	if param == u.ID.String() {
		return u.ID, nil
	}

	var room *Chat
	if id, err := uuid.Parse(param); err == nil {
		chat, err := h.store.ChatByID(ctx, id)
		if err != nil {
			h.log.Error("chat lookup failed", zap.Error(err))
			return uuid.Nil, &ws.SocketError{Type: ws.TypeServerError, Code: websocket.CloseInternalServerErr, Message: "Server Error"}
		}
		room = chat
	}
	if room == nil {
		target, err := h.store.UserByUsername(ctx, param)
		if err != nil {
			h.log.Error("user lookup failed", zap.Error(err))
			return uuid.Nil, &ws.SocketError{Type: ws.TypeServerError, Code: websocket.CloseInternalServerErr, Message: "Server Error"}
		}
		if target == nil {
			return uuid.Nil, ws.ErrInvalidInput("Invalid ID")
		}
		return target.ID, nil
	}

	if room.OwnerID != u.ID {
		member, err := h.store.IsMember(ctx, u.ID, room.ID)
		if err != nil {
			h.log.Error("membership lookup failed", zap.Error(err))
			return uuid.Nil, &ws.SocketError{Type: ws.TypeServerError, Code: websocket.CloseInternalServerErr, Message: "Server Error"}
		}
		if !member {
			return uuid.Nil, ws.ErrInvalidMember()
		}
	}
	return uuid.Nil, nil
}

// receiveLoop reads event pointers until the peer goes away or a protocol
// violation closes the connection.
func (h *Handler) receiveLoop(r *http.Request, client *ws.Client) {
	ctx := r.Context()
	for {
		raw, err := client.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.log.Debug("chat socket read error", zap.Error(err))
			}
			return
		}

		var pointer EventPointer
		if err := json.Unmarshal(raw, &pointer); err != nil || !pointer.Valid() {
			client.Fail(ws.ErrInvalidEntry("Invalid Message data", ws.CloseBadMessage))
			return
		}

		if pointer.Status == StatusDeleted && !client.Identity.IsRelay() {
			client.Fail(ws.ErrUnauthorized("Not allowed to send deletion socket"))
			return
		}

		payload, sockErr := h.buildEvent(ctx, client, &pointer)
		if sockErr != nil {
			client.Fail(sockErr)
			return
		}
		h.hub.Broadcast(ctx, client.Room, payload)
	}
}

// buildEvent resolves a pointer into the broadcast body. For CREATED and
// UPDATED the message is fetched fresh and must belong to the sending user,
// which proves the HTTP-side mutation was performed by this same user before
// the pointer is trusted.
func (h *Handler) buildEvent(ctx context.Context, client *ws.Client, pointer *EventPointer) ([]byte, *ws.SocketError) {
	if pointer.Status == StatusDeleted {
		payload, err := json.Marshal(DeletionEvent{ID: pointer.ID, Status: pointer.Status})
		if err != nil {
			return nil, &ws.SocketError{Type: ws.TypeServerError, Code: websocket.CloseInternalServerErr, Message: "Server Error"}
		}
		return payload, nil
	}

	msg, err := h.store.MessageByID(ctx, pointer.ID)
	if err != nil {
		h.log.Error("message lookup failed", zap.Error(err))
		return nil, &ws.SocketError{Type: ws.TypeServerError, Code: websocket.CloseInternalServerErr, Message: "Server Error"}
	}
	if msg == nil {
		return nil, ws.ErrNonExistent("Invalid message ID")
	}
	if u := client.Identity.User(); u != nil && msg.Sender.ID != u.ID {
		return nil, ws.ErrInvalidOwner("Message isn't yours")
	}

	payload, err := json.Marshal(MessageEvent{
		ID:        msg.ID,
		Status:    pointer.Status,
		ChatID:    msg.ChatID,
		CreatedAt: msg.CreatedAt,
		UpdatedAt: msg.UpdatedAt,
		Sender:    msg.Sender,
		Text:      msg.Text,
		File:      msg.FileURL,
	})
	if err != nil {
		return nil, &ws.SocketError{Type: ws.TypeServerError, Code: websocket.CloseInternalServerErr, Message: "Server Error"}
	}
	return payload, nil
}
