package notification_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"socialnet/internal/auth"
	"socialnet/internal/notification"
)

const (
	jwtSecret   = "jwt-test-secret"
	relaySecret = "relay-test-secret"
)

type fakeStore struct {
	recipients    map[uuid.UUID][]uuid.UUID
	notifications map[uuid.UUID]*notification.Notification
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		recipients:    map[uuid.UUID][]uuid.UUID{},
		notifications: map[uuid.UUID]*notification.Notification{},
	}
}

func (s *fakeStore) RecipientIDs(_ context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	return s.recipients[id], nil
}

func (s *fakeStore) NotificationByID(_ context.Context, id uuid.UUID) (*notification.Notification, error) {
	return s.notifications[id], nil
}

type notifServer struct {
	srv *httptest.Server
	hub *notification.Hub
}

func newNotifServer(t *testing.T, store notification.Store) *notifServer {
	t.Helper()
	logger := zap.NewNop()
	hub := notification.NewHub(store, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	gate := auth.NewGate(jwtSecret, relaySecret)
	handler := notification.NewHandler(hub, gate, logger)

	r := chi.NewRouter()
	r.Get("/ws/notifications", handler.ServeWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &notifServer{srv: srv, hub: hub}
}

func (s *notifServer) dial(t *testing.T, credential string) *websocket.Conn {
	t.Helper()
	uri := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws/notifications"
	header := http.Header{}
	if credential != "" {
		header.Set("Authorization", credential)
	}
	conn, _, err := websocket.DefaultDialer.Dial(uri, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (s *notifServer) waitAdmitted(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.hub.Registry.Len() == n
	}, 2*time.Second, 10*time.Millisecond)
}

func signToken(t *testing.T, u auth.User) string {
	t.Helper()
	token, err := auth.SignToken(jwtSecret, u, time.Hour)
	require.NoError(t, err)
	return token
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func expectClose(t *testing.T, conn *websocket.Conn, wantCode int, wantType string) {
	t.Helper()
	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame["status"])
	assert.Equal(t, wantType, frame["type"])
	assert.Equal(t, float64(wantCode), frame["code"])

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, wantCode, closeErr.Code)
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

func TestBroadcastFiltersByRecipientSet(t *testing.T) {
	store := newFakeStore()
	userA := auth.User{ID: uuid.New(), Name: "John Doe", Username: "johndoe"}
	userB := auth.User{ID: uuid.New(), Name: "Jane Roe", Username: "janeroe"}
	userC := auth.User{ID: uuid.New(), Name: "Carl Poe", Username: "carlpoe"}

	notifID := uuid.New()
	store.recipients[notifID] = []uuid.UUID{userA.ID, userB.ID}

	s := newNotifServer(t, store)
	connA := s.dial(t, signToken(t, userA))
	connC := s.dial(t, signToken(t, userC))
	relay := s.dial(t, relaySecret)
	s.waitAdmitted(t, 3)

	pointer := map[string]string{"id": notifID.String(), "status": "DELETED", "ntype": "REACTION"}
	require.NoError(t, relay.WriteJSON(pointer))

	// Recipients: {A, B}; connected: {A, C}. Only A's connection receives
	// the frame, and it arrives without enrichment fields.
	frame := readFrame(t, connA)
	assert.Equal(t, notifID.String(), frame["id"])
	assert.Equal(t, "DELETED", frame["status"])
	assert.Equal(t, "REACTION", frame["ntype"])
	assert.NotContains(t, frame, "sender")
	assert.NotContains(t, frame, "message")

	expectSilence(t, connC)
}

func TestCreatedFramePassesThroughEnrichment(t *testing.T) {
	store := newFakeStore()
	userA := auth.User{ID: uuid.New(), Name: "John Doe", Username: "johndoe"}
	notifID := uuid.New()
	store.recipients[notifID] = []uuid.UUID{userA.ID}

	s := newNotifServer(t, store)
	connA := s.dial(t, signToken(t, userA))
	relay := s.dial(t, relaySecret)
	s.waitAdmitted(t, 2)

	// CREATED frames arrive from the relay already enriched; the manager
	// validates the pointer fields and re-broadcasts the frame verbatim.
	payload := map[string]any{
		"id":        notifID.String(),
		"status":    "CREATED",
		"ntype":     "COMMENT",
		"sender":    map[string]string{"name": "Jane Roe", "username": "janeroe", "avatar": ""},
		"message":   "Jane Roe commented on your post",
		"post_slug": "first-post",
		"is_read":   false,
	}
	require.NoError(t, relay.WriteJSON(payload))

	frame := readFrame(t, connA)
	assert.Equal(t, "CREATED", frame["status"])
	assert.Equal(t, "Jane Roe commented on your post", frame["message"])
	assert.Equal(t, "first-post", frame["post_slug"])
}

func TestUserSendingDataIsRejected(t *testing.T) {
	store := newFakeStore()
	userA := auth.User{ID: uuid.New(), Username: "johndoe"}

	s := newNotifServer(t, store)
	conn := s.dial(t, signToken(t, userA))
	s.waitAdmitted(t, 1)

	require.NoError(t, conn.WriteJSON(map[string]string{"id": uuid.NewString(), "status": "CREATED", "ntype": "REACTION"}))
	expectClose(t, conn, 4001, "not_allowed")
}

func TestMalformedRelayFrameCloses4000(t *testing.T) {
	store := newFakeStore()

	for name, raw := range map[string]string{
		"not json":   "{nope",
		"bad status": `{"id":"` + uuid.NewString() + `","status":"UPDATED","ntype":"REACTION"}`,
		"no ntype":   `{"id":"` + uuid.NewString() + `","status":"CREATED"}`,
	} {
		t.Run(name, func(t *testing.T) {
			s := newNotifServer(t, store)
			relay := s.dial(t, relaySecret)
			s.waitAdmitted(t, 1)

			require.NoError(t, relay.WriteMessage(websocket.TextMessage, []byte(raw)))
			expectClose(t, relay, 4000, "invalid_entry")
		})
	}
}

func TestUpgradeWithoutCredentialCloses4001(t *testing.T) {
	s := newNotifServer(t, newFakeStore())

	conn := s.dial(t, "")
	expectClose(t, conn, 4001, "unauthorized_user")
	assert.Equal(t, 0, s.hub.Registry.Len())
}

func TestRelayConnectionNeverReceivesBroadcasts(t *testing.T) {
	store := newFakeStore()
	notifID := uuid.New()
	store.recipients[notifID] = []uuid.UUID{uuid.New()}

	s := newNotifServer(t, store)
	listeningRelay := s.dial(t, relaySecret)
	sendingRelay := s.dial(t, relaySecret)
	s.waitAdmitted(t, 2)

	pointer := map[string]string{"id": notifID.String(), "status": "CREATED", "ntype": "REACTION"}
	require.NoError(t, sendingRelay.WriteJSON(pointer))

	expectSilence(t, listeningRelay)
}
