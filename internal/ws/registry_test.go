package ws_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"socialnet/internal/auth"
	"socialnet/internal/ws"
)

func newTestClient(room string) *ws.Client {
	u := &auth.User{ID: uuid.New(), Username: "tester"}
	return ws.NewClient(nil, auth.UserIdentity(u), room, uuid.Nil, zap.NewNop())
}

func TestRegistryAddRemove(t *testing.T) {
	r := ws.NewRegistry()
	c := newTestClient("chat_a")

	r.Add(c)
	assert.Equal(t, 1, r.Len())

	r.Remove(c)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	r := ws.NewRegistry()
	c := newTestClient("chat_a")

	r.Add(c)
	r.Remove(c)

	// Disconnects race with explicit closes; a second removal must be a
	// no-op rather than a panic or an error.
	assert.NotPanics(t, func() {
		r.Remove(c)
		r.Remove(newTestClient("chat_b"))
	})
	assert.Equal(t, 0, r.Len())
}

func TestRegistryEachFiltersByRoom(t *testing.T) {
	r := ws.NewRegistry()
	a1 := newTestClient("chat_a")
	a2 := newTestClient("chat_a")
	b := newTestClient("chat_b")
	r.Add(a1)
	r.Add(a2)
	r.Add(b)

	seen := map[*ws.Client]bool{}
	r.Each("chat_a", func(c *ws.Client) {
		seen[c] = true
	})

	assert.Len(t, seen, 2)
	assert.True(t, seen[a1])
	assert.True(t, seen[a2])
	assert.False(t, seen[b])
}

func TestRegistryConcurrentChurn(t *testing.T) {
	r := ws.NewRegistry()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			c := newTestClient("chat_x")
			r.Add(c)
			r.Remove(c)
		}
	}()

	for i := 0; i < 200; i++ {
		r.Each("chat_x", func(*ws.Client) {})
	}
	<-done
	assert.Equal(t, 0, r.Len())
}
