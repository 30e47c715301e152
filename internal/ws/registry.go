// Package ws holds the connection registry and the per-connection transport
// plumbing shared by the chat and notification socket managers.
package ws

import "sync"

// Registry tracks live connections. Add/Remove/Each are safe for concurrent
// use; a coarse lock is plenty at expected connection counts. The registry
// never closes the underlying transport itself; that stays with the caller.
type Registry struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[*Client]struct{})}
}

func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c] = struct{}{}
}

// Remove is idempotent: disconnects race with explicit closes, so removing a
// connection that is already gone is a no-op.
func (r *Registry) Remove(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, c)
}

// Each calls fn for every registered connection in the given room. The
// snapshot is taken under the lock and fn runs outside it, so fn may block
// (store lookups, sends) without stalling Add/Remove. No ordering guarantee.
func (r *Registry) Each(room string, fn func(*Client)) {
	r.mu.RLock()
	snapshot := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		if c.Room == room {
			snapshot = append(snapshot, c)
		}
	}
	r.mu.RUnlock()

	for _, c := range snapshot {
		fn(c)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
