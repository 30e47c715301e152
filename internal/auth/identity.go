package auth

import "github.com/google/uuid"

// User is the profile snapshot carried by an authenticated connection.
// It is captured from the token claims at admission and never mutated.
type User struct {
	ID       uuid.UUID `json:"-"`
	Name     string    `json:"name"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar"`
}

// Identity is the result of credential resolution: either a resolved User,
// or the relay sentinel representing the HTTP backend itself. The zero value
// is "no identity" and must never survive past admission.
type Identity struct {
	user  *User
	relay bool
}

func UserIdentity(u *User) Identity {
	return Identity{user: u}
}

func RelayIdentity() Identity {
	return Identity{relay: true}
}

// IsRelay reports whether this is the privileged backend identity. The relay
// bypasses membership checks and is the only identity allowed to publish
// DELETED chat events and notification frames.
func (i Identity) IsRelay() bool {
	return i.relay
}

// User returns the resolved user, or nil for the relay or zero identity.
func (i Identity) User() *User {
	return i.user
}
