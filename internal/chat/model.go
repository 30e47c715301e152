package chat

import (
	"time"

	"github.com/google/uuid"

	"socialnet/internal/auth"
)

// RoomKeyPrefix namespaces chat rooms inside the shared registry.
const RoomKeyPrefix = "chat_"

// RoomKey derives the room key from the raw path parameter. The parameter is
// a chat id for existing rooms, or a username for DM-before-first-message
// rooms, and both sides of such a conversation derive the same key.
func RoomKey(param string) string {
	return RoomKeyPrefix + param
}

type EventStatus string

const (
	StatusCreated EventStatus = "CREATED"
	StatusUpdated EventStatus = "UPDATED"
	StatusDeleted EventStatus = "DELETED"
)

func (s EventStatus) Valid() bool {
	switch s {
	case StatusCreated, StatusUpdated, StatusDeleted:
		return true
	}
	return false
}

// EventPointer is the minimal inbound frame: an entity id plus a lifecycle
// status. The referenced message is always re-fetched server-side, never
// trusted from the client.
type EventPointer struct {
	Status EventStatus `json:"status"`
	ID     uuid.UUID   `json:"id"`
}

func (p *EventPointer) Valid() bool {
	return p.Status.Valid() && p.ID != uuid.Nil
}

// Chat is the membership view of a chat room. Non-owner membership lives in
// the chat_members table and is checked through Store.IsMember.
type Chat struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

// Message is the denormalized snapshot fetched fresh at broadcast time.
type Message struct {
	ID        uuid.UUID
	ChatID    uuid.UUID
	Sender    auth.User
	Text      *string
	FileURL   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MessageEvent is the enriched broadcast body: the pointer fields merged
// with the message snapshot.
type MessageEvent struct {
	ID        uuid.UUID   `json:"id"`
	Status    EventStatus `json:"status"`
	ChatID    uuid.UUID   `json:"chat_id"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Sender    auth.User   `json:"sender"`
	Text      *string     `json:"text"`
	File      *string     `json:"file"`
}

// DeletionEvent is the broadcast body for DELETED pointers. The row is gone
// by the time the pointer arrives, so there is nothing to enrich with.
type DeletionEvent struct {
	ID     uuid.UUID   `json:"id"`
	Status EventStatus `json:"status"`
}
