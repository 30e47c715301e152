package notification

import (
	"fmt"

	"github.com/google/uuid"

	"socialnet/internal/auth"
)

// RoomKey is the single global room all notification listeners share.
const RoomKey = "notifications"

const (
	NTypeReaction = "REACTION"
	NTypeComment  = "COMMENT"
	NTypeReply    = "REPLY"
)

type EventStatus string

const (
	StatusCreated EventStatus = "CREATED"
	StatusDeleted EventStatus = "DELETED"
)

func (s EventStatus) Valid() bool {
	return s == StatusCreated || s == StatusDeleted
}

// EventPointer is the inbound relay frame. CREATED frames arrive with extra
// enrichment fields which pass through to receivers verbatim; only these
// three are validated.
type EventPointer struct {
	ID     uuid.UUID   `json:"id"`
	Status EventStatus `json:"status"`
	Ntype  string      `json:"ntype"`
}

func (p *EventPointer) Valid() bool {
	return p.ID != uuid.Nil && p.Status.Valid() && p.Ntype != ""
}

// Target identifies what a notification is about. Reactions can land on a
// post, a comment or a reply; each gets its own variant rather than a shared
// shape sniffed at runtime.
type Target interface {
	target()
}

type PostTarget struct{ Slug string }
type CommentTarget struct{ Slug string }
type ReplyTarget struct{ Slug string }

func (PostTarget) target()    {}
func (CommentTarget) target() {}
func (ReplyTarget) target()   {}

// Notification is the stored row plus its sender snapshot.
type Notification struct {
	ID          uuid.UUID
	Ntype       string
	Sender      *auth.User
	PostSlug    *string
	CommentSlug *string
	ReplySlug   *string
	IsRead      bool
}

// Target resolves which entity the notification points at, preferring the
// most specific slug set on the row.
func (n *Notification) Target() Target {
	switch {
	case n.ReplySlug != nil:
		return ReplyTarget{Slug: *n.ReplySlug}
	case n.CommentSlug != nil:
		return CommentTarget{Slug: *n.CommentSlug}
	case n.PostSlug != nil:
		return PostTarget{Slug: *n.PostSlug}
	}
	return nil
}

// Text renders the human-readable notification message.
func (n *Notification) Text() string {
	sender := ""
	if n.Sender != nil {
		sender = n.Sender.Name
	}
	switch n.Ntype {
	case NTypeReaction:
		switch n.Target().(type) {
		case ReplyTarget:
			return fmt.Sprintf("%s reacted to your reply", sender)
		case CommentTarget:
			return fmt.Sprintf("%s reacted to your comment", sender)
		default:
			return fmt.Sprintf("%s reacted to your post", sender)
		}
	case NTypeComment:
		return fmt.Sprintf("%s commented on your post", sender)
	case NTypeReply:
		return fmt.Sprintf("%s replied your comment", sender)
	}
	return fmt.Sprintf("%s reacted to your post", sender)
}
