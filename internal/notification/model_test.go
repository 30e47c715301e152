package notification_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"socialnet/internal/auth"
	"socialnet/internal/notification"
)

func strptr(s string) *string { return &s }

func TestNotificationTarget(t *testing.T) {
	n := &notification.Notification{PostSlug: strptr("a-post")}
	assert.Equal(t, notification.PostTarget{Slug: "a-post"}, n.Target())

	n = &notification.Notification{PostSlug: strptr("a-post"), CommentSlug: strptr("a-comment")}
	assert.Equal(t, notification.CommentTarget{Slug: "a-comment"}, n.Target())

	n = &notification.Notification{PostSlug: strptr("a-post"), CommentSlug: strptr("a-comment"), ReplySlug: strptr("a-reply")}
	assert.Equal(t, notification.ReplyTarget{Slug: "a-reply"}, n.Target())

	assert.Nil(t, (&notification.Notification{}).Target())
}

func TestNotificationText(t *testing.T) {
	sender := &auth.User{ID: uuid.New(), Name: "John Doe", Username: "johndoe"}

	cases := []struct {
		name string
		n    *notification.Notification
		want string
	}{
		{"reaction to post", &notification.Notification{Ntype: notification.NTypeReaction, Sender: sender, PostSlug: strptr("p")}, "John Doe reacted to your post"},
		{"reaction to comment", &notification.Notification{Ntype: notification.NTypeReaction, Sender: sender, CommentSlug: strptr("c")}, "John Doe reacted to your comment"},
		{"reaction to reply", &notification.Notification{Ntype: notification.NTypeReaction, Sender: sender, ReplySlug: strptr("r")}, "John Doe reacted to your reply"},
		{"comment", &notification.Notification{Ntype: notification.NTypeComment, Sender: sender, PostSlug: strptr("p")}, "John Doe commented on your post"},
		{"reply", &notification.Notification{Ntype: notification.NTypeReply, Sender: sender, CommentSlug: strptr("c")}, "John Doe replied your comment"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.n.Text())
		})
	}
}
