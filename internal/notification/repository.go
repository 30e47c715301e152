package notification

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"socialnet/internal/auth"
)

// Store is what the socket layer and the event bridge need from
// notification persistence.
type Store interface {
	RecipientIDs(ctx context.Context, notificationID uuid.UUID) ([]uuid.UUID, error)
	NotificationByID(ctx context.Context, id uuid.UUID) (*Notification, error)
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// RecipientIDs returns the users a notification was addressed to. An unknown
// notification id yields an empty set, not an error: deletions race with
// delivery and an empty set simply means nobody receives the frame.
func (r *Repository) RecipientIDs(ctx context.Context, notificationID uuid.UUID) ([]uuid.UUID, error) {
	query := "SELECT user_id FROM notification_receivers WHERE notification_id = $1"
	rows, err := r.db.QueryContext(ctx, query, notificationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// NotificationByID fetches a notification with its sender joined in, for
// bridge-side enrichment of CREATED events. Returns (nil, nil) when the id
// doesn't resolve.
func (r *Repository) NotificationByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	query := `
		SELECT n.id, n.ntype, n.post_slug, n.comment_slug, n.reply_slug, n.is_read,
		       u.id, u.name, u.username, u.avatar
		FROM notifications n
		JOIN users u ON n.sender_id = u.id
		WHERE n.id = $1
	`
	n := &Notification{Sender: &auth.User{}}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&n.ID, &n.Ntype, &n.PostSlug, &n.CommentSlug, &n.ReplySlug, &n.IsRead,
		&n.Sender.ID, &n.Sender.Name, &n.Sender.Username, &n.Sender.Avatar,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return n, nil
}
