package chat

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"socialnet/internal/auth"
)

// Store is what the socket layer needs from chat persistence.
type Store interface {
	ChatByID(ctx context.Context, id uuid.UUID) (*Chat, error)
	UserByUsername(ctx context.Context, username string) (*auth.User, error)
	IsMember(ctx context.Context, userID, chatID uuid.UUID) (bool, error)
	MessageByID(ctx context.Context, id uuid.UUID) (*Message, error)
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ChatByID returns (nil, nil) when no chat has that id, so callers can fall
// back to a username lookup for first-DM connections.
func (r *Repository) ChatByID(ctx context.Context, id uuid.UUID) (*Chat, error) {
	query := "SELECT id, owner_id FROM chats WHERE id = $1"
	c := &Chat{}
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.OwnerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *Repository) UserByUsername(ctx context.Context, username string) (*auth.User, error) {
	query := "SELECT id, name, username, avatar FROM users WHERE username = $1"
	u := &auth.User{}
	if err := r.db.QueryRowContext(ctx, query, username).Scan(&u.ID, &u.Name, &u.Username, &u.Avatar); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *Repository) IsMember(ctx context.Context, userID, chatID uuid.UUID) (bool, error) {
	query := "SELECT EXISTS (SELECT 1 FROM chat_members WHERE chat_id = $1 AND user_id = $2)"
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, chatID, userID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// MessageByID fetches a message with its sender profile joined in. Returns
// (nil, nil) when the id doesn't resolve.
func (r *Repository) MessageByID(ctx context.Context, id uuid.UUID) (*Message, error) {
	query := `
		SELECT m.id, m.chat_id, m.text, m.file_url, m.created_at, m.updated_at,
		       u.id, u.name, u.username, u.avatar
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.id = $1
	`
	m := &Message{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.ChatID, &m.Text, &m.FileURL, &m.CreatedAt, &m.UpdatedAt,
		&m.Sender.ID, &m.Sender.Name, &m.Sender.Username, &m.Sender.Avatar,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}
