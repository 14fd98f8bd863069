package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"groupnet-service/internal/models"
)

// MessageRepository abstracts the append-only message log for both group
// chats and inter-group channels.
type MessageRepository interface {
	ListGroupMessages(ctx context.Context, groupID string) ([]models.Message, error)
	ListChannelMessages(ctx context.Context, channelID string) ([]models.Message, error)
	LoadAll(ctx context.Context) ([]models.Message, error)
	Append(ctx context.Context, msg models.Message) error
}

// MessageRepo is a sqlx implementation of MessageRepository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, COALESCE(group_id, '') AS group_id, COALESCE(channel_id, '') AS channel_id, author_id, text, ts`

// ListGroupMessages returns a group chat in ascending order.
func (r *MessageRepo) ListGroupMessages(ctx context.Context, groupID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages WHERE group_id=$1 ORDER BY ts ASC`, groupID)
	return msgs, err
}

// ListChannelMessages returns an inter-channel chat in ascending order.
func (r *MessageRepo) ListChannelMessages(ctx context.Context, channelID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages WHERE channel_id=$1 ORDER BY ts ASC`, channelID)
	return msgs, err
}

// LoadAll returns every message, used for snapshot hydration.
func (r *MessageRepo) LoadAll(ctx context.Context) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages ORDER BY ts ASC`)
	return msgs, err
}

// Append stores a message. Exactly one of GroupID and ChannelID is set;
// empty strings become NULLs so the exclusivity check applies.
func (r *MessageRepo) Append(ctx context.Context, msg models.Message) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO messages (id, group_id, channel_id, author_id, text, ts)
        VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6)
        ON CONFLICT (id) DO NOTHING`,
		msg.ID, msg.GroupID, msg.ChannelID, msg.AuthorID, msg.Text, msg.Timestamp)
	return err
}
