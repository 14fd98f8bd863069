package models

import "time"

// Message is an immutable chat message. Exactly one of GroupID and
// ChannelID is set: a message belongs either to a group chat or to the
// shared channel of two connected groups, never both.
type Message struct {
	ID        string    `db:"id" json:"id"`
	GroupID   string    `db:"group_id" json:"group_id,omitempty"`
	ChannelID string    `db:"channel_id" json:"channel_id,omitempty"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	Text      string    `db:"text" json:"text"`
	Timestamp time.Time `db:"ts" json:"timestamp"`
}

// MessageEvent is broadcasted through websockets.
type MessageEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message,omitempty"`
}
