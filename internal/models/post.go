package models

import "time"

// Post is an immutable image post inside a group.
type Post struct {
	ID        string    `db:"id" json:"id"`
	GroupID   string    `db:"group_id" json:"group_id"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	ImageRef  string    `db:"image" json:"image_ref"`
	Caption   string    `db:"caption" json:"caption,omitempty"`
	Timestamp time.Time `db:"ts" json:"timestamp"`
}

// PostEvent is emitted over WebSocket connections for group rooms.
type PostEvent struct {
	Type string `json:"type"`
	Post *Post  `json:"post,omitempty"`
}
