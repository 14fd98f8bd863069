package models

import "time"

// InterChannel is the shared chat channel of two connected groups. The pair
// is unordered; GroupA/GroupB are stored in lexicographic order so that a
// pair maps to exactly one channel.
type InterChannel struct {
	ID        string    `db:"id" json:"id"`
	GroupA    string    `db:"group_a" json:"group_a"`
	GroupB    string    `db:"group_b" json:"group_b"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Peer returns the other side of the channel relative to groupID, and
// whether groupID belongs to the pair at all.
func (c InterChannel) Peer(groupID string) (string, bool) {
	switch groupID {
	case c.GroupA:
		return c.GroupB, true
	case c.GroupB:
		return c.GroupA, true
	}
	return "", false
}
