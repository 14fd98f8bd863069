package models

import "time"

// Group is the canonical group record. The engine is the only writer of the
// membership, pending and connection sets; everyone else gets copies.
type Group struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	AvatarRef string    `db:"avatar" json:"avatar_ref,omitempty"`
	AdminID   string    `db:"admin_id" json:"admin_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Derived sets, sorted for stable output. The admin is always present
	// in Members.
	Members     []string `json:"members"`
	PendingJoin []string `json:"pending_join,omitempty"`
	Connections []string `json:"connections,omitempty"`

	// PendingConnections lists the group ids that have asked to connect to
	// this group and are awaiting its admin's approval.
	PendingConnections []string `json:"pending_connections,omitempty"`
}

// GroupSummary is the API view used by listing endpoints where the private
// queues must not leak to non-members.
type GroupSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	AvatarRef    string    `json:"avatar_ref,omitempty"`
	AdminID      string    `json:"admin_id"`
	MembersCount int       `json:"members_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Summary strips a group down to its public fields.
func (g Group) Summary() GroupSummary {
	return GroupSummary{
		ID:           g.ID,
		Name:         g.Name,
		AvatarRef:    g.AvatarRef,
		AdminID:      g.AdminID,
		MembersCount: len(g.Members),
		CreatedAt:    g.CreatedAt,
	}
}
