package models

// Profile holds the minimal identity record for a user.
// Profiles are created on first session and only ever mutated by their owner.
type Profile struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	AvatarRef string `db:"avatar" json:"avatar_ref,omitempty"`
}
