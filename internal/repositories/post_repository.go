package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"groupnet-service/internal/models"
)

// PostRepository abstracts the append-only post log.
type PostRepository interface {
	ListByGroups(ctx context.Context, groupIDs []string) ([]models.Post, error)
	LoadAll(ctx context.Context) ([]models.Post, error)
	Append(ctx context.Context, post models.Post) error
}

// PostRepo is a sqlx implementation of PostRepository.
type PostRepo struct {
	db *sqlx.DB
}

// NewPostRepo constructs a PostRepo.
func NewPostRepo(db *sqlx.DB) *PostRepo {
	return &PostRepo{db: db}
}

// ListByGroups returns the posts of the given groups, newest first.
func (r *PostRepo) ListByGroups(ctx context.Context, groupIDs []string) ([]models.Post, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, group_id, author_id, image, caption, ts FROM posts WHERE group_id IN (?) ORDER BY ts DESC`, groupIDs)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var posts []models.Post
	err = r.db.SelectContext(ctx, &posts, query, args...)
	return posts, err
}

// LoadAll returns every post, used for snapshot hydration.
func (r *PostRepo) LoadAll(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.SelectContext(ctx, &posts, `SELECT id, group_id, author_id, image, caption, ts FROM posts ORDER BY ts DESC`)
	return posts, err
}

// Append stores a post. Posts are immutable, so a redelivered id is simply
// ignored.
func (r *PostRepo) Append(ctx context.Context, post models.Post) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO posts (id, group_id, author_id, image, caption, ts) VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO NOTHING`,
		post.ID, post.GroupID, post.AuthorID, post.ImageRef, post.Caption, post.Timestamp)
	return err
}
