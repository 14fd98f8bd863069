package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"groupnet-service/internal/models"
)

// GroupRepository abstracts group and inter-channel persistence. The engine
// owns the authoritative state; this layer only mirrors it durably.
type GroupRepository interface {
	LoadGroups(ctx context.Context) ([]models.Group, error)
	UpsertGroup(ctx context.Context, group models.Group) error
	LoadChannels(ctx context.Context) ([]models.InterChannel, error)
	InsertChannel(ctx context.Context, channel models.InterChannel) error
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// LoadGroups returns every group as a full aggregate, including membership,
// pending and connection sets.
func (r *GroupRepo) LoadGroups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, `SELECT id, name, avatar, admin_id, created_at FROM groups ORDER BY created_at DESC`); err != nil {
		return nil, err
	}

	byID := make(map[string]int, len(groups))
	for i := range groups {
		byID[groups[i].ID] = i
	}

	type pair struct {
		GroupID string `db:"group_id"`
		Other   string `db:"other"`
	}

	var members []pair
	if err := r.db.SelectContext(ctx, &members, `SELECT group_id, user_id AS other FROM group_members ORDER BY user_id`); err != nil {
		return nil, err
	}
	for _, m := range members {
		if i, ok := byID[m.GroupID]; ok {
			groups[i].Members = append(groups[i].Members, m.Other)
		}
	}

	var pending []pair
	if err := r.db.SelectContext(ctx, &pending, `SELECT group_id, user_id AS other FROM group_pending_members ORDER BY user_id`); err != nil {
		return nil, err
	}
	for _, p := range pending {
		if i, ok := byID[p.GroupID]; ok {
			groups[i].PendingJoin = append(groups[i].PendingJoin, p.Other)
		}
	}

	var connections []pair
	if err := r.db.SelectContext(ctx, &connections, `SELECT group_id, peer_id AS other FROM group_connections ORDER BY peer_id`); err != nil {
		return nil, err
	}
	for _, c := range connections {
		if i, ok := byID[c.GroupID]; ok {
			groups[i].Connections = append(groups[i].Connections, c.Other)
		}
	}

	var pendingConns []pair
	if err := r.db.SelectContext(ctx, &pendingConns, `SELECT target_group_id AS group_id, from_group_id AS other FROM group_pending_connections ORDER BY from_group_id`); err != nil {
		return nil, err
	}
	for _, c := range pendingConns {
		if i, ok := byID[c.GroupID]; ok {
			groups[i].PendingConnections = append(groups[i].PendingConnections, c.Other)
		}
	}

	return groups, nil
}

// UpsertGroup writes a full group aggregate atomically: the group row is
// upserted and its set tables are replaced wholesale inside one
// transaction, mirroring the engine's replace-on-write semantics.
func (r *GroupRepo) UpsertGroup(ctx context.Context, group models.Group) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `INSERT INTO groups (id, name, avatar, admin_id, created_at) VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, avatar=EXCLUDED.avatar`,
		group.ID, group.Name, group.AvatarRef, group.AdminID, group.CreatedAt); err != nil {
		return err
	}

	replacements := []struct {
		deleteStmt string
		insertStmt string
		values     []string
	}{
		{`DELETE FROM group_members WHERE group_id=$1`, `INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)`, group.Members},
		{`DELETE FROM group_pending_members WHERE group_id=$1`, `INSERT INTO group_pending_members (group_id, user_id) VALUES ($1, $2)`, group.PendingJoin},
		{`DELETE FROM group_connections WHERE group_id=$1`, `INSERT INTO group_connections (group_id, peer_id) VALUES ($1, $2)`, group.Connections},
		{`DELETE FROM group_pending_connections WHERE target_group_id=$1`, `INSERT INTO group_pending_connections (target_group_id, from_group_id) VALUES ($1, $2)`, group.PendingConnections},
	}
	for _, rep := range replacements {
		if _, err = tx.ExecContext(ctx, rep.deleteStmt, group.ID); err != nil {
			return err
		}
		for _, v := range rep.values {
			if _, err = tx.ExecContext(ctx, rep.insertStmt, group.ID, v); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// LoadChannels returns every inter-group channel.
func (r *GroupRepo) LoadChannels(ctx context.Context) ([]models.InterChannel, error) {
	var channels []models.InterChannel
	err := r.db.SelectContext(ctx, &channels, `SELECT id, group_a, group_b, created_at FROM inter_channels ORDER BY created_at`)
	return channels, err
}

// InsertChannel stores a channel. Re-inserting the same pair is a no-op so
// redelivered approvals stay idempotent.
func (r *GroupRepo) InsertChannel(ctx context.Context, channel models.InterChannel) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO inter_channels (id, group_a, group_b, created_at) VALUES ($1, $2, $3, $4)
        ON CONFLICT (group_a, group_b) DO NOTHING`,
		channel.ID, channel.GroupA, channel.GroupB, channel.CreatedAt)
	return err
}
