package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	database, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(database); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return database, nil
}

func runMigrations(database *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL DEFAULT '',
            avatar TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS groups (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            avatar TEXT NOT NULL DEFAULT '',
            admin_id TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS group_members (
            group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
            user_id TEXT NOT NULL,
            PRIMARY KEY(group_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS group_pending_members (
            group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
            user_id TEXT NOT NULL,
            PRIMARY KEY(group_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS group_connections (
            group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
            peer_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
            PRIMARY KEY(group_id, peer_id)
        );`,
		`CREATE TABLE IF NOT EXISTS group_pending_connections (
            target_group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
            from_group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
            PRIMARY KEY(target_group_id, from_group_id)
        );`,
		`CREATE TABLE IF NOT EXISTS inter_channels (
            id TEXT PRIMARY KEY,
            group_a TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
            group_b TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE(group_a, group_b)
        );`,
		`CREATE TABLE IF NOT EXISTS posts (
            id TEXT PRIMARY KEY,
            group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
            author_id TEXT NOT NULL,
            image TEXT NOT NULL,
            caption TEXT NOT NULL DEFAULT '',
            ts TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            id TEXT PRIMARY KEY,
            group_id TEXT,
            channel_id TEXT,
            author_id TEXT NOT NULL,
            text TEXT NOT NULL,
            ts TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            CHECK ((group_id IS NULL) <> (channel_id IS NULL))
        );`,
		`CREATE INDEX IF NOT EXISTS idx_posts_group_ts ON posts(group_id, ts DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_group_ts ON messages(group_id, ts ASC);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_channel_ts ON messages(channel_id, ts ASC);`,
	}

	for _, m := range migrations {
		if _, err := database.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
