// Package db stores emotion sessions and music recommendations, in memory or in PostgreSQL.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema creates the tables used by DB. It is safe to run repeatedly.
const schema = `
CREATE TABLE IF NOT EXISTS emotion_sessions (
	id         BIGSERIAL PRIMARY KEY,
	user_id    BIGINT,
	emotion    TEXT NOT NULL,
	confidence INTEGER NOT NULL,
	timestamp  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS emotion_sessions_timestamp_idx
	ON emotion_sessions (timestamp DESC, id DESC);

CREATE TABLE IF NOT EXISTS music_recommendations (
	id          BIGSERIAL PRIMARY KEY,
	session_id  BIGINT NOT NULL REFERENCES emotion_sessions (id) ON DELETE CASCADE,
	track_id    TEXT NOT NULL,
	track_name  TEXT NOT NULL,
	artist_name TEXT NOT NULL,
	album_cover TEXT,
	preview_url TEXT,
	match_score INTEGER
);

CREATE INDEX IF NOT EXISTS music_recommendations_session_idx
	ON music_recommendations (session_id, id);
`

// DB is a Store backed by a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// New creates a new database connection pool.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Migrate creates missing tables and indexes.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// Close closes the database connection pool.
func (db *DB) Close() {
	db.pool.Close()
}
