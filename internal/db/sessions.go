package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CreateEmotionSession inserts a new session. The database assigns id and timestamp.
func (db *DB) CreateEmotionSession(ctx context.Context, s NewEmotionSession) (*EmotionSession, error) {
	query := `
		INSERT INTO emotion_sessions (user_id, emotion, confidence)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, emotion, confidence, timestamp
	`
	var session EmotionSession
	err := db.pool.QueryRow(ctx, query, s.UserID, s.Emotion, derefInt(s.Confidence)).Scan(
		&session.ID,
		&session.UserID,
		&session.Emotion,
		&session.Confidence,
		&session.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting emotion session: %w", err)
	}
	return &session, nil
}

// EmotionSession retrieves a session by ID.
func (db *DB) EmotionSession(ctx context.Context, id int64) (*EmotionSession, error) {
	query := `
		SELECT id, user_id, emotion, confidence, timestamp
		FROM emotion_sessions
		WHERE id = $1
	`
	var session EmotionSession
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.Emotion,
		&session.Confidence,
		&session.Timestamp,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying emotion session: %w", err)
	}
	return &session, nil
}

// RecentEmotionSessions returns up to limit sessions, newest first.
func (db *DB) RecentEmotionSessions(ctx context.Context, userID *int64, limit int) ([]EmotionSession, error) {
	query := `
		SELECT id, user_id, emotion, confidence, timestamp
		FROM emotion_sessions
		WHERE $1::BIGINT IS NULL OR user_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2
	`
	rows, err := db.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent emotion sessions: %w", err)
	}
	defer rows.Close()

	sessions := []EmotionSession{}
	for rows.Next() {
		var s EmotionSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.Emotion, &s.Confidence, &s.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning emotion session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating emotion sessions: %w", err)
	}
	return sessions, nil
}
