package db

import (
	"context"
	"errors"
)

// Common errors.
var (
	ErrNotFound = errors.New("not found")
)

// RecentLimit is the number of sessions the recent-sessions listing returns.
const RecentLimit = 10

// Store persists emotion sessions and their recommendations.
// Records are never modified or deleted once created.
type Store interface {
	CreateEmotionSession(ctx context.Context, s NewEmotionSession) (*EmotionSession, error)
	EmotionSession(ctx context.Context, id int64) (*EmotionSession, error)
	// RecentEmotionSessions returns up to limit sessions, newest first.
	// A nil userID matches every session.
	RecentEmotionSessions(ctx context.Context, userID *int64, limit int) ([]EmotionSession, error)
	CreateMusicRecommendation(ctx context.Context, r NewMusicRecommendation) (*MusicRecommendation, error)
	// RecommendationsBySession returns a session's recommendations in insertion order.
	RecommendationsBySession(ctx context.Context, sessionID int64) ([]MusicRecommendation, error)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*DB)(nil)
)
