package db

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory. Ids come from one counter per
// record type and are never reused.
type MemoryStore struct {
	mu              sync.RWMutex
	sessions        map[int64]*EmotionSession
	recommendations map[int64]*MusicRecommendation
	bySession       map[int64][]int64
	nextSessionID   int64
	nextRecID       int64
	now             func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:        make(map[int64]*EmotionSession),
		recommendations: make(map[int64]*MusicRecommendation),
		bySession:       make(map[int64][]int64),
		nextSessionID:   1,
		nextRecID:       1,
		now:             time.Now,
	}
}

// CreateEmotionSession stores a new session stamped with the current time.
func (m *MemoryStore) CreateEmotionSession(_ context.Context, s NewEmotionSession) (*EmotionSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session := &EmotionSession{
		ID:         m.nextSessionID,
		UserID:     s.UserID,
		Emotion:    s.Emotion,
		Confidence: derefInt(s.Confidence),
		Timestamp:  m.now(),
	}
	m.nextSessionID++
	m.sessions[session.ID] = session

	out := *session
	return &out, nil
}

// EmotionSession returns the session with the given id.
func (m *MemoryStore) EmotionSession(_ context.Context, id int64) (*EmotionSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *s
	return &out, nil
}

// RecentEmotionSessions returns up to limit sessions, newest first. Equal
// timestamps are ordered by descending id.
func (m *MemoryStore) RecentEmotionSessions(_ context.Context, userID *int64, limit int) ([]EmotionSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]EmotionSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		if userID != nil && (s.UserID == nil || *s.UserID != *userID) {
			continue
		}
		sessions = append(sessions, *s)
	}

	slices.SortFunc(sessions, func(a, b EmotionSession) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})

	if limit >= 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

// CreateMusicRecommendation stores a recommendation. The owning session is not checked.
func (m *MemoryStore) CreateMusicRecommendation(_ context.Context, r NewMusicRecommendation) (*MusicRecommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := &MusicRecommendation{
		ID:         m.nextRecID,
		SessionID:  r.SessionID,
		TrackID:    r.TrackID,
		TrackName:  r.TrackName,
		ArtistName: r.ArtistName,
		AlbumCover: r.AlbumCover,
		PreviewURL: r.PreviewURL,
		MatchScore: r.MatchScore,
	}
	m.nextRecID++
	m.recommendations[rec.ID] = rec
	m.bySession[rec.SessionID] = append(m.bySession[rec.SessionID], rec.ID)

	out := *rec
	return &out, nil
}

// RecommendationsBySession returns a session's recommendations in insertion order.
func (m *MemoryStore) RecommendationsBySession(_ context.Context, sessionID int64) ([]MusicRecommendation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.bySession[sessionID]
	recs := make([]MusicRecommendation, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, *m.recommendations[id])
	}
	return recs, nil
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
