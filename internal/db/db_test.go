package db

import (
	"context"
	"errors"
	"os"
	"testing"
)

// openTestDB connects to TEST_DATABASE_URL or skips.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := New(ctx, url)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if _, err := db.pool.Exec(ctx, `TRUNCATE music_recommendations, emotion_sessions RESTART IDENTITY`); err != nil {
		t.Fatalf("truncating: %v", err)
	}
	return db
}

func TestDB_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	sess, err := db.CreateEmotionSession(ctx, NewEmotionSession{Emotion: "angry", Confidence: intPtr(77)})
	if err != nil {
		t.Fatalf("CreateEmotionSession() error = %v", err)
	}
	if sess.ID == 0 || sess.Timestamp.IsZero() || sess.UserID != nil {
		t.Errorf("session = %+v", sess)
	}

	preview := "https://p.scdn.co/x"
	for _, id := range []string{"t1", "t2"} {
		if _, err := db.CreateMusicRecommendation(ctx, NewMusicRecommendation{
			SessionID:  sess.ID,
			TrackID:    id,
			TrackName:  "Track " + id,
			ArtistName: "Artist",
			PreviewURL: &preview,
			MatchScore: intPtr(85),
		}); err != nil {
			t.Fatalf("CreateMusicRecommendation() error = %v", err)
		}
	}

	recs, err := db.RecommendationsBySession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("RecommendationsBySession() error = %v", err)
	}
	if len(recs) != 2 || recs[0].TrackID != "t1" || recs[0].AlbumCover != nil || *recs[0].MatchScore != 85 {
		t.Errorf("recs = %+v", recs)
	}

	recent, err := db.RecentEmotionSessions(ctx, nil, RecentLimit)
	if err != nil || len(recent) != 1 || recent[0].ID != sess.ID {
		t.Errorf("RecentEmotionSessions() = %+v, %v", recent, err)
	}

	if _, err := db.EmotionSession(ctx, sess.ID+1000); !errors.Is(err, ErrNotFound) {
		t.Errorf("EmotionSession(missing) error = %v, want ErrNotFound", err)
	}
}
