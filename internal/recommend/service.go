// Package recommend turns a detected emotion into a stored batch of track recommendations.
package recommend

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/justestif/go-mood-recommender/internal/db"
	"github.com/justestif/go-mood-recommender/internal/emotion"
	"github.com/justestif/go-mood-recommender/internal/genre"
	"github.com/justestif/go-mood-recommender/internal/logging"
	"github.com/justestif/go-mood-recommender/internal/metrics"
	"github.com/justestif/go-mood-recommender/internal/spotify"
)

// TrackLimit caps the tracks requested from the provider.
const TrackLimit = 10

// DefaultConfidence is recorded when a request omits confidence.
const DefaultConfidence = 80

// UnknownArtist names tracks that list no artist.
const UnknownArtist = "Unknown Artist"

// Match scores are drawn uniformly from [minMatchScore, maxMatchScore].
const (
	minMatchScore = 80
	maxMatchScore = 100
)

// Provider is the music catalog. *spotify.Provider satisfies it.
type Provider interface {
	Credential(ctx context.Context) (*oauth2.Token, error)
	GenreSeeds(ctx context.Context, tok *oauth2.Token) ([]string, error)
	Recommendations(ctx context.Context, tok *oauth2.Token, genre string, limit int) ([]spotify.Track, error)
	SearchTracks(ctx context.Context, tok *oauth2.Token, query string, limit int) ([]spotify.Track, error)
}

// Result is a created session and the recommendations stored for it.
type Result struct {
	Session         db.EmotionSession        `json:"session"`
	Recommendations []db.MusicRecommendation `json:"recommendations"`
}

// Service orchestrates credential, genre choice, session creation, track lookup
// and recommendation storage.
type Service struct {
	provider Provider
	store    db.Store
	vocab    *genre.Vocabulary
	rand     emotion.Rand
}

// New creates a Service. A nil vocab gets a fresh Vocabulary; a nil r uses emotion.DefaultRand.
// r must be safe for concurrent use when the Service serves concurrent requests.
func New(provider Provider, store db.Store, vocab *genre.Vocabulary, r emotion.Rand) *Service {
	if vocab == nil {
		vocab = genre.NewVocabulary()
	}
	if r == nil {
		r = emotion.DefaultRand
	}
	return &Service{provider: provider, store: store, vocab: vocab, rand: r}
}

// Recommend fetches tracks for the emotion and records them under a new session.
//
// Errors are *ProviderAuthError when no credential could be obtained,
// *ProviderQueryError when both provider queries failed, ErrNoTracks when the
// provider returned nothing, and wrapped storage errors otherwise.
func (s *Service) Recommend(ctx context.Context, label string, confidence int) (*Result, error) {
	log := logging.Ctx(ctx)

	tok, err := s.provider.Credential(ctx)
	if err != nil {
		return nil, &ProviderAuthError{Err: err}
	}

	available := s.vocab.Genres(ctx, func(ctx context.Context) ([]string, error) {
		return s.provider.GenreSeeds(ctx, tok)
	})
	selected := genre.Select(label, available, s.rand)
	log.Info().Str("emotion", label).Str("genre", selected).Msg("genre selected")

	session, err := s.store.CreateEmotionSession(ctx, db.NewEmotionSession{
		Emotion:    label,
		Confidence: &confidence,
	})
	if err != nil {
		return nil, fmt.Errorf("creating emotion session: %w", err)
	}

	tracks, err := s.fetchTracks(ctx, tok, selected)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, ErrNoTracks
	}

	recs := make([]db.MusicRecommendation, 0, len(tracks))
	for _, t := range tracks {
		rec, err := s.store.CreateMusicRecommendation(ctx, s.toRecommendation(session.ID, t))
		if err != nil {
			return nil, fmt.Errorf("creating recommendation: %w", err)
		}
		recs = append(recs, *rec)
	}

	log.Info().
		Int64("session_id", session.ID).
		Int("count", len(recs)).
		Msg("recommendations created")
	return &Result{Session: *session, Recommendations: recs}, nil
}

// fetchTracks queries the recommendations endpoint and falls back to a genre search once.
func (s *Service) fetchTracks(ctx context.Context, tok *oauth2.Token, selected string) ([]spotify.Track, error) {
	tracks, err := s.provider.Recommendations(ctx, tok, selected, TrackLimit)
	if err == nil {
		return tracks, nil
	}

	logging.Ctx(ctx).Warn().Err(err).Str("genre", selected).Msg("recommendations failed, trying search")
	metrics.SearchFallbacks.Inc()

	tracks, err = s.provider.SearchTracks(ctx, tok, "genre:"+selected, TrackLimit)
	if err != nil {
		status, detail := spotify.ErrorDetail(err)
		return nil, &ProviderQueryError{Genre: selected, Status: status, Detail: detail, Err: err}
	}
	return tracks, nil
}

func (s *Service) toRecommendation(sessionID int64, t spotify.Track) db.NewMusicRecommendation {
	artist := UnknownArtist
	if len(t.Artists) > 0 && t.Artists[0] != "" {
		artist = t.Artists[0]
	}
	score := minMatchScore + s.rand.IntN(maxMatchScore-minMatchScore+1)

	return db.NewMusicRecommendation{
		SessionID:  sessionID,
		TrackID:    t.ID,
		TrackName:  t.Name,
		ArtistName: artist,
		AlbumCover: optional(t.AlbumImageURL),
		PreviewURL: optional(t.PreviewURL),
		MatchScore: &score,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
