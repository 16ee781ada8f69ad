package genre

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/justestif/go-mood-recommender/internal/logging"
	"github.com/justestif/go-mood-recommender/internal/metrics"
)

// FetchFunc retrieves the provider's live genre list.
type FetchFunc func(ctx context.Context) ([]string, error)

// Vocabulary caches the provider's genre list for the life of the process.
//
// The first successful non-empty fetch is kept and never invalidated.
// Failed or empty fetches fall back to DefaultGenres and are retried on the next call.
// Concurrent callers share a single in-flight fetch.
type Vocabulary struct {
	mu     sync.RWMutex
	genres []string
	group  singleflight.Group
}

// NewVocabulary returns an empty Vocabulary.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{}
}

// Genres returns the cached list, populating it with fetch on first use.
// It never fails.
func (v *Vocabulary) Genres(ctx context.Context, fetch FetchFunc) []string {
	if g, ok := v.Cached(); ok {
		return g
	}

	res, err, _ := v.group.Do("genres", func() (any, error) {
		if g, ok := v.Cached(); ok {
			return g, nil
		}
		g, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if len(g) == 0 {
			return nil, nil
		}
		v.mu.Lock()
		v.genres = g
		v.mu.Unlock()
		logging.Ctx(ctx).Info().Int("count", len(g)).Msg("genre vocabulary cached")
		return g, nil
	})

	genres, _ := res.([]string)
	if err != nil || len(genres) == 0 {
		metrics.GenreVocabularyFallbacks.Inc()
		ev := logging.Ctx(ctx).Warn()
		if err != nil {
			ev = ev.Err(err)
		}
		ev.Msg("genre vocabulary unavailable, using defaults")
		return DefaultGenres
	}
	return genres
}

// Cached returns the cached list, if populated.
func (v *Vocabulary) Cached() ([]string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.genres, v.genres != nil
}
