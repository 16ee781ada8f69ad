// Package spotify queries the Spotify Web API catalog for genre-seeded tracks.
package spotify

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/justestif/go-mood-recommender/internal/config"
	"github.com/justestif/go-mood-recommender/internal/logging"
	"github.com/justestif/go-mood-recommender/internal/metrics"
)

var (
	// ErrMissingCredentials is returned when the client id or secret is not configured.
	ErrMissingCredentials = errors.New("spotify credentials not configured")

	// ErrBreakerOpen is returned while the recommendations endpoint is short-circuited.
	ErrBreakerOpen = errors.New("recommendations endpoint unavailable")
)

// Breaker settings for the recommendations endpoint.
const (
	breakerFailures = 5
	breakerTimeout  = 5 * time.Minute
)

// Provider reads the Spotify catalog using an app-level client-credentials token.
type Provider struct {
	cfg        config.SpotifyConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]Track]
}

// NewProvider creates a Provider. A nil httpClient gets a client with a 10 second timeout.
func NewProvider(cfg config.SpotifyConfig, httpClient *http.Client) *Provider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	breaker := gobreaker.NewCircuitBreaker[[]Track](gobreaker.Settings{
		Name:    "spotify-recommendations",
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})

	return &Provider{cfg: cfg, httpClient: httpClient, breaker: breaker}
}

// Credential obtains a fresh client-credentials token. No token is cached.
func (p *Provider) Credential(ctx context.Context) (*oauth2.Token, error) {
	if !p.cfg.HasCredentials() {
		return nil, ErrMissingCredentials
	}

	cc := clientcredentials.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		TokenURL:     p.cfg.TokenURL,
	}
	var tok *oauth2.Token
	err := p.observe("token", func() error {
		var err error
		tok, err = cc.Token(p.oauthContext(ctx))
		return err
	})
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Debug().
		Str("client_id", truncate(p.cfg.ClientID, 8)).
		Time("expiry", tok.Expiry).
		Msg("obtained client credentials token")
	return tok, nil
}

// GenreSeeds returns the genres the recommendations endpoint accepts as seeds.
func (p *Provider) GenreSeeds(ctx context.Context, tok *oauth2.Token) ([]string, error) {
	var genres []string
	err := p.observe("genre_seeds", func() error {
		var err error
		genres, err = p.client(ctx, tok).GetAvailableGenreSeeds(ctx)
		return err
	})
	return genres, err
}

// Recommendations returns up to limit tracks seeded by genre.
// After repeated failures the endpoint is short-circuited and ErrBreakerOpen is returned.
func (p *Provider) Recommendations(ctx context.Context, tok *oauth2.Token, genre string, limit int) ([]Track, error) {
	tracks, err := p.breaker.Execute(func() ([]Track, error) {
		var tracks []Track
		err := p.observe("recommendations", func() error {
			recs, err := p.client(ctx, tok).GetRecommendations(ctx,
				spotify.Seeds{Genres: []string{genre}},
				nil,
				spotify.Limit(limit),
				spotify.Market(p.cfg.Market),
			)
			if err != nil {
				return err
			}
			tracks = make([]Track, 0, len(recs.Tracks))
			for _, t := range recs.Tracks {
				tracks = append(tracks, fromSimpleTrack(t))
			}
			return nil
		})
		return tracks, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrBreakerOpen
	}
	return tracks, err
}

// SearchTracks runs a track search, e.g. "genre:jazz", capped at limit results.
func (p *Provider) SearchTracks(ctx context.Context, tok *oauth2.Token, query string, limit int) ([]Track, error) {
	var tracks []Track
	err := p.observe("search", func() error {
		res, err := p.client(ctx, tok).Search(ctx, query, spotify.SearchTypeTrack,
			spotify.Limit(limit),
			spotify.Market(p.cfg.Market),
		)
		if err != nil {
			return err
		}
		if res.Tracks == nil {
			tracks = []Track{}
			return nil
		}
		tracks = make([]Track, 0, len(res.Tracks.Tracks))
		for _, t := range res.Tracks.Tracks {
			tracks = append(tracks, fromFullTrack(t))
		}
		return nil
	})
	return tracks, err
}

// client returns an API client authorized with tok.
func (p *Provider) client(ctx context.Context, tok *oauth2.Token) *spotify.Client {
	hc := oauth2.NewClient(p.oauthContext(ctx), oauth2.StaticTokenSource(tok))
	return spotify.New(hc, spotify.WithBaseURL(p.cfg.APIBaseURL))
}

// oauthContext makes the oauth2 package use the provider's HTTP client.
func (p *Provider) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// observe records call count and latency for one provider endpoint.
func (p *Provider) observe(endpoint string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.ProviderCallDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.ProviderCalls.WithLabelValues(endpoint, result).Inc()
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
