// Package auth implements the Spotify authorization-code flow for end users.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/justestif/go-mood-recommender/internal/config"
)

var (
	// ErrMissingCredentials is returned when the Spotify client id is not configured.
	ErrMissingCredentials = errors.New("spotify client id not configured")

	// ErrMissingSecret is returned by Exchange when the client secret is not configured.
	ErrMissingSecret = errors.New("spotify client secret not configured")

	// ErrMissingCode is returned when the callback carries no authorization code.
	ErrMissingCode = errors.New("authorization code is required")
)

// Scopes requested from the user.
var Scopes = []string{
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadEmail,
	spotifyauth.ScopeStreaming,
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
}

// Authenticator builds authorization URLs and exchanges callback codes for tokens.
type Authenticator struct {
	auth      *spotifyauth.Authenticator
	hasSecret bool
}

// New creates an Authenticator from cfg.
// Returns ErrMissingCredentials if no client id is configured. A missing secret
// still allows AuthURL; Exchange then fails with ErrMissingSecret.
func New(cfg config.SpotifyConfig) (*Authenticator, error) {
	if cfg.ClientID == "" {
		return nil, ErrMissingCredentials
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithRedirectURL(cfg.RedirectURI),
		spotifyauth.WithScopes(Scopes...),
	)
	return &Authenticator{auth: auth, hasSecret: cfg.ClientSecret != ""}, nil
}

// AuthURL returns the consent page URL and the random state embedded in it.
func (a *Authenticator) AuthURL() (authURL, state string, err error) {
	state, err = generateState()
	if err != nil {
		return "", "", fmt.Errorf("generating state: %w", err)
	}
	return a.auth.AuthURL(state), state, nil
}

// Exchange trades an authorization code for a user token.
func (a *Authenticator) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, ErrMissingCode
	}
	if !a.hasSecret {
		return nil, ErrMissingSecret
	}
	tok, err := a.auth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}
	return tok, nil
}

// ExpiresIn returns the seconds until tok expires, or 0 if it has no expiry.
func ExpiresIn(tok *oauth2.Token) int {
	if tok == nil || tok.Expiry.IsZero() {
		return 0
	}
	return max(0, int(time.Until(tok.Expiry).Round(time.Second).Seconds()))
}

// generateState creates a random state string for OAuth.
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
