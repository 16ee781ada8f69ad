package recommend

import (
	"errors"
	"fmt"
)

// ErrNoTracks is returned when the provider answered but found no tracks.
var ErrNoTracks = errors.New("no tracks found for the selected genre")

// ProviderAuthError means no provider credential could be obtained.
// No recommendation request proceeds without one.
type ProviderAuthError struct {
	Err error
}

func (e *ProviderAuthError) Error() string {
	return fmt.Sprintf("failed to get Spotify access token: %v", e.Err)
}

func (e *ProviderAuthError) Unwrap() error { return e.Err }

// ProviderQueryError means both the recommendations call and the search fallback failed.
// Status and Detail describe the search failure.
type ProviderQueryError struct {
	Genre  string
	Status int
	Detail string
	Err    error
}

func (e *ProviderQueryError) Error() string {
	return fmt.Sprintf("spotify API error for genre %q (status %d): %s", e.Genre, e.Status, e.Detail)
}

func (e *ProviderQueryError) Unwrap() error { return e.Err }
