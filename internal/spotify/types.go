package spotify

import (
	"errors"
	"net/http"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// Track is the catalog metadata needed to build a recommendation.
type Track struct {
	ID            string
	Name          string
	Artists       []string
	AlbumImageURL string // first album image, may be empty
	PreviewURL    string // may be empty
}

// ErrorDetail extracts the HTTP status and message from a provider error.
// Errors that carry no status report 502 and the error text.
func ErrorDetail(err error) (status int, message string) {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status, apiErr.Message
	}
	var apiErrPtr *spotify.Error
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Status, apiErrPtr.Message
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return retrieveErr.Response.StatusCode, string(retrieveErr.Body)
	}
	return http.StatusBadGateway, err.Error()
}
