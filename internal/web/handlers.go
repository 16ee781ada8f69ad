package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/oauth2"

	"github.com/justestif/go-mood-recommender/internal/auth"
	"github.com/justestif/go-mood-recommender/internal/db"
	"github.com/justestif/go-mood-recommender/internal/logging"
	"github.com/justestif/go-mood-recommender/internal/metrics"
	"github.com/justestif/go-mood-recommender/internal/recommend"
	"github.com/justestif/go-mood-recommender/internal/spotify"
	"github.com/justestif/go-mood-recommender/internal/validation"
)

// Authenticator runs the user authorization-code flow. *auth.Authenticator satisfies it.
type Authenticator interface {
	AuthURL() (authURL, state string, err error)
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// Recommender creates recommendations for an emotion. *recommend.Service satisfies it.
type Recommender interface {
	Recommend(ctx context.Context, emotion string, confidence int) (*recommend.Result, error)
}

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	auth        Authenticator // nil when no client id is configured
	recommender Recommender
	store       db.Store
}

// NewHandlers creates a new Handlers instance. authenticator may be nil.
func NewHandlers(authenticator Authenticator, recommender Recommender, store db.Store) *Handlers {
	return &Handlers{
		auth:        authenticator,
		recommender: recommender,
		store:       store,
	}
}

// Health reports liveness (GET /health).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SpotifyAuth returns the Spotify consent URL (GET /api/spotify/auth).
func (h *Handlers) SpotifyAuth(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		writeError(w, http.StatusInternalServerError, "Spotify client ID not configured")
		return
	}

	url, _, err := h.auth.AuthURL()
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("building auth URL")
		writeError(w, http.StatusInternalServerError, "Failed to generate auth URL")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"authUrl": url})
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// SpotifyCallback exchanges an authorization code for tokens (GET /api/spotify/callback).
func (h *Handlers) SpotifyCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "Authorization code is required")
		return
	}
	if h.auth == nil {
		writeError(w, http.StatusInternalServerError, "Spotify credentials not configured")
		return
	}

	token, err := h.auth.Exchange(r.Context(), code)
	if errors.Is(err, auth.ErrMissingSecret) {
		writeError(w, http.StatusInternalServerError, "Spotify credentials not configured")
		return
	}
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("token exchange failed")
		writeError(w, http.StatusBadRequest, "Failed to exchange code for token")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    auth.ExpiresIn(token),
	})
}

type recommendationRequest struct {
	Emotion    string `json:"emotion" validate:"required,max=32"`
	Confidence *int   `json:"confidence" validate:"omitempty,min=0,max=100"`
}

// Recommend creates a session and its recommendations (POST /api/recommendations).
func (h *Handlers) Recommend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req recommendationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		metrics.RecommendationRequests.WithLabelValues("validation").Inc()
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validation.Struct(&req); err != nil {
		metrics.RecommendationRequests.WithLabelValues("validation").Inc()
		writeValidationError(w, err)
		return
	}

	confidence := recommend.DefaultConfidence
	if req.Confidence != nil {
		confidence = *req.Confidence
	}

	result, err := h.recommender.Recommend(ctx, req.Emotion, confidence)
	if err != nil {
		h.writeRecommendError(ctx, w, err)
		return
	}

	metrics.RecommendationRequests.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, result)
}

// writeRecommendError maps orchestrator errors to responses.
func (h *Handlers) writeRecommendError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logging.Ctx(ctx)

	var authErr *recommend.ProviderAuthError
	var queryErr *recommend.ProviderQueryError

	switch {
	case errors.As(err, &authErr):
		metrics.RecommendationRequests.WithLabelValues("auth").Inc()
		log.Error().Err(err).Msg("provider credential failed")
		if errors.Is(err, spotify.ErrMissingCredentials) {
			writeError(w, http.StatusInternalServerError, "Spotify credentials not configured")
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Message: "Failed to get Spotify access token",
			Error:   authErr.Err.Error(),
		})

	case errors.As(err, &queryErr):
		metrics.RecommendationRequests.WithLabelValues("provider").Inc()
		log.Warn().Err(err).Msg("provider query failed")
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Message: "Spotify API error",
			Error:   queryErr.Detail,
			Status:  queryErr.Status,
		})

	case errors.Is(err, recommend.ErrNoTracks):
		metrics.RecommendationRequests.WithLabelValues("no_tracks").Inc()
		writeError(w, http.StatusBadRequest, "No tracks found for the selected genre")

	default:
		metrics.RecommendationRequests.WithLabelValues("storage").Inc()
		log.Error().Err(err).Msg("recommendation failed")
		writeError(w, http.StatusInternalServerError, "Failed to get recommendations")
	}
}

// RecentEmotions lists the newest sessions (GET /api/emotions/recent).
func (h *Handlers) RecentEmotions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.RecentEmotionSessions(r.Context(), nil, db.RecentLimit)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("listing emotion sessions")
		writeError(w, http.StatusInternalServerError, "Failed to fetch emotion sessions")
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// CreateEmotion stores a session without fetching recommendations (POST /api/emotions).
func (h *Handlers) CreateEmotion(w http.ResponseWriter, r *http.Request) {
	var req db.NewEmotionSession
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validation.Struct(&req); err != nil {
		writeValidationError(w, err)
		return
	}

	session, err := h.store.CreateEmotionSession(r.Context(), req)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("creating emotion session")
		writeError(w, http.StatusInternalServerError, "Failed to create emotion session")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// SessionRecommendations lists a session's recommendations (GET /api/emotions/{id}/recommendations).
func (h *Handlers) SessionRecommendations(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid session id")
		return
	}

	if _, err := h.store.EmotionSession(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Emotion session not found")
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Int64("session_id", id).Msg("loading emotion session")
		writeError(w, http.StatusInternalServerError, "Failed to fetch recommendations")
		return
	}

	recs, err := h.store.RecommendationsBySession(r.Context(), id)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int64("session_id", id).Msg("listing recommendations")
		writeError(w, http.StatusInternalServerError, "Failed to fetch recommendations")
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verr *validation.RequestValidationError
	if !errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Message: verr.Fields[0].Message,
		Fields:  verr.Fields,
	})
}
