package music

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/moodtherapist/backend/internal/model/chat"
	"github.com/moodtherapist/backend/internal/service/external"
	"github.com/moodtherapist/backend/pkg/utils"
)

// Recommender returns tracks for a listening mood.
type Recommender interface {
	Enabled() bool
	Recommend(ctx context.Context, mood string) ([]chat.Track, error)
}

// Handler serves mood-seeded Spotify recommendations.
type Handler struct {
	spotify Recommender
	log     *logrus.Entry
}

// New creates the music handler.
func New(spotify Recommender, log *logrus.Entry) *Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handler{spotify: spotify, log: log}
}

// RegisterRoutes registers music routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/spotify", h.handleUsage)
	r.Post("/spotify", h.handleRecommend)
}

func (h *Handler) handleUsage(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"message": "Spotify API endpoint - use POST with mood parameter",
		"example": map[string]string{"mood": "happy"},
	})
}

func (h *Handler) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Mood string `json:"mood"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Mood) == "" {
		utils.RespondError(w, http.StatusBadRequest, "Mood parameter is required")
		return
	}
	if h.spotify == nil || !h.spotify.Enabled() {
		utils.RespondError(w, http.StatusInternalServerError, "Spotify credentials not configured")
		return
	}

	tracks, err := h.spotify.Recommend(r.Context(), payload.Mood)
	if err != nil {
		if !errors.Is(err, external.ErrMissingSpotifyCredentials) {
			h.log.WithError(err).WithField("mood", payload.Mood).Error("spotify recommendations failed")
		}
		utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch music recommendations")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tracks":  tracks,
	})
}
