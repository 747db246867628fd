package modes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/moodtherapist/backend/internal/model/modes"
	"github.com/moodtherapist/backend/pkg/utils"
)

// Handler serves the mode catalog.
type Handler struct {
	modes modes.Store
}

// New creates the modes handler.
func New(store modes.Store) *Handler {
	return &Handler{modes: store}
}

// RegisterRoutes registers mode routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/modes", h.handleListModes)
}

func (h *Handler) handleListModes(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.modes.List())
}
