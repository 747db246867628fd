package health

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	chatlogService "github.com/moodtherapist/backend/internal/service/chatlog"
	"github.com/moodtherapist/backend/pkg/utils"
)

const pingTimeout = 3 * time.Second

// StatsSource reports chat log writer counters.
type StatsSource interface {
	Stats() chatlogService.Stats
}

// Status is the body of GET /health.
type Status struct {
	Status     string                `json:"status"`
	Generation bool                  `json:"generation"`
	Backend    string                `json:"backend"`
	ChatLog    *chatlogService.Stats `json:"chatlog,omitempty"`
}

// Handler reports liveness and backend reachability.
type Handler struct {
	backend    string
	generation bool
	writer     StatsSource
	db         chatlogService.Pinger
	log        *logrus.Entry
}

// New creates the health handler. writer and db may be nil when persistence is off.
func New(backend string, generation bool, writer StatsSource, db chatlogService.Pinger, log *logrus.Entry) *Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handler{backend: backend, generation: generation, writer: writer, db: db, log: log}
}

// RegisterRoutes registers health routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Get("/health/db", h.handleDB)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := Status{Status: "ok", Generation: h.generation, Backend: h.backend}
	if h.writer != nil {
		stats := h.writer.Stats()
		status.ChatLog = &stats
	}
	utils.RespondJSON(w, http.StatusOK, status)
}

func (h *Handler) handleDB(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "disabled", "backend": h.backend})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.log.WithError(err).WithField("backend", h.backend).Warn("chat log backend unreachable")
		utils.RespondError(w, http.StatusServiceUnavailable, "chat log backend unreachable")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok", "backend": h.backend})
}
