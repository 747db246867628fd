package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/moodtherapist/backend/internal/auth"
	"github.com/moodtherapist/backend/internal/model/chatlog"
	dashboardService "github.com/moodtherapist/backend/internal/service/dashboard"
	"github.com/moodtherapist/backend/pkg/utils"
)

// StatsProvider computes dashboard statistics.
type StatsProvider interface {
	Stats(ctx context.Context, userID string, days int) (chatlog.Stats, error)
}

// Handler serves per-user analytics.
type Handler struct {
	stats StatsProvider
	log   *logrus.Entry
}

// New creates the dashboard handler.
func New(stats StatsProvider, log *logrus.Entry) *Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handler{stats: stats, log: log}
}

// RegisterRoutes registers dashboard routes behind RequireUser.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(auth.RequireUser).Get("/dashboard/stats", h.handleStats)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	days := dashboardService.DefaultDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			utils.RespondError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	stats, err := h.stats.Stats(r.Context(), user.ID, days)
	switch {
	case errors.Is(err, dashboardService.ErrUnavailable):
		utils.RespondError(w, http.StatusNotImplemented, "dashboard requires a readable chat log backend")
	case err != nil:
		h.log.WithError(err).WithField("user_id", user.ID).Error("failed to compute dashboard stats")
		utils.RespondError(w, http.StatusBadGateway, "failed to load chat history")
	default:
		utils.RespondJSON(w, http.StatusOK, stats)
	}
}
