package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/moodtherapist/backend/internal/auth"
	"github.com/moodtherapist/backend/internal/model/chat"
	chatService "github.com/moodtherapist/backend/internal/service/chat"
	"github.com/moodtherapist/backend/pkg/utils"
)

// Responder produces a reply while reporting progress.
type Responder interface {
	RespondWithEvents(ctx context.Context, req chat.Request, emit func(chatService.Event)) chat.Reply
}

// Handler streams a chat exchange as Server-Sent Events.
type Handler struct {
	svc Responder
	log *logrus.Entry
}

// New creates a stream handler.
func New(svc Responder, log *logrus.Entry) *Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handler{svc: svc, log: log}
}

// RegisterRoutes registers the stream route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/stream", h.handleStream)
}

// StreamResponse is the payload of every event.
type StreamResponse struct {
	Mode         chat.Mode      `json:"mode,omitempty"`
	BotResponse  string         `json:"botResponse,omitempty"`
	DetectedMood chat.Mood      `json:"detectedMood,omitempty"`
	External     *chat.External `json:"external,omitempty"`
	Finished     bool           `json:"finished,omitempty"`
	Error        string         `json:"error,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	utils.SendSSEEvent(w, flusher, "start", StreamResponse{Mode: req.Mode})

	reply := h.svc.RespondWithEvents(r.Context(), req, func(e chatService.Event) {
		switch e.Name {
		case chatService.EventMood:
			if mood, ok := e.Data.(chat.Mood); ok {
				utils.SendSSEEvent(w, flusher, e.Name, StreamResponse{DetectedMood: mood})
			}
		case chatService.EventExternal:
			if ext, ok := e.Data.(*chat.External); ok {
				utils.SendSSEEvent(w, flusher, e.Name, StreamResponse{External: ext})
			}
		}
	})

	utils.SendSSEEvent(w, flusher, chatService.EventReply, StreamResponse{
		BotResponse:  reply.Text,
		DetectedMood: reply.Mood,
		External:     reply.External,
	})
	utils.SendSSEEvent(w, flusher, "end", StreamResponse{Finished: true})

	h.log.WithFields(logrus.Fields{"mode": req.Mode, "mood": reply.Mood}).Debug("stream completed")
}

type requestError string

func (e requestError) Error() string { return string(e) }

// parseRequest reads message, mode and an optional JSON-encoded history from the query.
func parseRequest(r *http.Request) (chat.Request, error) {
	q := r.URL.Query()

	mode, err := chat.ParseMode(q.Get("mode"))
	if err != nil {
		return chat.Request{}, requestError("unknown mode")
	}

	message := strings.TrimSpace(q.Get("message"))
	if message == "" && mode == chat.ModeDefault {
		return chat.Request{}, requestError("message query parameter is required")
	}

	req := chat.Request{Message: message, Mode: mode}
	if raw := q.Get("history"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.History); err != nil {
			return chat.Request{}, requestError("history must be a JSON array of turns")
		}
	}
	if user, ok := auth.UserFrom(r.Context()); ok {
		req.UserID = user.ID
	}
	return req, nil
}
