package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/moodtherapist/backend/internal/auth"
	"github.com/moodtherapist/backend/internal/model/chat"
	"github.com/moodtherapist/backend/internal/model/modes"
	"github.com/moodtherapist/backend/pkg/utils"
)

const maxBodyBytes = 1 << 20

// Responder produces a reply for one exchange.
type Responder interface {
	Respond(ctx context.Context, req chat.Request) chat.Reply
}

// Handler serves the chat endpoints.
type Handler struct {
	svc      Responder
	modes    modes.Store
	log      *logrus.Entry
	upgrader websocket.Upgrader
}

// New creates the chat handler. checkOrigin may be nil to accept every origin.
func New(svc Responder, modeStore modes.Store, log *logrus.Entry, checkOrigin func(*http.Request) bool) *Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		svc:   svc,
		modes: modeStore,
		log:   log,
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// RegisterRoutes registers chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Get("/chat/ws", h.handleWebSocket)
}

// Payload is the wire shape of a chat request.
type Payload struct {
	Message     string      `json:"message"`
	ChatHistory []chat.Turn `json:"chatHistory"`
	Mode        string      `json:"mode"`
}

var (
	errMessageRequired = errors.New("message is required")
	errUnknownMode     = errors.New("unknown mode")
)

// toRequest validates p and attaches the caller identity.
func (h *Handler) toRequest(ctx context.Context, p Payload) (chat.Request, error) {
	mode, err := chat.ParseMode(p.Mode)
	if err != nil {
		return chat.Request{}, errUnknownMode
	}
	if h.modes != nil {
		if _, ok := h.modes.FindByID(mode); !ok {
			return chat.Request{}, errUnknownMode
		}
	}

	message := strings.TrimSpace(p.Message)
	if message == "" && mode == chat.ModeDefault {
		return chat.Request{}, errMessageRequired
	}

	req := chat.Request{Message: message, History: p.ChatHistory, Mode: mode}
	if user, ok := auth.UserFrom(ctx); ok {
		req.UserID = user.ID
	}
	return req, nil
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload Payload
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.toRequest(r.Context(), payload)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, h.svc.Respond(r.Context(), req))
}
