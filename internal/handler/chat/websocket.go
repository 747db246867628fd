package chat

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/moodtherapist/backend/internal/model/chat"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type outgoingMessage struct {
	Type         string         `json:"type"`
	ConnectionID string         `json:"connectionId,omitempty"`
	BotResponse  string         `json:"botResponse,omitempty"`
	DetectedMood chat.Mood      `json:"detectedMood,omitempty"`
	External     *chat.External `json:"external,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// handleWebSocket serves one request/reply exchange per text frame.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	log := h.log.WithField("conn_id", connID)
	log.Info("websocket connected")

	ctx := r.Context()
	conn.SetReadLimit(maxBodyBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	replies := make(chan outgoingMessage, 4)
	done := make(chan struct{})
	go h.writeLoop(conn, replies, done, log)
	defer func() {
		close(replies)
		<-done
	}()

	replies <- outgoingMessage{Type: "connected", ConnectionID: connID}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("websocket closed unexpectedly")
			}
			return
		}
		if msgType != websocket.TextMessage {
			replies <- outgoingMessage{Type: "error", Error: "text frames only"}
			continue
		}

		var payload Payload
		if err := json.Unmarshal(data, &payload); err != nil {
			replies <- outgoingMessage{Type: "error", Error: "invalid message format"}
			continue
		}
		req, err := h.toRequest(ctx, payload)
		if err != nil {
			replies <- outgoingMessage{Type: "error", Error: err.Error()}
			continue
		}

		reply := h.svc.Respond(ctx, req)
		replies <- outgoingMessage{
			Type:         "reply",
			BotResponse:  reply.Text,
			DetectedMood: reply.Mood,
			External:     reply.External,
		}
	}
}

// writeLoop owns every write on conn, including keepalive pings.
func (h *Handler) writeLoop(conn *websocket.Conn, replies <-chan outgoingMessage, done chan<- struct{}, log *logrus.Entry) {
	defer close(done)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-replies:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Warn("websocket write failed")
				_ = conn.Close()
				drain(replies)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				drain(replies)
				return
			}
		}
	}
}

// drain keeps the reader from blocking after the writer gave up.
func drain(replies <-chan outgoingMessage) {
	for range replies {
	}
}
