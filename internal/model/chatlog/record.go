package chatlog

import (
	"time"

	"github.com/moodtherapist/backend/internal/model/chat"
)

// Record is one persisted exchange. Records are append-only.
type Record struct {
	ID           string    `json:"id"`
	UserID       *string   `json:"user_id"`
	UserMessage  string    `json:"user_message"`
	BotResponse  string    `json:"bot_response"`
	DetectedMood chat.Mood `json:"detected_mood"`
	CreatedAt    time.Time `json:"created_at"`
}

// Query narrows a range read for dashboard analytics.
type Query struct {
	UserID string
	Since  time.Time
}
