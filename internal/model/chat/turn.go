package chat

import (
	"strings"
	"time"
)

// Role identifies who authored a turn.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Turn is one entry of the caller-owned chat transcript.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`

	// Dashboard rows were historically fed back as history; accept their columns too.
	UserMessage string `json:"user_message,omitempty"`
	BotResponse string `json:"bot_response,omitempty"`
}

// Text returns the displayable text of the turn.
func (t Turn) Text() string {
	for _, candidate := range []string{t.Content, t.UserMessage, t.BotResponse} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// Speaker normalises the role for transcripts; anything that is not the bot is the user.
func (t Turn) Speaker() Role {
	switch strings.ToLower(strings.TrimSpace(string(t.Role))) {
	case "bot", "assistant", "model":
		return RoleBot
	default:
		return RoleUser
	}
}

// Tail returns at most the last n turns without copying the backing array.
func Tail(history []Turn, n int) []Turn {
	if n <= 0 || len(history) == 0 {
		return nil
	}
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
