package modes

import "github.com/moodtherapist/backend/internal/model/chat"

// Option describes a chat mode exposed to the frontend as an action button.
type Option struct {
	ID          chat.Mode `json:"id"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	Structured  bool      `json:"structured"`
}

// Seed provides the modes the chat UI knows how to trigger.
func Seed() []Option {
	return []Option{
		{
			ID:          chat.ModeDefault,
			Label:       "Chat",
			Description: "Free-form supportive conversation.",
		},
		{
			ID:          chat.ModeMoodCheck,
			Label:       "Mood check-in",
			Description: "A short reflection with three check-in questions and two coping ideas.",
			Structured:  true,
		},
		{
			ID:          chat.ModeAffirmations,
			Label:       "Requesting affirmations",
			Description: "Three to five personalised affirmations with a short explanation each.",
			Structured:  true,
		},
	}
}
