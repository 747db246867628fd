package chat

import (
	"fmt"
	"strings"
)

// Mode selects the prompt template and the rendering path.
type Mode string

const (
	ModeDefault      Mode = "default"
	ModeMoodCheck    Mode = "mood_check"
	ModeAffirmations Mode = "affirmations"
)

// Structured reports whether the mode expects a JSON reply from the model.
func (m Mode) Structured() bool {
	return m == ModeMoodCheck || m == ModeAffirmations
}

// ParseMode maps the wire value to a Mode. Empty input is the default mode.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeDefault:
		return ModeDefault, nil
	case ModeMoodCheck:
		return ModeMoodCheck, nil
	case ModeAffirmations:
		return ModeAffirmations, nil
	default:
		return "", fmt.Errorf("unknown mode %q", raw)
	}
}

// Request is everything the core needs for one exchange.
type Request struct {
	Message string
	History []Turn
	UserID  string
	Mode    Mode
}

// Mood is the derived mood label attached to every reply and log record.
type Mood string

const (
	MoodPositive Mood = "positive"
	MoodNeutral  Mood = "neutral"
	MoodNegative Mood = "negative"
)

// Moods lists every label in display order.
var Moods = []Mood{MoodPositive, MoodNeutral, MoodNegative}

// Valid reports whether m is one of the three labels.
func (m Mood) Valid() bool {
	return m == MoodPositive || m == MoodNeutral || m == MoodNegative
}
