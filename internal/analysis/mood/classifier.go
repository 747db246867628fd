package mood

import (
	"strings"

	"github.com/moodtherapist/backend/internal/model/chat"
)

// HistoryWindow is how many trailing turns contribute to the sentiment score.
const HistoryWindow = 5

// Decision carries the label together with the evidence it was derived from.
type Decision struct {
	Mood     chat.Mood
	Score    int
	Negative []string
	Positive []string
}

var negativeKeywords = []string{
	"lonely", "hopeless", "worthless", "depressed", "anxious", "overwhelmed", "sad",
	"stressed", "exhausted", "miserable", "empty", "numb", "scared", "afraid",
	"panicking", "worried", "hurt", "crying", "heartbroken", "angry", "frustrated",
	"tired", "helpless", "useless", "isolated", "alone", "upset", "ashamed",
}

var positiveKeywords = []string{
	"grateful", "hopeful", "happy", "excited", "calm", "peaceful", "proud",
	"joyful", "relieved", "thankful", "motivated", "confident", "content", "optimistic",
	"loved", "inspired", "energized", "cheerful", "great", "better", "blessed",
}

// Classify returns the mood label for message in the context of history.
func Classify(message string, history []chat.Turn) chat.Mood {
	return Analyze(message, history).Mood
}

// Analyze scores the message plus the trailing history window and resolves a label.
// Keyword evidence in the message itself wins over the numeric score unless both classes match.
func Analyze(message string, history []chat.Turn) Decision {
	score := defaultLexicon.Score(scoringText(message, history))

	tokens := make(map[string]struct{})
	for _, token := range tokenize(message) {
		tokens[token] = struct{}{}
	}
	negative := matchKeywords(tokens, negativeKeywords)
	positive := matchKeywords(tokens, positiveKeywords)

	decision := Decision{Score: score, Negative: negative, Positive: positive}
	switch {
	case len(negative) > 0 && len(positive) == 0:
		decision.Mood = chat.MoodNegative
	case len(positive) > 0 && len(negative) == 0:
		decision.Mood = chat.MoodPositive
	case score > 1:
		decision.Mood = chat.MoodPositive
	case score < -1:
		decision.Mood = chat.MoodNegative
	default:
		decision.Mood = chat.MoodNeutral
	}
	return decision
}

func scoringText(message string, history []chat.Turn) string {
	parts := []string{message}
	for _, turn := range chat.Tail(history, HistoryWindow) {
		if text := turn.Text(); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func matchKeywords(tokens map[string]struct{}, keywords []string) []string {
	var matched []string
	for _, keyword := range keywords {
		if _, ok := tokens[keyword]; ok {
			matched = append(matched, keyword)
		}
	}
	return matched
}
