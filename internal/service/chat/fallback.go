package chat

import (
	"hash/fnv"

	"github.com/moodtherapist/backend/internal/model/chat"
)

// MissingKeyReply is returned without any network call when no generation key is configured.
const MissingKeyReply = "I'm sorry, I'm having trouble connecting to my AI service right now. Please try again later."

// CannedReplies are shown when the generation call fails, keyed by detected mood.
var CannedReplies = map[chat.Mood][]string{
	chat.MoodNegative: {
		"I'm really sorry you're going through this. It sounds heavy, and you don't have to carry it alone. I'm here to listen whenever you want to share more.",
		"That sounds really hard. Your feelings make sense, and it's okay to take things one small step at a time. Would you like to tell me more about what's on your mind?",
		"Thank you for trusting me with how you feel. When things feel overwhelming, a few slow breaths can help a little. I'm here with you.",
	},
	chat.MoodNeutral: {
		"Thank you for sharing that with me. I'm here to listen and help you work through whatever you're experiencing.",
		"I'm glad you reached out. How has the rest of your day been going?",
		"I'm here with you. Feel free to tell me more about what's on your mind.",
	},
	chat.MoodPositive: {
		"It's wonderful to hear that! Moments like this are worth savouring. What do you think made today feel good?",
		"That's great to hear. I'm really glad things are going well for you. Tell me more!",
		"I love hearing that. Holding on to these good moments can really help on tougher days.",
	},
}

const (
	newsFallback  = "I found some top news for you based on your message. I'm here to listen and support you."
	musicFallback = "I found some music options for you based on your message. I'm here to listen and support you."
)

// cannedReply picks one reply for mood, stable for a given message.
func cannedReply(mood chat.Mood, message string) string {
	options, ok := CannedReplies[mood]
	if !ok {
		options = CannedReplies[chat.MoodNeutral]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(message))
	return options[h.Sum32()%uint32(len(options))]
}

func outageReply(mood chat.Mood, message string, external *chat.External) string {
	if external != nil {
		if external.Type == chat.ExternalMusic {
			return musicFallback
		}
		return newsFallback
	}
	return cannedReply(mood, message)
}
