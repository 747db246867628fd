package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/moodtherapist/backend/internal/model/chat"
)

// ErrInvalidPayload marks JSON that decoded but does not have the expected shape.
var ErrInvalidPayload = errors.New("invalid structured payload")

// ParseError reports that a structured reply could not be turned into display text.
type ParseError struct {
	Mode chat.Mode
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s reply: %v", e.Mode, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// MoodCheckFallback is shown when a mood check-in reply cannot be parsed.
const MoodCheckFallback = `Thank you for taking a moment to check in with yourself. Whatever you are feeling right now is valid.

Check-in questions:
1. What emotion is most present for you right now?
2. Where do you notice that feeling in your body?
3. What is one thing that would make the next hour a little easier?

Coping ideas:
1. Take five slow breaths, breathing out a little longer than you breathe in.
2. Write down one worry and one thing you are grateful for.

Noticing how you feel is already a meaningful step. I'm here whenever you want to talk.`

// AffirmationsFallback is shown when an affirmations reply cannot be parsed.
const AffirmationsFallback = `Here are some affirmations for you:

1. I am allowed to take things one step at a time.
   Progress does not need to be fast to be real.

2. My feelings are valid and they will pass.
   Emotions are signals, not permanent states.

3. I deserve the same kindness I give to others.
   Treating yourself gently builds resilience.`

// Render turns raw model text into display text. It never fails: structured modes
// fall back to their static block when the reply cannot be parsed.
func Render(raw string, mode chat.Mode) string {
	text, err := Parse(raw, mode)
	if err != nil {
		return Fallback(mode)
	}
	return text
}

// Parse is Render with the parse failure exposed.
func Parse(raw string, mode chat.Mode) (string, error) {
	switch mode {
	case chat.ModeMoodCheck:
		var payload MoodCheck
		if err := decode(raw, &payload); err != nil {
			return "", &ParseError{Mode: mode, Err: err}
		}
		if err := payload.validate(); err != nil {
			return "", &ParseError{Mode: mode, Err: err}
		}
		return formatMoodCheck(payload), nil
	case chat.ModeAffirmations:
		var payload []Affirmation
		if err := decode(raw, &payload); err != nil {
			return "", &ParseError{Mode: mode, Err: err}
		}
		if err := validateAffirmations(payload); err != nil {
			return "", &ParseError{Mode: mode, Err: err}
		}
		return formatAffirmations(payload), nil
	default:
		return strings.TrimSpace(raw), nil
	}
}

// Fallback returns the static block for a structured mode, or an empty string for default.
func Fallback(mode chat.Mode) string {
	switch mode {
	case chat.ModeMoodCheck:
		return MoodCheckFallback
	case chat.ModeAffirmations:
		return AffirmationsFallback
	default:
		return ""
	}
}

// fenceTag matches a language tag right after the opening fence, on its own line or not.
var fenceTag = regexp.MustCompile(`^[A-Za-z0-9_-]+(\s|$)`)

// StripCodeFence removes a surrounding ``` fence, with or without a language tag.
func StripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	text = fenceTag.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func decode(raw string, target any) error {
	body := StripCodeFence(raw)
	if body == "" {
		return fmt.Errorf("%w: empty reply", ErrInvalidPayload)
	}
	if err := json.Unmarshal([]byte(body), target); err != nil {
		return err
	}
	return nil
}

func (p MoodCheck) validate() error {
	if strings.TrimSpace(p.Acknowledgement) == "" {
		return fmt.Errorf("%w: missing acknowledgement", ErrInvalidPayload)
	}
	if strings.TrimSpace(p.Summary) == "" {
		return fmt.Errorf("%w: missing summary", ErrInvalidPayload)
	}
	if len(p.Questions) != 3 {
		return fmt.Errorf("%w: want 3 questions, got %d", ErrInvalidPayload, len(p.Questions))
	}
	if len(p.Coping) != 2 {
		return fmt.Errorf("%w: want 2 coping steps, got %d", ErrInvalidPayload, len(p.Coping))
	}
	for _, item := range append(append([]string(nil), p.Questions...), p.Coping...) {
		if strings.TrimSpace(item) == "" {
			return fmt.Errorf("%w: empty list item", ErrInvalidPayload)
		}
	}
	return nil
}

func validateAffirmations(items []Affirmation) error {
	if len(items) < MinAffirmations || len(items) > MaxAffirmations {
		return fmt.Errorf("%w: want %d-%d affirmations, got %d", ErrInvalidPayload, MinAffirmations, MaxAffirmations, len(items))
	}
	for i, item := range items {
		if strings.TrimSpace(item.Affirmation) == "" || strings.TrimSpace(item.Explanation) == "" {
			return fmt.Errorf("%w: affirmation %d is incomplete", ErrInvalidPayload, i+1)
		}
	}
	return nil
}

func formatMoodCheck(p MoodCheck) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(p.Acknowledgement))
	b.WriteString("\n\nCheck-in questions:\n")
	writeNumbered(&b, p.Questions)
	b.WriteString("\nCoping ideas:\n")
	writeNumbered(&b, p.Coping)
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(p.Summary))
	return b.String()
}

func formatAffirmations(items []Affirmation) string {
	var b strings.Builder
	b.WriteString("Here are some affirmations for you:")
	for i, item := range items {
		fmt.Fprintf(&b, "\n\n%d. %s\n   %s", i+1, strings.TrimSpace(item.Affirmation), strings.TrimSpace(item.Explanation))
	}
	return b.String()
}

func writeNumbered(b *strings.Builder, items []string) {
	for i, item := range items {
		fmt.Fprintf(b, "%d. %s\n", i+1, strings.TrimSpace(item))
	}
}
