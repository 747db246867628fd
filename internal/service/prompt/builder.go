package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/invopop/jsonschema"

	"github.com/moodtherapist/backend/internal/model/chat"
	"github.com/moodtherapist/backend/internal/service/render"
)

// WordLimit caps the free-form reply length requested from the model.
const WordLimit = 150

// Input is everything a template needs.
type Input struct {
	Message string
	Mood    chat.Mood
	History []chat.Turn
	Mode    chat.Mode
}

// Builder renders prompts for every mode.
type Builder struct {
	window    int
	templates map[chat.Mode]einoprompt.ChatTemplate
}

// NewBuilder creates a builder that embeds at most window trailing history turns.
func NewBuilder(window int) *Builder {
	if window < 1 {
		window = 1
	}
	return &Builder{
		window: window,
		templates: map[chat.Mode]einoprompt.ChatTemplate{
			chat.ModeDefault:      newTemplate(defaultUser),
			chat.ModeMoodCheck:    newTemplate(moodCheckUser),
			chat.ModeAffirmations: newTemplate(affirmationsUser),
		},
	}
}

func newTemplate(user string) einoprompt.ChatTemplate {
	return einoprompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(companionSystem),
		schema.UserMessage(user),
	)
}

// Template returns the chat template for mode, defaulting to the free-form one.
func (b *Builder) Template(mode chat.Mode) einoprompt.ChatTemplate {
	if tpl, ok := b.templates[mode]; ok {
		return tpl
	}
	return b.templates[chat.ModeDefault]
}

// Variables produces the template variables for in.
func (b *Builder) Variables(in Input) map[string]any {
	mood := in.Mood
	if mood == "" {
		mood = chat.MoodNeutral
	}
	return map[string]any{
		"mood":       string(mood),
		"history":    Transcript(chat.Tail(in.History, b.window)),
		"message":    strings.TrimSpace(in.Message),
		"word_limit": WordLimit,
		"schema":     schemaFor(in.Mode),
	}
}

// Messages formats the mode's template into chat messages.
func (b *Builder) Messages(ctx context.Context, in Input) ([]*schema.Message, error) {
	msgs, err := b.Template(in.Mode).Format(ctx, b.Variables(in))
	if err != nil {
		return nil, fmt.Errorf("format %s prompt: %w", in.Mode, err)
	}
	return msgs, nil
}

// Build renders the single prompt string sent to the model.
func (b *Builder) Build(ctx context.Context, in Input) (string, error) {
	msgs, err := b.Messages(ctx, in)
	if err != nil {
		return "", err
	}
	return Flatten(msgs), nil
}

// Flatten joins message contents into one prompt, the shape single-turn endpoints expect.
func Flatten(msgs []*schema.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		if content := strings.TrimSpace(msg.Content); content != "" {
			parts = append(parts, content)
		}
	}
	return collapseBlankLines(strings.Join(parts, "\n\n"))
}

// Transcript renders history as "User: ..." / "Companion: ..." lines.
func Transcript(history []chat.Turn) string {
	var lines []string
	for _, turn := range history {
		text := turn.Text()
		if text == "" {
			continue
		}
		speaker := "User"
		if turn.Speaker() == chat.RoleBot {
			speaker = "Companion"
		}
		lines = append(lines, speaker+": "+text)
	}
	if len(lines) == 0 {
		return "(no previous messages)"
	}
	return strings.Join(lines, "\n")
}

func collapseBlankLines(text string) string {
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(text)
}

var (
	moodCheckSchema    = generateSchema[render.MoodCheck]()
	affirmationsSchema = generateSchema[[]render.Affirmation]()
)

func schemaFor(mode chat.Mode) string {
	switch mode {
	case chat.ModeMoodCheck:
		return moodCheckSchema
	case chat.ModeAffirmations:
		return affirmationsSchema
	default:
		return ""
	}
}

func generateSchema[T any]() string {
	var v T
	// ExpandedStruct only applies to a top-level struct; slices are reflected inline.
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            reflect.TypeOf(v).Kind() == reflect.Struct,
	}
	s := reflector.Reflect(v)
	s.Version = ""
	s.ID = ""
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		panic(err)
	}
	return string(data)
}
