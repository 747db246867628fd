package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/moodtherapist/backend/internal/service/prompt"
)

// Generator is a single-prompt text completion backend.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// PromptModel adapts a Generator to eino's chat model interface so it can sit at the end
// of a compose chain. The formatted messages are flattened into one prompt.
type PromptModel struct {
	gen Generator
}

// NewPromptModel wraps gen.
func NewPromptModel(gen Generator) *PromptModel {
	return &PromptModel{gen: gen}
}

var _ model.BaseChatModel = (*PromptModel)(nil)

func (m *PromptModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	text, err := m.gen.Generate(ctx, prompt.Flatten(input))
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(text, nil), nil
}

// Stream yields the whole completion as one chunk; the upstream endpoint is not incremental.
func (m *PromptModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// boundedModel applies the generation timeout and error classification to a chat model
// that does not do so itself.
type boundedModel struct {
	inner    model.BaseChatModel
	provider string
	timeout  time.Duration
}

func (m *boundedModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	msg, err := m.inner.Generate(ctx, input, opts...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Provider: m.provider, After: m.timeout}
		}
		return nil, &UpstreamError{Provider: m.provider, Err: err}
	}
	if msg == nil || msg.Content == "" {
		return nil, &UpstreamError{Provider: m.provider, Err: ErrMalformedResponse}
	}
	return msg, nil
}

func (m *boundedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *boundedModel) String() string {
	return fmt.Sprintf("%s(timeout=%s)", m.provider, m.timeout)
}
