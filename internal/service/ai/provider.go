package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/sirupsen/logrus"

	"github.com/moodtherapist/backend/internal/config"
)

// NewChatModel creates the chat model for the configured provider.
func NewChatModel(ctx context.Context, cfg config.AIConfig, logger logrus.FieldLogger) (model.BaseChatModel, error) {
	if !cfg.Enabled() {
		return nil, config.ErrMissingAPIKey
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		return NewPromptModel(NewGeminiClient(cfg, WithLogger(logger.WithField("provider", config.ProviderGemini)))), nil
	case config.ProviderOpenAI:
		return NewPromptModel(NewOpenAIClient(cfg)), nil
	case config.ProviderArk:
		temperature := float32(cfg.Temperature)
		maxTokens := cfg.MaxTokens
		noRetry := 0
		chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     cfg.Ark.BaseURL,
			Region:      cfg.Ark.Region,
			APIKey:      cfg.Ark.APIKey,
			AccessKey:   cfg.Ark.AccessKey,
			SecretKey:   cfg.Ark.SecretKey,
			Model:       cfg.Ark.Model,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
			RetryTimes:  &noRetry,
		})
		if err != nil {
			return nil, fmt.Errorf("create ark chat model: %w", err)
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 25 * time.Second
		}
		return &boundedModel{inner: chatModel, provider: config.ProviderArk, timeout: timeout}, nil
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", cfg.Provider)
	}
}
