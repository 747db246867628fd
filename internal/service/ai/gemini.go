package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/moodtherapist/backend/internal/config"
)

const (
	geminiProvider = "gemini"
	maxReplyBytes  = 1 << 20
	textPath       = "candidates.0.content.parts.0.text"
)

// GeminiClient calls the Generative Language generateContent endpoint. One network
// call per Generate, no retries.
type GeminiClient struct {
	httpClient  *http.Client
	baseURL     string
	model       string
	apiKey      string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	log         *logrus.Entry
}

// GeminiOption customises a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(client *http.Client) GeminiOption {
	return func(c *GeminiClient) {
		c.httpClient = client
	}
}

// WithLogger attaches a logger.
func WithLogger(entry *logrus.Entry) GeminiOption {
	return func(c *GeminiClient) {
		c.log = entry
	}
}

// NewGeminiClient builds a client from configuration.
func NewGeminiClient(cfg config.AIConfig, opts ...GeminiOption) *GeminiClient {
	c := &GeminiClient{
		httpClient:  &http.Client{},
		baseURL:     strings.TrimRight(cfg.Gemini.BaseURL, "/"),
		model:       cfg.Gemini.Model,
		apiKey:      cfg.Gemini.APIKey,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		log:         logrus.NewEntry(logrus.StandardLogger()),
	}
	if c.timeout <= 0 {
		c.timeout = 25 * time.Second
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

// Generate sends prompt and returns the first candidate's text.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", config.ErrMissingAPIKey
	}

	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: c.maxTokens,
			Temperature:     c.temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode gemini request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return "", c.transportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &UpstreamError{Provider: geminiProvider, StatusCode: resp.StatusCode, Body: truncateBody(body)}
	}

	text := gjson.GetBytes(body, textPath)
	if !gjson.ValidBytes(body) || text.Type != gjson.String {
		return "", &UpstreamError{
			Provider:   geminiProvider,
			StatusCode: resp.StatusCode,
			Body:       truncateBody(body),
			Err:        ErrMalformedResponse,
		}
	}

	c.log.WithFields(logrus.Fields{
		"model":    c.model,
		"duration": time.Since(started).Round(time.Millisecond),
		"length":   len(text.String()),
	}).Debug("gemini generation completed")
	return text.String(), nil
}

func (c *GeminiClient) endpoint() string {
	query := url.Values{}
	query.Set("key", c.apiKey)
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent?%s", c.baseURL, url.PathEscape(c.model), query.Encode())
}

func (c *GeminiClient) transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Provider: geminiProvider, After: c.timeout}
	}
	return &UpstreamError{Provider: geminiProvider, Err: redactKey(err, c.apiKey)}
}

// redactKey keeps the query-string key out of logged *url.Error messages.
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "REDACTED"))
}
