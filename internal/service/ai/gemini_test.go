package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodtherapist/backend/internal/config"
)

func testAIConfig(baseURL string) config.AIConfig {
	return config.AIConfig{
		Provider:    config.ProviderGemini,
		Gemini:      config.GeminiConfig{APIKey: "test-key", Model: "gemini-1.5-flash", BaseURL: baseURL},
		Temperature: 0.8,
		MaxTokens:   900,
		Timeout:     2 * time.Second,
	}
}

func TestGeminiGenerateWireFormat(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		if !assert.NoError(t, json.Unmarshal(body, &payload)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		contents := payload["contents"].([]any)
		parts := contents[0].(map[string]any)["parts"].([]any)
		assert.Equal(t, "hello there", parts[0].(map[string]any)["text"])
		genCfg := payload["generationConfig"].(map[string]any)
		assert.EqualValues(t, 900, genCfg["maxOutputTokens"])
		assert.EqualValues(t, 0.8, genCfg["temperature"])

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"I'm here for you."}]}}]}`))
	}))
	defer srv.Close()

	client := NewGeminiClient(testAIConfig(srv.URL))
	text, err := client.Generate(context.Background(), "hello there")
	require.NoError(t, err)
	assert.Equal(t, "I'm here for you.", text)
	assert.Equal(t, 1, calls)
}

func TestGeminiGenerateNon2xxIsUpstreamError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"overloaded"}`))
	}))
	defer srv.Close()

	_, err := NewGeminiClient(testAIConfig(srv.URL)).Generate(context.Background(), "hi")
	require.Error(t, err)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusServiceUnavailable, upstream.StatusCode)
	assert.Contains(t, upstream.Body, "overloaded")
	assert.True(t, IsUpstreamFailure(err))
	assert.Equal(t, 1, calls, "no retry")
}

func TestGeminiGenerateMalformedShape(t *testing.T) {
	for name, body := range map[string]string{
		"no candidates": `{"candidates":[]}`,
		"not json":      `<html>oops</html>`,
		"numeric text":  `{"candidates":[{"content":{"parts":[{"text":42}]}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := NewGeminiClient(testAIConfig(srv.URL)).Generate(context.Background(), "hi")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedResponse))
			var upstream *UpstreamError
			assert.ErrorAs(t, err, &upstream)
		})
	}
}

func TestGeminiGenerateTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := testAIConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond

	_, err := NewGeminiClient(cfg).Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 50*time.Millisecond, timeout.After)
}

func TestGeminiGenerateWithoutKey(t *testing.T) {
	cfg := testAIConfig("http://127.0.0.1:1")
	cfg.Gemini.APIKey = ""

	_, err := NewGeminiClient(cfg).Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
}

func TestPromptModelFlattensMessages(t *testing.T) {
	gen := &recordingGenerator{reply: "ok"}
	m := NewPromptModel(gen)

	msg, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("be kind"),
		schema.UserMessage("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Content)
	assert.Equal(t, schema.Assistant, msg.Role)
	assert.Equal(t, "be kind\n\nhello", gen.prompt)
}

func TestBoundedModelClassifiesErrors(t *testing.T) {
	m := &boundedModel{inner: NewPromptModel(&recordingGenerator{err: errors.New("boom")}), provider: "ark", timeout: time.Second}

	_, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "ark", upstream.Provider)

	m = &boundedModel{inner: NewPromptModel(&recordingGenerator{}), provider: "ark", timeout: time.Second}
	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestNewChatModelRequiresCredentials(t *testing.T) {
	_, err := NewChatModel(context.Background(), config.AIConfig{Provider: config.ProviderGemini}, nil)
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
}

type recordingGenerator struct {
	prompt string
	reply  string
	err    error
}

func (g *recordingGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.reply, g.err
}

func TestArkModelMakesSingleUpstreamCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"code":"InternalServiceError","message":"boom"}}`)
	}))
	defer srv.Close()

	m, err := NewChatModel(context.Background(), config.AIConfig{
		Provider:    config.ProviderArk,
		Ark:         config.ArkConfig{APIKey: "ark-key", Model: "ep-test", BaseURL: srv.URL, Region: "cn-beijing"},
		Temperature: 0.8,
		MaxTokens:   900,
		Timeout:     5 * time.Second,
	}, nil)
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hello")})
	require.Error(t, err)
	assert.True(t, IsUpstreamFailure(err))
	assert.Equal(t, int32(1), calls.Load())
}
