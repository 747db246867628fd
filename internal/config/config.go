package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config groups every setting of the service.
type Config struct {
	Server   ServerConfig
	AI       AIConfig
	Chat     ChatConfig
	External ExternalConfig
	ChatLog  ChatLogConfig
	Supabase SupabaseConfig
	Auth     AuthConfig
	Log      LogConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	external, err := loadExternalConfig()
	if err != nil {
		return nil, err
	}

	supabase := loadSupabaseConfig()

	chatLog, err := loadChatLogConfig(supabase)
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		AI:       ai,
		Chat:     chat,
		External: external,
		ChatLog:  chatLog,
		Supabase: supabase,
		Auth:     auth,
		Log:      loadLogConfig(),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

func loadServerConfig() (ServerConfig, error) {
	origins := splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as given.
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ErrMissingAPIKey is returned when the selected generation provider has no credentials.
var ErrMissingAPIKey = errors.New("generation API key not configured")

// Generation providers.
const (
	ProviderGemini = "gemini"
	ProviderArk    = "ark"
	ProviderOpenAI = "openai"
)

// AIConfig describes the generative-language backend.
type AIConfig struct {
	Provider    string
	Gemini      GeminiConfig
	Ark         ArkConfig
	OpenAI      OpenAIConfig
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// GeminiConfig holds the Generative Language REST settings.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// ArkConfig holds Volcengine Ark credentials.
type ArkConfig struct {
	APIKey    string
	AccessKey string
	SecretKey string
	Model     string
	BaseURL   string
	Region    string
}

// OpenAIConfig holds settings for any OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Enabled reports whether the selected provider has the credentials it needs.
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderGemini:
		return c.Gemini.APIKey != "" && c.Gemini.Model != ""
	case ProviderArk:
		return c.Ark.Model != "" && (c.Ark.APIKey != "" || (c.Ark.AccessKey != "" && c.Ark.SecretKey != ""))
	case ProviderOpenAI:
		return c.OpenAI.APIKey != "" && c.OpenAI.Model != ""
	default:
		return false
	}
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderGemini))
	switch provider {
	case ProviderGemini, ProviderArk, ProviderOpenAI:
	default:
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q", provider)
	}

	temperature := 0.8
	if override, err := parseOptionalFloatEnv("AI_TEMPERATURE"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		temperature = *override
	}

	maxTokens := 900
	if override, err := parseOptionalIntEnv("AI_MAX_TOKENS"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return AIConfig{}, fmt.Errorf("invalid AI_MAX_TOKENS value %d: must be positive", *override)
		}
		maxTokens = *override
	}

	timeout, err := parseSecondsEnv("AI_TIMEOUT_SECONDS", 25*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		Provider: provider,
		Gemini: GeminiConfig{
			APIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			Model:   getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
			BaseURL: getEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		},
		Ark: ArkConfig{
			APIKey:    strings.TrimSpace(os.Getenv("ARK_API_KEY")),
			AccessKey: strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
			SecretKey: strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
			Model:     strings.TrimSpace(os.Getenv("ARK_MODEL")),
			BaseURL:   getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
			Region:    getEnvOrDefault("ARK_REGION", "cn-beijing"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			Model:   getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL: strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Timeout:     timeout,
	}, nil
}

// ChatConfig lifts the behaviours that differed between revisions of the chat routine.
type ChatConfig struct {
	HistoryWindow               int
	PersistOnMissingKey         bool
	RequireUserIDForPersistence bool
	MusicTrigger                bool
}

func loadChatConfig() (ChatConfig, error) {
	window := 5
	if override, err := parseOptionalIntEnv("CHAT_HISTORY_WINDOW"); err != nil {
		return ChatConfig{}, err
	} else if override != nil {
		if *override < 1 {
			window = 1
		} else {
			window = *override
		}
	}

	persistOnMissingKey, err := parseBoolEnv("PERSIST_ON_MISSING_KEY", false)
	if err != nil {
		return ChatConfig{}, err
	}

	requireUserID, err := parseBoolEnv("REQUIRE_USER_ID_FOR_PERSISTENCE", true)
	if err != nil {
		return ChatConfig{}, err
	}

	music, err := parseBoolEnv("CHAT_MUSIC_TRIGGER", true)
	if err != nil {
		return ChatConfig{}, err
	}

	return ChatConfig{
		HistoryWindow:               window,
		PersistOnMissingKey:         persistOnMissingKey,
		RequireUserIDForPersistence: requireUserID,
		MusicTrigger:                music,
	}, nil
}

// ExternalConfig describes the news and music providers.
type ExternalConfig struct {
	NewsAPIKey          string
	NewsBaseURL         string
	NewsCountry         string
	NewsPageSize        int
	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyTokenURL     string
	SpotifyBaseURL      string
	Timeout             time.Duration
}

// SpotifyEnabled reports whether client credentials were supplied.
func (c ExternalConfig) SpotifyEnabled() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}

func loadExternalConfig() (ExternalConfig, error) {
	pageSize := 6
	if override, err := parseOptionalIntEnv("NEWSAPI_PAGE_SIZE"); err != nil {
		return ExternalConfig{}, err
	} else if override != nil && *override > 0 {
		pageSize = *override
	}

	timeout, err := parseSecondsEnv("EXTERNAL_TIMEOUT_SECONDS", 10*time.Second)
	if err != nil {
		return ExternalConfig{}, err
	}

	return ExternalConfig{
		NewsAPIKey:          strings.TrimSpace(os.Getenv("NEWSAPI_KEY")),
		NewsBaseURL:         getEnvOrDefault("NEWSAPI_BASE_URL", "https://newsapi.org"),
		NewsCountry:         getEnvOrDefault("NEWSAPI_COUNTRY", "us"),
		NewsPageSize:        pageSize,
		SpotifyClientID:     strings.TrimSpace(os.Getenv("SPOTIFY_CLIENT_ID")),
		SpotifyClientSecret: strings.TrimSpace(os.Getenv("SPOTIFY_CLIENT_SECRET")),
		SpotifyTokenURL:     getEnvOrDefault("SPOTIFY_TOKEN_URL", "https://accounts.spotify.com/api/token"),
		SpotifyBaseURL:      getEnvOrDefault("SPOTIFY_API_BASE_URL", "https://api.spotify.com"),
		Timeout:             timeout,
	}, nil
}

// Chat-log backends.
const (
	BackendNone     = "none"
	BackendSupabase = "supabase"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
)

// ChatLogConfig selects and tunes the persistence sink.
type ChatLogConfig struct {
	Backend      string
	SQLitePath   string
	RedisURL     string
	RedisStream  string
	QueueSize    int
	WriteTimeout time.Duration
}

func loadChatLogConfig(supabase SupabaseConfig) (ChatLogConfig, error) {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("CHATLOG_BACKEND")))
	if backend == "" {
		backend = BackendNone
		if supabase.Enabled() {
			backend = BackendSupabase
		}
	}
	switch backend {
	case BackendNone, BackendSupabase, BackendSQLite, BackendRedis:
	default:
		return ChatLogConfig{}, fmt.Errorf("invalid CHATLOG_BACKEND value %q", backend)
	}
	if backend == BackendSupabase && !supabase.Enabled() {
		return ChatLogConfig{}, fmt.Errorf("CHATLOG_BACKEND=supabase requires SUPABASE_URL and a key")
	}

	queueSize := 256
	if override, err := parseOptionalIntEnv("CHATLOG_QUEUE_SIZE"); err != nil {
		return ChatLogConfig{}, err
	} else if override != nil && *override > 0 {
		queueSize = *override
	}

	writeTimeout, err := parseSecondsEnv("CHATLOG_WRITE_TIMEOUT_SECONDS", 5*time.Second)
	if err != nil {
		return ChatLogConfig{}, err
	}

	return ChatLogConfig{
		Backend:      backend,
		SQLitePath:   getEnvOrDefault("CHATLOG_SQLITE_PATH", "moodtherapist.db"),
		RedisURL:     getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),
		RedisStream:  getEnvOrDefault("CHATLOG_REDIS_STREAM", "chatlog"),
		QueueSize:    queueSize,
		WriteTimeout: writeTimeout,
	}, nil
}

// SupabaseConfig points at the managed auth + PostgREST backend.
type SupabaseConfig struct {
	URL        string
	AnonKey    string
	ServiceKey string
	Table      string
}

// Enabled reports whether a project URL and at least one key are set.
func (c SupabaseConfig) Enabled() bool {
	return c.URL != "" && (c.AnonKey != "" || c.ServiceKey != "")
}

// WriteKey prefers the service role key for server-side writes.
func (c SupabaseConfig) WriteKey() string {
	if c.ServiceKey != "" {
		return c.ServiceKey
	}
	return c.AnonKey
}

func loadSupabaseConfig() SupabaseConfig {
	return SupabaseConfig{
		URL:        strings.TrimRight(strings.TrimSpace(os.Getenv("SUPABASE_URL")), "/"),
		AnonKey:    strings.TrimSpace(os.Getenv("SUPABASE_ANON_KEY")),
		ServiceKey: strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_ROLE_KEY")),
		Table:      getEnvOrDefault("SUPABASE_CHATLOG_TABLE", "chatlog"),
	}
}

// AuthConfig controls bearer-token verification.
type AuthConfig struct {
	Required bool
}

func loadAuthConfig() (AuthConfig, error) {
	required, err := parseBoolEnv("AUTH_REQUIRED", false)
	if err != nil {
		return AuthConfig{}, err
	}
	return AuthConfig{Required: required}, nil
}

// LogConfig configures the logrus root logger.
type LogConfig struct {
	Level  string
	Format string
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "text")),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

// parseSecondsEnv reads a whole number of seconds; zero or negative values keep the default.
func parseSecondsEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	seconds, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if seconds == nil || *seconds <= 0 {
		return defaultValue, nil
	}
	return time.Duration(*seconds) * time.Second, nil
}
