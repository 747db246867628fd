package external

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/moodtherapist/backend/internal/model/chat"
)

const maxBodyBytes = 1 << 20

// Genres is the static music suggestion list.
var Genres = []string{"pop", "chill", "rock", "jazz", "classical"}

// genreForMood picks the playlist search term for a detected mood.
var genreForMood = map[chat.Mood]string{
	chat.MoodPositive: "pop",
	chat.MoodNeutral:  "jazz",
	chat.MoodNegative: "chill",
}

// Messages placed in External.Error, shown to the end user as-is.
const (
	MsgMissingNewsKey      = "Missing NewsAPI key"
	MsgNewsError           = "NewsAPI error"
	MsgMissingSpotifyCreds = "Missing Spotify credentials"
	MsgSpotifyError        = "Spotify API error"
)

var publicMessages = map[error]string{
	ErrMissingNewsKey:            MsgMissingNewsKey,
	ErrNewsUpstream:              MsgNewsError,
	ErrMissingSpotifyCredentials: MsgMissingSpotifyCreds,
	ErrSpotifyUpstream:           MsgSpotifyError,
}

var (
	musicTriggers = []string{"music", "song"}
	newsTriggers  = []string{"news", "bored"}
)

// NewsSource supplies headlines.
type NewsSource interface {
	TopHeadlines(ctx context.Context) ([]chat.Article, error)
}

// PlaylistSource supplies playlist suggestions.
type PlaylistSource interface {
	Enabled() bool
	SearchPlaylists(ctx context.Context, query string) ([]chat.Playlist, error)
}

// Trigger attaches news or music content when the message asks for it.
type Trigger struct {
	news         NewsSource
	playlists    PlaylistSource
	musicEnabled bool
	log          *logrus.Entry
}

// NewTrigger wires the content providers. playlists may be nil.
func NewTrigger(news NewsSource, playlists PlaylistSource, musicEnabled bool, log *logrus.Entry) *Trigger {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Trigger{news: news, playlists: playlists, musicEnabled: musicEnabled, log: log}
}

// Match reports which content type message asks for, if any.
func (t *Trigger) Match(message string) (chat.ExternalType, bool) {
	lower := strings.ToLower(message)
	if t.musicEnabled && containsAny(lower, musicTriggers) {
		return chat.ExternalMusic, true
	}
	if containsAny(lower, newsTriggers) {
		return chat.ExternalNews, true
	}
	return "", false
}

// Fetch returns the supplementary payload for message, or nil when nothing triggers.
// Provider failures are reported in the payload's Error field.
func (t *Trigger) Fetch(ctx context.Context, message string, mood chat.Mood) *chat.External {
	kind, ok := t.Match(message)
	if !ok {
		return nil
	}

	switch kind {
	case chat.ExternalMusic:
		return t.music(ctx, mood)
	default:
		return t.headlines(ctx)
	}
}

func (t *Trigger) headlines(ctx context.Context) *chat.External {
	ext := &chat.External{Type: chat.ExternalNews}
	if t.news == nil {
		ext.Error = MsgMissingNewsKey
		return ext
	}

	articles, err := t.news.TopHeadlines(ctx)
	if err != nil {
		t.log.WithError(err).Warn("news fetch failed")
		ext.Error = publicMessage(err, MsgNewsError)
		return ext
	}
	ext.Articles = articles
	return ext
}

func (t *Trigger) music(ctx context.Context, mood chat.Mood) *chat.External {
	ext := &chat.External{Type: chat.ExternalMusic, Genres: append([]string(nil), Genres...)}
	if t.playlists == nil || !t.playlists.Enabled() {
		return ext
	}

	genre, ok := genreForMood[mood]
	if !ok {
		genre = Genres[0]
	}
	playlists, err := t.playlists.SearchPlaylists(ctx, genre)
	if err != nil {
		t.log.WithError(err).WithField("genre", genre).Warn("playlist search failed")
		ext.Error = publicMessage(err, MsgSpotifyError)
		return ext
	}
	ext.Playlists = playlists
	return ext
}

// publicMessage maps err to its user-facing text so transport details never leak.
func publicMessage(err error, fallback string) string {
	for sentinel, msg := range publicMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return fallback
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func redact(err error, secret string) string {
	if secret == "" {
		return err.Error()
	}
	return strings.ReplaceAll(err.Error(), secret, "REDACTED")
}
