package external

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodtherapist/backend/internal/config"
	"github.com/moodtherapist/backend/internal/model/chat"
)

func externalConfig(baseURL string) config.ExternalConfig {
	return config.ExternalConfig{
		NewsAPIKey:          "news-key",
		NewsBaseURL:         baseURL,
		NewsCountry:         "us",
		NewsPageSize:        6,
		SpotifyClientID:     "client",
		SpotifyClientSecret: "secret",
		SpotifyTokenURL:     baseURL + "/api/token",
		SpotifyBaseURL:      baseURL,
		Timeout:             2 * time.Second,
	}
}

func TestTopHeadlinesFiltersAndRenames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/top-headlines", r.URL.Path)
		assert.Equal(t, "us", r.URL.Query().Get("country"))
		assert.Equal(t, "6", r.URL.Query().Get("pageSize"))
		assert.Equal(t, "news-key", r.URL.Query().Get("apiKey"))
		_, _ = w.Write([]byte(`{"status":"ok","articles":[
			{"title":"Calm seas","url":"https://n.example/1","source":{"name":"Daily"},"description":"d","urlToImage":"https://img/1"},
			{"title":"","url":"https://n.example/2"},
			{"title":"No link"},
			{"title":"Bare","url":"https://n.example/3"}
		]}`))
	}))
	defer srv.Close()

	articles, err := NewNewsClient(externalConfig(srv.URL), srv.Client()).TopHeadlines(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, chat.Article{
		Title:       "Calm seas",
		URL:         "https://n.example/1",
		Source:      "Daily",
		Description: "d",
		Image:       "https://img/1",
	}, articles[0])
	assert.Equal(t, "Bare", articles[1].Title)
	assert.Empty(t, articles[1].Source)
}

func TestTopHeadlinesErrors(t *testing.T) {
	cfg := externalConfig("http://127.0.0.1:1")
	cfg.NewsAPIKey = ""
	_, err := NewNewsClient(cfg, nil).TopHeadlines(context.Background())
	assert.ErrorIs(t, err, ErrMissingNewsKey)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	_, err = NewNewsClient(externalConfig(srv.URL), srv.Client()).TopHeadlines(context.Background())
	assert.ErrorIs(t, err, ErrNewsUpstream)
}

func newSpotifyServer(t *testing.T, tokenCalls *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(tokenCalls, 1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "playlist", r.URL.Query().Get("type"))
		assert.Equal(t, "8", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"playlists":{"items":[
			null,
			{"id":"p1","name":"Chill Vibes","external_urls":{"spotify":"https://open.spotify.com/p1"},"images":[{"url":"https://i/p1"}]},
			{"id":"","name":"Nameless id"},
			{"id":"p2","name":"Lo-fi"}
		]}}`))
	})
	mux.HandleFunc("/v1/recommendations", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ambient,chill,study", r.URL.Query().Get("seed_genres"))
		assert.Equal(t, "0.4", r.URL.Query().Get("target_valence"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"tracks":[{"name":"Weightless","artists":[{"name":"Marconi Union"}],
			"album":{"name":"Ambient","images":[{"url":"https://i/a"}]},"preview_url":"https://p","external_urls":{"spotify":"https://s"}}]}`))
	})
	return httptest.NewServer(mux)
}

func TestSpotifySearchAndRecommend(t *testing.T) {
	var tokenCalls int32
	srv := newSpotifyServer(t, &tokenCalls)
	defer srv.Close()

	client := NewSpotifyClient(externalConfig(srv.URL), srv.Client())
	require.True(t, client.Enabled())

	playlists, err := client.SearchPlaylists(context.Background(), "chill")
	require.NoError(t, err)
	require.Len(t, playlists, 2)
	assert.Equal(t, chat.Playlist{ID: "p1", Name: "Chill Vibes", URL: "https://open.spotify.com/p1", Image: "https://i/p1"}, playlists[0])

	tracks, err := client.Recommend(context.Background(), "Anxious")
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "Marconi Union", tracks[0].Artist)
	assert.Equal(t, "https://i/a", tracks[0].Image)

	assert.EqualValues(t, 1, atomic.LoadInt32(&tokenCalls), "token is cached")
}

func TestSpotifyWithoutCredentials(t *testing.T) {
	cfg := externalConfig("http://127.0.0.1:1")
	cfg.SpotifyClientSecret = ""
	client := NewSpotifyClient(cfg, nil)

	assert.False(t, client.Enabled())
	_, err := client.Recommend(context.Background(), "happy")
	assert.ErrorIs(t, err, ErrMissingSpotifyCredentials)
}

func TestSeedForDefaultsToCalm(t *testing.T) {
	assert.Equal(t, MoodSeeds["calm"], SeedFor("melancholic"))
	assert.Equal(t, MoodSeeds["happy"], SeedFor(" HAPPY "))
}

type stubNews struct {
	articles []chat.Article
	err      error
	calls    int
}

func (s *stubNews) TopHeadlines(context.Context) ([]chat.Article, error) {
	s.calls++
	return s.articles, s.err
}

type stubPlaylists struct {
	enabled bool
	query   string
	err     error
}

func (s *stubPlaylists) Enabled() bool { return s.enabled }

func (s *stubPlaylists) SearchPlaylists(_ context.Context, query string) ([]chat.Playlist, error) {
	s.query = query
	if s.err != nil {
		return nil, s.err
	}
	return []chat.Playlist{{ID: "p", Name: query}}, nil
}

func TestTriggerNoMatch(t *testing.T) {
	news := &stubNews{}
	trigger := NewTrigger(news, nil, true, nil)

	assert.Nil(t, trigger.Fetch(context.Background(), "I had a quiet day", chat.MoodNeutral))
	assert.Zero(t, news.calls)
}

func TestTriggerNews(t *testing.T) {
	news := &stubNews{articles: []chat.Article{{Title: "t", URL: "u"}}}
	trigger := NewTrigger(news, nil, true, nil)

	for _, msg := range []string{"show me the latest NEWS", "I'm so bored"} {
		ext := trigger.Fetch(context.Background(), msg, chat.MoodNeutral)
		require.NotNil(t, ext)
		assert.Equal(t, chat.ExternalNews, ext.Type)
		assert.Len(t, ext.Articles, 1)
		assert.Empty(t, ext.Error)
	}
}

func TestTriggerNewsFailureIsReportedInPayload(t *testing.T) {
	trigger := NewTrigger(&stubNews{err: ErrMissingNewsKey}, nil, true, nil)
	ext := trigger.Fetch(context.Background(), "news please", chat.MoodNeutral)
	require.NotNil(t, ext)
	assert.Equal(t, MsgMissingNewsKey, ext.Error)

	trigger = NewTrigger(&stubNews{err: errors.New("dial tcp: refused")}, nil, true, nil)
	ext = trigger.Fetch(context.Background(), "news please", chat.MoodNeutral)
	assert.Equal(t, MsgNewsError, ext.Error)
}

func TestTriggerMusicTakesPrecedence(t *testing.T) {
	news := &stubNews{}
	playlists := &stubPlaylists{enabled: true}
	trigger := NewTrigger(news, playlists, true, nil)

	ext := trigger.Fetch(context.Background(), "any news or a song for me?", chat.MoodNegative)
	require.NotNil(t, ext)
	assert.Equal(t, chat.ExternalMusic, ext.Type)
	assert.Equal(t, Genres, ext.Genres)
	assert.Equal(t, "chill", playlists.query)
	require.Len(t, ext.Playlists, 1)
	assert.Zero(t, news.calls)
}

func TestTriggerMusicKeepsGenresOnPlaylistFailure(t *testing.T) {
	trigger := NewTrigger(&stubNews{}, &stubPlaylists{enabled: true, err: ErrSpotifyUpstream}, true, nil)

	ext := trigger.Fetch(context.Background(), "play some music", chat.MoodPositive)
	require.NotNil(t, ext)
	assert.Equal(t, Genres, ext.Genres)
	assert.Empty(t, ext.Playlists)
	assert.Equal(t, MsgSpotifyError, ext.Error)
}

func TestTriggerMusicDisabledFallsThroughToNews(t *testing.T) {
	news := &stubNews{}
	trigger := NewTrigger(news, nil, false, nil)

	assert.Nil(t, trigger.Fetch(context.Background(), "play a song", chat.MoodNeutral))
	ext := trigger.Fetch(context.Background(), "a song about the news", chat.MoodNeutral)
	require.NotNil(t, ext)
	assert.Equal(t, chat.ExternalNews, ext.Type)
}
