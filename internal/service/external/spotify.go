package external

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/moodtherapist/backend/internal/config"
	"github.com/moodtherapist/backend/internal/model/chat"
)

var (
	ErrMissingSpotifyCredentials = errors.New("missing Spotify credentials")
	ErrSpotifyUpstream           = errors.New("spotify request failed")
)

const (
	playlistLimit       = 8
	recommendationLimit = 10
)

// MoodSeed tunes a recommendation request for one listening mood.
type MoodSeed struct {
	Genres  []string
	Valence float64
	Energy  float64
}

// MoodSeeds maps the listening moods accepted by Recommend. Unknown moods use "calm".
var MoodSeeds = map[string]MoodSeed{
	"happy":     {Genres: []string{"pop", "dance", "party"}, Valence: 0.8, Energy: 0.8},
	"sad":       {Genres: []string{"acoustic", "piano", "ambient"}, Valence: 0.2, Energy: 0.3},
	"anxious":   {Genres: []string{"ambient", "chill", "study"}, Valence: 0.4, Energy: 0.4},
	"angry":     {Genres: []string{"rock", "metal", "punk"}, Valence: 0.3, Energy: 0.9},
	"calm":      {Genres: []string{"ambient", "classical", "meditation"}, Valence: 0.6, Energy: 0.3},
	"energetic": {Genres: []string{"edm", "workout", "electronic"}, Valence: 0.7, Energy: 0.9},
}

// SeedFor resolves mood to its seed, falling back to calm.
func SeedFor(mood string) MoodSeed {
	if seed, ok := MoodSeeds[strings.ToLower(strings.TrimSpace(mood))]; ok {
		return seed
	}
	return MoodSeeds["calm"]
}

// SpotifyClient talks to the Spotify Web API with an app-only client-credentials token.
type SpotifyClient struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	enabled    bool
}

// NewSpotifyClient builds a client. base is used for both the token and the API calls;
// nil means a default client.
func NewSpotifyClient(cfg config.ExternalConfig, base *http.Client) *SpotifyClient {
	if base == nil {
		base = &http.Client{}
	}
	creds := clientcredentials.Config{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
		TokenURL:     cfg.SpotifyTokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	return &SpotifyClient{
		httpClient: oauth2.NewClient(ctx, creds.TokenSource(ctx)),
		baseURL:    strings.TrimRight(cfg.SpotifyBaseURL, "/"),
		timeout:    cfg.Timeout,
		enabled:    cfg.SpotifyEnabled(),
	}
}

// Enabled reports whether credentials were configured.
func (c *SpotifyClient) Enabled() bool {
	return c != nil && c.enabled
}

// SearchPlaylists finds playlists for query, skipping items without id or name.
func (c *SpotifyClient) SearchPlaylists(ctx context.Context, query string) ([]chat.Playlist, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "playlist")
	params.Set("limit", strconv.Itoa(playlistLimit))

	body, err := c.get(ctx, "/v1/search", params)
	if err != nil {
		return nil, err
	}

	playlists := make([]chat.Playlist, 0)
	gjson.GetBytes(body, "playlists.items").ForEach(func(_, item gjson.Result) bool {
		p := chat.Playlist{
			ID:    item.Get("id").String(),
			Name:  item.Get("name").String(),
			URL:   item.Get("external_urls.spotify").String(),
			Image: item.Get("images.0.url").String(),
		}
		if p.ID != "" && p.Name != "" {
			playlists = append(playlists, p)
		}
		return true
	})
	return playlists, nil
}

// Recommend returns tracks seeded by a listening mood.
func (c *SpotifyClient) Recommend(ctx context.Context, mood string) ([]chat.Track, error) {
	seed := SeedFor(mood)
	params := url.Values{}
	params.Set("seed_genres", strings.Join(seed.Genres, ","))
	params.Set("target_valence", strconv.FormatFloat(seed.Valence, 'f', -1, 64))
	params.Set("target_energy", strconv.FormatFloat(seed.Energy, 'f', -1, 64))
	params.Set("limit", strconv.Itoa(recommendationLimit))

	body, err := c.get(ctx, "/v1/recommendations", params)
	if err != nil {
		return nil, err
	}

	tracks := make([]chat.Track, 0)
	gjson.GetBytes(body, "tracks").ForEach(func(_, item gjson.Result) bool {
		tracks = append(tracks, chat.Track{
			Name:        item.Get("name").String(),
			Artist:      item.Get("artists.0.name").String(),
			Album:       item.Get("album.name").String(),
			PreviewURL:  item.Get("preview_url").String(),
			ExternalURL: item.Get("external_urls.spotify").String(),
			Image:       item.Get("album.images.0.url").String(),
		})
		return true
	})
	return tracks, nil
}

func (c *SpotifyClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if !c.Enabled() {
		return nil, ErrMissingSpotifyCredentials
	}

	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build spotify request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpotifyUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrSpotifyUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpotifyUpstream, err)
	}
	return body, nil
}
