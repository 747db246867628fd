package chat

// Reply is the sole externally observable result of one exchange.
type Reply struct {
	Text     string    `json:"botResponse"`
	Mood     Mood      `json:"detectedMood"`
	External *External `json:"external,omitempty"`
}

// ExternalType tags the supplementary payload.
type ExternalType string

const (
	ExternalNews  ExternalType = "news"
	ExternalMusic ExternalType = "spotify_genres"
)

// External is supplementary content attached when the message contains a trigger word.
// Error is set instead of failing the exchange when the provider could not be reached.
type External struct {
	Type      ExternalType `json:"type"`
	Articles  []Article    `json:"articles,omitempty"`
	Genres    []string     `json:"genres,omitempty"`
	Playlists []Playlist   `json:"playlists,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// Article is a trimmed news headline.
type Article struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      string `json:"source,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Playlist is a minimal Spotify playlist reference.
type Playlist struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url,omitempty"`
	Image string `json:"image,omitempty"`
}

// Track is a Spotify recommendation.
type Track struct {
	Name        string `json:"name"`
	Artist      string `json:"artist,omitempty"`
	Album       string `json:"album,omitempty"`
	PreviewURL  string `json:"preview_url,omitempty"`
	ExternalURL string `json:"external_url,omitempty"`
	Image       string `json:"image,omitempty"`
}
