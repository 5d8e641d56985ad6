package domain

// Track represents a playable track in the domain layer.
type Track struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Artist     string  `json:"artist"`
	ArtworkURL string  `json:"artwork_url,omitempty"`
	URI        string  `json:"uri"`
	PreviewURL string  `json:"preview_url,omitempty"` // optional 30s clip
	Energy     float64 `json:"energy,omitempty"`      // filled in by preview analysis
}

// Device is an addressable playback endpoint on the music service.
type Device struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsActive bool   `json:"is_active"`
}

// Profile is the subset of account metadata we display.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Country     string `json:"country,omitempty"`
	Product     string `json:"product,omitempty"`
}

// Recommendation is the result of asking the music service for tracks
// matching an emotion.
type Recommendation struct {
	Emotion      Emotion
	Tracks       []Track
	URIs         []string
	PlaylistName string
	Source       string
}
