package spotify

// spotifyImage is an album artwork entry.
type spotifyImage struct {
	URL string `json:"url"`
}

type spotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type spotifyAlbum struct {
	Name   string         `json:"name"`
	Images []spotifyImage `json:"images"`
}

// spotifyTrack represents the Spotify API response for a track.
type spotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	URI        string          `json:"uri"`
	PreviewURL *string         `json:"preview_url"`
	Artists    []spotifyArtist `json:"artists"`
	Album      spotifyAlbum    `json:"album"`
}

type spotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Product     string `json:"product"`
}

type spotifyDevice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsActive bool   `json:"is_active"`
}

type devicesResponse struct {
	Devices []spotifyDevice `json:"devices"`
}

type topTracksResponse struct {
	Items []spotifyTrack `json:"items"`
}

type topArtistsResponse struct {
	Items []spotifyArtist `json:"items"`
}

type recommendationsResponse struct {
	Tracks []spotifyTrack `json:"tracks"`
}

// spotifyPlaylistSummary is a playlist as returned by search. Search pages
// may contain null entries.
type spotifyPlaylistSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type playlistSearchResponse struct {
	Playlists *struct {
		Items []*spotifyPlaylistSummary `json:"items"`
	} `json:"playlists"`
}

type playlistTracksResponse struct {
	Items []struct {
		Track *spotifyTrack `json:"track"`
	} `json:"items"`
}

// playRequest is the body of PUT /me/player/play.
type playRequest struct {
	URIs       []string `json:"uris"`
	PositionMs int      `json:"position_ms"`
}

// errorEnvelope is Spotify's Web API error body.
type errorEnvelope struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}
