package spotify

import (
	"github.com/ewilliams-labs/emotune/internal/core/domain"
)

const unknownName = "Unknown"

// mapTrackToDomain converts a raw Spotify track to a clean Domain track.
func mapTrackToDomain(st spotifyTrack) domain.Track {
	// 1. First artist only
	artist := unknownName
	if len(st.Artists) > 0 && st.Artists[0].Name != "" {
		artist = st.Artists[0].Name
	}

	// 2. Extract Album Cover
	coverURL := ""
	if len(st.Album.Images) > 0 {
		coverURL = st.Album.Images[0].URL
	}

	name := st.Name
	if name == "" {
		name = unknownName
	}

	dt := domain.Track{
		ID:         st.ID,
		Name:       name,
		Artist:     artist,
		ArtworkURL: coverURL,
		URI:        st.URI,
	}
	if st.PreviewURL != nil {
		dt.PreviewURL = *st.PreviewURL
	}
	return dt
}

func mapDeviceToDomain(sd spotifyDevice) domain.Device {
	return domain.Device{
		ID:       sd.ID,
		Name:     sd.Name,
		Type:     sd.Type,
		IsActive: sd.IsActive,
	}
}

func mapUserToDomain(su spotifyUser) domain.Profile {
	return domain.Profile{
		ID:          su.ID,
		DisplayName: su.DisplayName,
		Email:       su.Email,
		Country:     su.Country,
		Product:     su.Product,
	}
}

// collectTracks maps up to limit tracks, skipping entries keep rejects.
func collectTracks(raw []spotifyTrack, limit int, keep func(spotifyTrack) bool) ([]domain.Track, []string) {
	tracks := make([]domain.Track, 0, limit)
	uris := make([]string, 0, limit)
	for _, st := range raw {
		if len(tracks) >= limit {
			break
		}
		if !keep(st) {
			continue
		}
		t := mapTrackToDomain(st)
		tracks = append(tracks, t)
		if t.URI != "" {
			uris = append(uris, t.URI)
		}
	}
	return tracks, uris
}
