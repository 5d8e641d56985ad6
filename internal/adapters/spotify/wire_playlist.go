package spotify

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
)

// playlistTracks fetches the first page of a playlist and keeps tracks
// that have an id, a name and a uri.
func (c *Client) playlistTracks(ctx context.Context, token, playlistID string) ([]domain.Track, []string, error) {
	var body playlistTracksResponse
	path := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	if err := c.getJSON(ctx, token, path, url.Values{"limit": {"20"}}, &body); err != nil {
		return nil, nil, err
	}

	raw := make([]spotifyTrack, 0, len(body.Items))
	for _, item := range body.Items {
		if item.Track != nil {
			raw = append(raw, *item.Track)
		}
	}

	tracks, uris := collectTracks(raw, maxResultTracks, func(st spotifyTrack) bool {
		return st.ID != "" && st.Name != "" && st.URI != ""
	})
	return tracks, uris, nil
}
