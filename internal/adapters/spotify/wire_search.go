package spotify

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
)

// searchMoodPlaylist finds a public playlist for "<emotion> mood" and
// returns its first playable tracks.
func (c *Client) searchMoodPlaylist(ctx context.Context, token string, emotion domain.Emotion) (domain.Recommendation, error) {
	query := url.Values{}
	query.Set("q", fmt.Sprintf("%s mood", emotion))
	query.Set("type", "playlist")
	query.Set("limit", "10")

	var body playlistSearchResponse
	if err := c.getJSON(ctx, token, "/search", query, &body); err != nil {
		return domain.Recommendation{}, err
	}
	if body.Playlists == nil {
		return domain.Recommendation{}, fmt.Errorf("spotify adapter: playlist search for %s: %w", emotion, domain.ErrNoRecommendations)
	}

	var chosen *spotifyPlaylistSummary
	for _, p := range body.Playlists.Items {
		if p != nil && p.ID != "" && p.Name != "" {
			chosen = p
			break
		}
	}
	if chosen == nil {
		return domain.Recommendation{}, fmt.Errorf("spotify adapter: no valid playlist for %s: %w", emotion, domain.ErrNoRecommendations)
	}
	c.logger.Info("using mood playlist", zap.String("playlist", chosen.Name), zap.String("id", chosen.ID))

	tracks, uris, err := c.playlistTracks(ctx, token, chosen.ID)
	if err != nil {
		return domain.Recommendation{}, err
	}
	if len(tracks) == 0 {
		return domain.Recommendation{}, fmt.Errorf("spotify adapter: playlist %s has no playable tracks: %w", chosen.ID, domain.ErrNoRecommendations)
	}

	return domain.Recommendation{
		Emotion:      emotion,
		Tracks:       tracks,
		URIs:         uris,
		PlaylistName: chosen.Name,
		Source:       SourcePlaylistSearch,
	}, nil
}
