package spotify

import (
	"context"
	"net/url"
	"slices"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/emotune/internal/core/ports"
)

const maxSeeds = 2

// seeds are the user-history seeds for a recommendation query.
type seeds struct {
	tracks  []string
	artists []string
}

func (s seeds) empty() bool {
	return len(s.tracks) == 0 && len(s.artists) == 0
}

// userSeeds collects up to two top tracks (plus their first artists) and,
// if that yields fewer than two artists, tops up from the user's top
// artists. Only a 401 is returned; other failures just mean fewer seeds.
func (c *Client) userSeeds(ctx context.Context, token string) (seeds, error) {
	var s seeds

	// 1. Top tracks
	var tracks topTracksResponse
	err := c.getJSON(ctx, token, "/me/top/tracks", url.Values{
		"limit":      {"5"},
		"time_range": {"short_term"},
	}, &tracks)
	switch {
	case ports.IsUnauthorized(err):
		return seeds{}, err
	case err != nil:
		c.logger.Warn("top tracks unavailable", zap.Error(err))
	default:
		for _, t := range tracks.Items {
			if len(s.tracks) >= maxSeeds {
				break
			}
			if t.ID == "" {
				continue
			}
			s.tracks = append(s.tracks, t.ID)
			if len(t.Artists) > 0 && t.Artists[0].ID != "" {
				s.artists = append(s.artists, t.Artists[0].ID)
			}
		}
	}

	if len(s.artists) >= maxSeeds {
		return s, nil
	}

	// 2. Top artists
	var artists topArtistsResponse
	err = c.getJSON(ctx, token, "/me/top/artists", url.Values{
		"limit":      {"3"},
		"time_range": {"short_term"},
	}, &artists)
	switch {
	case ports.IsUnauthorized(err):
		return seeds{}, err
	case err != nil:
		c.logger.Warn("top artists unavailable", zap.Error(err))
	default:
		for i, a := range artists.Items {
			if i >= maxSeeds {
				break
			}
			if a.ID != "" && !slices.Contains(s.artists, a.ID) {
				s.artists = append(s.artists, a.ID)
			}
		}
	}
	return s, nil
}
