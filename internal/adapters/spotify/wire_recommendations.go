package spotify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
	"github.com/ewilliams-labs/emotune/internal/core/ports"
)

const (
	SourceRecommendations = "recommendations"
	SourcePlaylistSearch  = "playlist_search"

	maxResultTracks = 10
)

// Recommendations returns up to ten tracks matching emotion. It seeds the
// query from the user's listening history and falls back to a mood
// playlist search when the recommendation endpoint fails or comes back
// empty. A 401 at any step is returned without fallback.
func (c *Client) Recommendations(ctx context.Context, token string, emotion domain.Emotion) (domain.Recommendation, error) {
	// 1. Seeds
	s, err := c.userSeeds(ctx, token)
	if err != nil {
		return domain.Recommendation{}, err
	}

	// 2. Recommendations endpoint
	rec, err := c.recommend(ctx, token, emotion, s)
	if err == nil && len(rec.Tracks) > 0 {
		return rec, nil
	}
	if ports.IsUnauthorized(err) {
		return domain.Recommendation{}, err
	}
	c.logger.Warn("recommendations unavailable, falling back to playlist search",
		zap.String("emotion", emotion.String()),
		zap.Error(err),
	)

	// 3. Fallback
	return c.searchMoodPlaylist(ctx, token, emotion)
}

func (c *Client) recommend(ctx context.Context, token string, emotion domain.Emotion, s seeds) (domain.Recommendation, error) {
	query := recommendationQuery(tuningFor(emotion), s, c.market)
	c.logger.Debug("recommendation request", zap.String("query", query.Encode()))

	var body recommendationsResponse
	if err := c.getJSON(ctx, token, "/recommendations", query, &body); err != nil {
		return domain.Recommendation{}, err
	}

	tracks, uris := collectTracks(body.Tracks, maxResultTracks, func(st spotifyTrack) bool {
		return st.ID != ""
	})
	return domain.Recommendation{
		Emotion:      emotion,
		Tracks:       tracks,
		URIs:         uris,
		PlaylistName: fmt.Sprintf("%s Mood - Personalized", titleCase(emotion.String())),
		Source:       SourceRecommendations,
	}, nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
