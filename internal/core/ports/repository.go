package ports

import (
	"context"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
)

// TokenStore persists the single access token between restarts.
// Load returns domain.ErrNotFound when nothing is stored.
type TokenStore interface {
	LoadToken(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// TrackRepository caches tracks seen in recommendations.
type TrackRepository interface {
	SaveTracks(ctx context.Context, tracks []domain.Track) error
	GetTrack(ctx context.Context, id string) (domain.Track, error)
	UpdateTrackEnergy(ctx context.Context, id string, energy float64) error
}
