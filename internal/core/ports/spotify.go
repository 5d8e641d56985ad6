package ports

import (
	"context"
	"errors"
	"fmt"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
)

// APIError carries a non-success response from the music service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("music service: status %d", e.Status)
	}
	return fmt.Sprintf("music service: status %d: %s", e.Status, e.Message)
}

// Is lets errors.Is match the domain sentinels by status class.
func (e *APIError) Is(target error) bool {
	switch e.Status {
	case 401:
		return target == domain.ErrUnauthorized
	case 403:
		return target == domain.ErrPremiumRequired
	}
	return false
}

// IsUnauthorized reports whether err means the access token is no longer valid.
func IsUnauthorized(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized)
}

// MusicService is the remote catalog and playback collaborator.
type MusicService interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
	Profile(ctx context.Context, token string) (domain.Profile, error)
	Devices(ctx context.Context, token string) ([]domain.Device, error)
	Recommendations(ctx context.Context, token string, emotion domain.Emotion) (domain.Recommendation, error)
	Play(ctx context.Context, token string, uris []string, deviceID string) error
	Pause(ctx context.Context, token string) error
}
