package spotify

import (
	"context"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
)

// Profile fetches the current user's account metadata.
func (c *Client) Profile(ctx context.Context, token string) (domain.Profile, error) {
	var su spotifyUser
	if err := c.getJSON(ctx, token, "/me", nil, &su); err != nil {
		return domain.Profile{}, err
	}
	return mapUserToDomain(su), nil
}

// Devices lists the user's playback devices. Restricted devices without
// an id are dropped since they cannot be targeted.
func (c *Client) Devices(ctx context.Context, token string) ([]domain.Device, error) {
	var body devicesResponse
	if err := c.getJSON(ctx, token, "/me/player/devices", nil, &body); err != nil {
		return nil, err
	}

	devices := make([]domain.Device, 0, len(body.Devices))
	for _, d := range body.Devices {
		if d.ID == "" {
			continue
		}
		devices = append(devices, mapDeviceToDomain(d))
	}
	return devices, nil
}
