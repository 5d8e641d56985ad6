package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
	"github.com/ewilliams-labs/emotune/internal/core/ports"
)

// Play starts playback of uris. The device list is checked first: an
// empty list means there is nothing to play on, and an empty deviceID
// targets the first device.
func (c *Client) Play(ctx context.Context, token string, uris []string, deviceID string) error {
	// 1. Resolve the target device
	devices, err := c.Devices(ctx, token)
	switch {
	case ports.IsUnauthorized(err):
		return err
	case err != nil:
		c.logger.Warn("device lookup before play failed", zap.Error(err))
	case len(devices) == 0:
		return fmt.Errorf("spotify adapter: %w", domain.ErrNoActiveDevice)
	case deviceID == "":
		deviceID = devices[0].ID
	}

	// 2. Issue the command
	var query url.Values
	if deviceID != "" {
		query = url.Values{"device_id": {deviceID}}
	}
	req, err := c.newRequest(ctx, http.MethodPut, "/me/player/play", query, token, playRequest{URIs: uris, PositionMs: 0})
	if err != nil {
		return err
	}

	resp, err := c.send(req)
	if err != nil {
		return fmt.Errorf("spotify adapter: play: %w", err)
	}
	defer resp.Body.Close()

	// 3. Map the outcome
	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted, http.StatusNoContent:
		c.logger.Info("playback started", zap.Int("uris", len(uris)), zap.String("device", deviceID))
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("spotify adapter: play: %w: %w", domain.ErrNoActiveDevice, decodeAPIError(resp))
	default:
		return fmt.Errorf("spotify adapter: play: %w", decodeAPIError(resp))
	}
}

// Pause pauses playback on the active device.
func (c *Client) Pause(ctx context.Context, token string) error {
	req, err := c.newRequest(ctx, http.MethodPut, "/me/player/pause", nil, token, nil)
	if err != nil {
		return err
	}

	resp, err := c.send(req)
	if err != nil {
		return fmt.Errorf("spotify adapter: pause: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted, http.StatusNoContent:
		return nil
	default:
		return fmt.Errorf("spotify adapter: pause: %w", decodeAPIError(resp))
	}
}
