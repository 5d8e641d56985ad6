// Package camera supplies frames from a network camera's still-image endpoint.
package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
	"github.com/ewilliams-labs/emotune/internal/core/ports"
)

const maxFrameBytes = 8 << 20

// ErrClosed is returned by Frame when the source is not open.
var ErrClosed = errors.New("camera: source is closed")

// Snapshot fetches one JPEG per Frame call from a snapshot URL.
type Snapshot struct {
	httpClient *http.Client
	url        string
	logger     *zap.Logger

	mu   sync.Mutex
	open bool
}

// compile-time interface assertion
var _ ports.FrameSource = (*Snapshot)(nil)

// NewSnapshot constructs a closed frame source for url.
func NewSnapshot(httpClient *http.Client, url string, logger *zap.Logger) *Snapshot {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Snapshot{httpClient: httpClient, url: url, logger: logger.Named("camera")}
}

// Open probes the endpoint once. 401 and 403 map to
// domain.ErrPermissionDenied.
func (s *Snapshot) Open(ctx context.Context) error {
	if s.url == "" {
		return fmt.Errorf("camera: no snapshot url configured: %w", domain.ErrPermissionDenied)
	}
	if _, err := s.fetch(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
	s.logger.Info("camera opened", zap.String("url", s.url))
	return nil
}

// Frame grabs the current still.
func (s *Snapshot) Frame(ctx context.Context) (ports.Frame, error) {
	s.mu.Lock()
	open := s.open
	s.mu.Unlock()
	if !open {
		return ports.Frame{}, ErrClosed
	}
	return s.fetch(ctx)
}

// Close releases the source. It is safe to call more than once.
func (s *Snapshot) Close() error {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
	return nil
}

func (s *Snapshot) fetch(ctx context.Context) (ports.Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return ports.Frame{}, fmt.Errorf("camera: create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return ports.Frame{}, fmt.Errorf("camera: request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return ports.Frame{}, fmt.Errorf("camera: status %d: %w", resp.StatusCode, domain.ErrPermissionDenied)
	default:
		return ports.Frame{}, fmt.Errorf("camera: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameBytes))
	if err != nil {
		return ports.Frame{}, fmt.Errorf("camera: read frame: %w", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return ports.Frame{Data: data, ContentType: contentType}, nil
}
