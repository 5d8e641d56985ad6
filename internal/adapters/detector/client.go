// Package detector talks to an out-of-process facial expression classifier.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
	"github.com/ewilliams-labs/emotune/internal/core/ports"
)

// Client posts frames to a classifier service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// compile-time interface assertion
var _ ports.Detector = (*Client)(nil)

// NewClient constructs a detector client for the service at baseURL.
func NewClient(httpClient *http.Client, baseURL string, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger.Named("detector"),
	}
}

type detectResponse struct {
	Faces []struct {
		Expressions map[string]float64 `json:"expressions"`
	} `json:"faces"`
}

// Detect classifies frame. The first face wins; no face yields
// domain.ErrNoDetection.
func (c *Client) Detect(ctx context.Context, frame ports.Frame) (domain.Expressions, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", bytes.NewReader(frame.Data))
	if err != nil {
		return nil, fmt.Errorf("detector: create request: %w", err)
	}
	contentType := frame.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detector: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("detector: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var body detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("detector: decode: %w", err)
	}
	if len(body.Faces) == 0 || len(body.Faces[0].Expressions) == 0 {
		return nil, domain.ErrNoDetection
	}
	if len(body.Faces) > 1 {
		c.logger.Debug("multiple faces detected, using the first", zap.Int("faces", len(body.Faces)))
	}
	return domain.Expressions(body.Faces[0].Expressions), nil
}
