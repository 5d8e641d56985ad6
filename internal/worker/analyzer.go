package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

var previewClient = &http.Client{Timeout: 15 * time.Second}

// AnalyzePreviewFunc allows tests to override the analyzer implementation.
var AnalyzePreviewFunc = analyzePreview

// analyzePreview streams an MP3 preview through the decoder and returns its
// RMS level as an energy estimate in [0,1].
func analyzePreview(ctx context.Context, url string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("preview request: %w", err)
	}
	// #nosec G107 -- URL is a preview URL taken from a music service response
	resp, err := previewClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("preview fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("preview fetch: unexpected status %d", resp.StatusCode)
	}

	pcm, err := mp3.NewDecoder(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("preview decode: %w", err)
	}

	var meter rmsMeter
	if _, err := io.Copy(&meter, pcm); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("preview decode: %w", err)
	}
	return meter.Energy()
}

// rmsMeter accumulates signed 16-bit little-endian PCM written to it.
// A sample split across two writes is carried over.
type rmsMeter struct {
	sum     float64
	samples int
	carry   []byte
}

func (m *rmsMeter) Write(p []byte) (int, error) {
	n := len(p)
	if len(m.carry) == 1 && len(p) > 0 {
		m.add(m.carry[0], p[0])
		m.carry = m.carry[:0]
		p = p[1:]
	}
	for len(p) >= 2 {
		m.add(p[0], p[1])
		p = p[2:]
	}
	if len(p) == 1 {
		m.carry = append(m.carry[:0], p[0])
	}
	return n, nil
}

func (m *rmsMeter) add(lo, hi byte) {
	v := float64(int16(uint16(lo) | uint16(hi)<<8))
	m.sum += v * v
	m.samples++
}

// Energy is the RMS normalized to full scale and clamped to [0,1].
func (m *rmsMeter) Energy() (float64, error) {
	if m.samples == 0 {
		return 0, errors.New("preview contains no samples")
	}
	level := math.Sqrt(m.sum/float64(m.samples)) / 32768.0
	return math.Min(math.Max(level, 0), 1), nil
}
