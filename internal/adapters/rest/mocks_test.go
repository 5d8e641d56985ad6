package rest

import (
	"context"
	"strings"
	"sync"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
	"github.com/ewilliams-labs/emotune/internal/core/ports"
)

// --- Mocks ---

// mockMusic satisfies ports.MusicService with canned answers.
type mockMusic struct {
	mu sync.Mutex

	token    string
	devices  []domain.Device
	rec      domain.Recommendation
	recErr   error
	playErr  error
	pauseErr error

	playCalls  int
	lastURIs   []string
	lastDevice string
}

var _ ports.MusicService = (*mockMusic)(nil)

func (m *mockMusic) AuthURL(state string) string {
	return "https://accounts.test/authorize?state=" + state
}

func (m *mockMusic) ExchangeCode(ctx context.Context, code string) (string, error) {
	if code == "bad" {
		return "", &ports.APIError{Status: 400, Message: "invalid_grant"}
	}
	return m.token, nil
}

func (m *mockMusic) Profile(ctx context.Context, token string) (domain.Profile, error) {
	return domain.Profile{ID: "user-1", DisplayName: "Test User"}, nil
}

func (m *mockMusic) Devices(ctx context.Context, token string) ([]domain.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.devices, nil
}

func (m *mockMusic) Recommendations(ctx context.Context, token string, emotion domain.Emotion) (domain.Recommendation, error) {
	if m.recErr != nil {
		return domain.Recommendation{}, m.recErr
	}
	rec := m.rec
	rec.Emotion = emotion
	return rec, nil
}

func (m *mockMusic) Play(ctx context.Context, token string, uris []string, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playCalls++
	m.lastURIs = append([]string(nil), uris...)
	m.lastDevice = deviceID
	return m.playErr
}

func (m *mockMusic) Pause(ctx context.Context, token string) error {
	return m.pauseErr
}

func (m *mockMusic) plays() (int, []string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playCalls, m.lastURIs, m.lastDevice
}

func stateParam(location string) string {
	return location[strings.Index(location, "state=")+len("state="):]
}
