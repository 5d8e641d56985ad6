package services

import (
	"context"
	"sync"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
	"github.com/ewilliams-labs/emotune/internal/core/ports"
)

// --- Mocks ---

// mockMusic records every call and returns canned results.
type mockMusic struct {
	mu sync.Mutex

	exchangeToken string
	exchangeErr   error
	profile       domain.Profile
	profileErr    error
	devices       []domain.Device
	devicesErr    error
	rec           domain.Recommendation
	recErr        error
	playErr       error
	pauseErr      error

	exchangeCalls int
	profileCalls  int
	deviceCalls   int
	recCalls      int
	playCalls     int
	pauseCalls    int
	lastRecLabel  domain.Emotion
	lastPlayURIs  []string
	lastDevice    string
	lastToken     string

	// when set, Recommendations and Play signal entered and then block
	// until release is closed
	entered chan struct{}
	release chan struct{}
}

func (m *mockMusic) hold() {
	m.mu.Lock()
	entered, release := m.entered, m.release
	m.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
}

var _ ports.MusicService = (*mockMusic)(nil)

func (m *mockMusic) AuthURL(state string) string {
	return "https://accounts.test/authorize?state=" + state
}

func (m *mockMusic) ExchangeCode(ctx context.Context, code string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchangeCalls++
	if m.exchangeErr != nil {
		return "", m.exchangeErr
	}
	return m.exchangeToken, nil
}

func (m *mockMusic) Profile(ctx context.Context, token string) (domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profileCalls++
	m.lastToken = token
	if m.profileErr != nil {
		return domain.Profile{}, m.profileErr
	}
	return m.profile, nil
}

func (m *mockMusic) Devices(ctx context.Context, token string) ([]domain.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deviceCalls++
	if m.devicesErr != nil {
		return nil, m.devicesErr
	}
	return m.devices, nil
}

func (m *mockMusic) Recommendations(ctx context.Context, token string, emotion domain.Emotion) (domain.Recommendation, error) {
	m.mu.Lock()
	m.recCalls++
	m.lastRecLabel = emotion
	rec, err := m.rec, m.recErr
	m.mu.Unlock()

	m.hold()
	if err != nil {
		return domain.Recommendation{}, err
	}
	return rec, nil
}

func (m *mockMusic) Play(ctx context.Context, token string, uris []string, deviceID string) error {
	m.mu.Lock()
	m.playCalls++
	m.lastPlayURIs = append([]string(nil), uris...)
	m.lastDevice = deviceID
	err := m.playErr
	m.mu.Unlock()

	m.hold()
	return err
}

func (m *mockMusic) Pause(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseCalls++
	return m.pauseErr
}

func (m *mockMusic) networkCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exchangeCalls + m.profileCalls + m.deviceCalls + m.recCalls + m.playCalls + m.pauseCalls
}

// memoryStore is an in-memory TokenStore.
type memoryStore struct {
	token      string
	saveCalls  int
	clearCalls int
}

func (s *memoryStore) LoadToken(ctx context.Context) (string, error) {
	if s.token == "" {
		return "", domain.ErrNotFound
	}
	return s.token, nil
}

func (s *memoryStore) SaveToken(ctx context.Context, token string) error {
	s.saveCalls++
	s.token = token
	return nil
}

func (s *memoryStore) ClearToken(ctx context.Context) error {
	s.clearCalls++
	s.token = ""
	return nil
}

// recordingQueue captures enqueued preview jobs.
type recordingQueue struct {
	tracks []domain.Track
}

func (q *recordingQueue) Enqueue(track domain.Track) {
	q.tracks = append(q.tracks, track)
}

func unauthorized() error {
	return &ports.APIError{Status: 401, Message: "The access token expired"}
}

func sampleTracks() []domain.Track {
	return []domain.Track{
		{ID: "t0", Name: "Zero", Artist: "A", URI: "spotify:track:t0", PreviewURL: "http://preview/t0.mp3"},
		{ID: "t1", Name: "One", Artist: "B", URI: "spotify:track:t1"},
		{ID: "t2", Name: "Two", Artist: "C", URI: "spotify:track:t2"},
	}
}

// loggedIn returns an Auth already holding token.
func loggedIn(music *mockMusic, store *memoryStore, token string) *Auth {
	a := NewAuth(music, store, "client-id", &ErrorSlot{}, nil)
	a.session = domain.SessionState{
		AccessToken:    token,
		Devices:        []domain.Device{{ID: "dev-1", Name: "Laptop"}},
		SelectedDevice: "dev-1",
	}
	a.status = domain.Authenticated
	return a
}
