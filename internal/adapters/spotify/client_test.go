package spotify_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ewilliams-labs/emotune/internal/adapters/spotify"
	"github.com/ewilliams-labs/emotune/internal/core/domain"
	"github.com/ewilliams-labs/emotune/internal/core/ports"
)

// --- Helpers ---

// fakeAPI routes requests by "METHOD /path" and records what it saw.
type fakeAPI struct {
	mu       sync.Mutex
	routes   map[string]func(w http.ResponseWriter, r *http.Request)
	requests []*http.Request
	bodies   []string
}

func newFakeAPI(t *testing.T) (*fakeAPI, *spotify.Client) {
	t.Helper()
	f := &fakeAPI{routes: map[string]func(http.ResponseWriter, *http.Request){}}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, r)
		f.bodies = append(f.bodies, string(b))
		h, ok := f.routes[r.Method+" "+r.URL.Path]
		f.mu.Unlock()
		if !ok {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotImplemented)
			return
		}
		h(w, r)
	}))
	t.Cleanup(ts.Close)

	client := spotify.NewClient(spotify.Config{
		ClientID:     "test-id",
		ClientSecret: "test-secret",
		RedirectURL:  "http://127.0.0.1:3000/callback",
		APIURL:       ts.URL + "/v1",
		AccountsURL:  ts.URL,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
		HTTPClient:   ts.Client(),
	})
	return f, client
}

func (f *fakeAPI) handle(route string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[route] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func (f *fakeAPI) find(path string) *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.URL.Path == path {
			return r
		}
	}
	return nil
}

func (f *fakeAPI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.URL.Path == path {
			n++
		}
	}
	return n
}

const recommendedTracks = `{
	"tracks": [
		{
			"id": "r1",
			"name": "Sunny",
			"uri": "spotify:track:r1",
			"preview_url": "https://p.scdn.co/mp3-preview/r1",
			"artists": [ { "id": "a1", "name": "Bobby" }, { "id": "a9", "name": "Guest" } ],
			"album": { "name": "Hits", "images": [ { "url": "https://i.scdn.co/r1.jpg" } ] }
		},
		{
			"id": "r2",
			"name": "",
			"uri": "spotify:track:r2",
			"preview_url": null,
			"artists": [],
			"album": { "name": "Other", "images": [] }
		},
		{ "id": "", "name": "ghost", "uri": "spotify:track:ghost" }
	]
}`

// --- Tests ---

func TestAuthURL(t *testing.T) {
	_, client := newFakeAPI(t)

	raw := client.AuthURL("state-123")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.HasSuffix(u.Path, "/authorize") {
		t.Fatalf("path: got %s", u.Path)
	}
	q := u.Query()
	checks := map[string]string{
		"client_id":     "test-id",
		"response_type": "code",
		"state":         "state-123",
		"redirect_uri":  "http://127.0.0.1:3000/callback",
		"show_dialog":   "true",
	}
	for k, want := range checks {
		if got := q.Get(k); got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
	if !strings.Contains(q.Get("scope"), "user-modify-playback-state") {
		t.Errorf("scope missing playback control: %q", q.Get("scope"))
	}
}

func TestExchangeCode(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		response  string
		wantToken string
		wantErr   bool
	}{
		{
			name:      "successful exchange",
			status:    http.StatusOK,
			response:  `{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`,
			wantToken: "tok-1",
		},
		{
			name:     "rejected code",
			status:   http.StatusBadRequest,
			response: `{"error":"invalid_grant","error_description":"Invalid authorization code"}`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, client := newFakeAPI(t)
			api.handle("POST /api/token", tt.status, tt.response)

			token, err := client.ExchangeCode(context.Background(), "the-code")
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error: %v, got: %v", tt.wantErr, err)
			}
			if token != tt.wantToken {
				t.Fatalf("token: got %q, want %q", token, tt.wantToken)
			}

			req := api.find("/api/token")
			if req == nil {
				t.Fatalf("token endpoint not called")
			}
			if user, pass, ok := req.BasicAuth(); !ok || user != "test-id" || pass != "test-secret" {
				t.Errorf("client credentials not sent in header")
			}
			if tt.wantErr {
				var apiErr *ports.APIError
				if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
					t.Fatalf("expected APIError 400, got %v", err)
				}
			}
		})
	}
}

func TestProfile(t *testing.T) {
	t.Run("maps the account", func(t *testing.T) {
		api, client := newFakeAPI(t)
		api.handle("GET /v1/me", http.StatusOK, `{"id":"u1","display_name":"Dana","email":"d@example.com","country":"NZ","product":"premium"}`)

		p, err := client.Profile(context.Background(), "tok")
		if err != nil {
			t.Fatalf("profile: %v", err)
		}
		want := domain.Profile{ID: "u1", DisplayName: "Dana", Email: "d@example.com", Country: "NZ", Product: "premium"}
		if p != want {
			t.Fatalf("got %+v, want %+v", p, want)
		}
		if got := api.find("/v1/me").Header.Get("Authorization"); got != "Bearer tok" {
			t.Fatalf("authorization header: got %q", got)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		api, client := newFakeAPI(t)
		api.handle("GET /v1/me", http.StatusUnauthorized, `{"error":{"status":401,"message":"The access token expired"}}`)

		_, err := client.Profile(context.Background(), "tok")
		if !ports.IsUnauthorized(err) {
			t.Fatalf("expected unauthorized, got %v", err)
		}
		var apiErr *ports.APIError
		if !errors.As(err, &apiErr) || apiErr.Message != "The access token expired" {
			t.Fatalf("expected remote message, got %v", err)
		}
	})
}

func TestDevices(t *testing.T) {
	api, client := newFakeAPI(t)
	api.handle("GET /v1/me/player/devices", http.StatusOK, `{"devices":[
		{"id":"d1","name":"Laptop","type":"Computer","is_active":true},
		{"id":null,"name":"Restricted","type":"Speaker","is_active":false},
		{"id":"d2","name":"Phone","type":"Smartphone","is_active":false}
	]}`)

	devices, err := client.Devices(context.Background(), "tok")
	if err != nil {
		t.Fatalf("devices: %v", err)
	}
	if len(devices) != 2 || devices[0].ID != "d1" || !devices[0].IsActive || devices[1].Name != "Phone" {
		t.Fatalf("unexpected devices %+v", devices)
	}
}

func TestRecommendations(t *testing.T) {
	t.Run("seeded from listening history", func(t *testing.T) {
		api, client := newFakeAPI(t)
		api.handle("GET /v1/me/top/tracks", http.StatusOK, `{"items":[
			{"id":"t1","artists":[{"id":"a1"}]},
			{"id":"t2","artists":[{"id":"a2"}]},
			{"id":"t3","artists":[{"id":"a3"}]}
		]}`)
		api.handle("GET /v1/recommendations", http.StatusOK, recommendedTracks)

		rec, err := client.Recommendations(context.Background(), "tok", domain.Happy)
		if err != nil {
			t.Fatalf("recommendations: %v", err)
		}
		if api.count("/v1/me/top/artists") != 0 {
			t.Fatalf("top artists should not be needed with two seed artists")
		}

		q := api.find("/v1/recommendations").URL.Query()
		expect := map[string]string{
			"seed_tracks":         "t1,t2",
			"seed_artists":        "a1,a2",
			"seed_genres":         "",
			"min_valence":         "0.6",
			"min_energy":          "0.6",
			"target_danceability": "0.7",
			"limit":               "20",
			"market":              "US",
		}
		for k, want := range expect {
			if got := q.Get(k); got != want {
				t.Errorf("query %s: got %q, want %q", k, got, want)
			}
		}

		if rec.Source != spotify.SourceRecommendations || rec.PlaylistName != "Happy Mood - Personalized" {
			t.Fatalf("unexpected metadata %+v", rec)
		}
		if len(rec.Tracks) != 2 {
			t.Fatalf("tracks without an id must be dropped, got %d", len(rec.Tracks))
		}
		first := rec.Tracks[0]
		want := domain.Track{
			ID:         "r1",
			Name:       "Sunny",
			Artist:     "Bobby",
			ArtworkURL: "https://i.scdn.co/r1.jpg",
			URI:        "spotify:track:r1",
			PreviewURL: "https://p.scdn.co/mp3-preview/r1",
		}
		if first != want {
			t.Fatalf("track: got %+v, want %+v", first, want)
		}
		if rec.Tracks[1].Artist != "Unknown" || rec.Tracks[1].Name != "Unknown" {
			t.Fatalf("missing fields should read Unknown, got %+v", rec.Tracks[1])
		}
		if len(rec.URIs) != 2 || rec.URIs[1] != "spotify:track:r2" {
			t.Fatalf("uris: %v", rec.URIs)
		}
	})

	t.Run("genre seeds without history", func(t *testing.T) {
		api, client := newFakeAPI(t)
		api.handle("GET /v1/me/top/tracks", http.StatusOK, `{"items":[]}`)
		api.handle("GET /v1/me/top/artists", http.StatusOK, `{"items":[]}`)
		api.handle("GET /v1/recommendations", http.StatusOK, recommendedTracks)

		if _, err := client.Recommendations(context.Background(), "tok", domain.Sad); err != nil {
			t.Fatalf("recommendations: %v", err)
		}
		q := api.find("/v1/recommendations").URL.Query()
		if got := q.Get("seed_genres"); got != "sad,acoustic" {
			t.Fatalf("seed_genres: got %q", got)
		}
		if q.Get("max_valence") != "0.4" || q.Get("target_acousticness") != "0.7" {
			t.Fatalf("sad tuning not applied: %v", q)
		}
	})

	t.Run("top artists fill missing seeds", func(t *testing.T) {
		api, client := newFakeAPI(t)
		api.handle("GET /v1/me/top/tracks", http.StatusOK, `{"items":[{"id":"t1","artists":[{"id":"a1"}]}]}`)
		api.handle("GET /v1/me/top/artists", http.StatusOK, `{"items":[{"id":"a1"},{"id":"a5"},{"id":"a6"}]}`)
		api.handle("GET /v1/recommendations", http.StatusOK, recommendedTracks)

		if _, err := client.Recommendations(context.Background(), "tok", domain.Angry); err != nil {
			t.Fatalf("recommendations: %v", err)
		}
		if got := api.find("/v1/recommendations").URL.Query().Get("seed_artists"); got != "a1,a5" {
			t.Fatalf("seed_artists: got %q", got)
		}
	})

	t.Run("falls back to playlist search", func(t *testing.T) {
		api, client := newFakeAPI(t)
		api.handle("GET /v1/me/top/tracks", http.StatusOK, `{"items":[]}`)
		api.handle("GET /v1/me/top/artists", http.StatusOK, `{"items":[]}`)
		api.handle("GET /v1/recommendations", http.StatusNotFound, `{"error":{"status":404,"message":"Not found"}}`)
		api.handle("GET /v1/search", http.StatusOK, `{"playlists":{"items":[null,{"id":"","name":"nameless"},{"id":"pl1","name":"Calm Vibes"}]}}`)
		api.handle("GET /v1/playlists/pl1/tracks", http.StatusOK, `{"items":[
			{"track":null},
			{"track":{"id":"p1","name":"Drift","uri":"spotify:track:p1","artists":[{"name":"Ola"}]}},
			{"track":{"id":"p2","name":"No Uri","uri":""}},
			{"track":{"id":"p3","name":"Float","uri":"spotify:track:p3"}}
		]}`)

		rec, err := client.Recommendations(context.Background(), "tok", domain.Relaxed)
		if err != nil {
			t.Fatalf("recommendations: %v", err)
		}
		if rec.Source != spotify.SourcePlaylistSearch || rec.PlaylistName != "Calm Vibes" {
			t.Fatalf("unexpected metadata %+v", rec)
		}
		if len(rec.Tracks) != 2 || rec.Tracks[0].Artist != "Ola" || rec.Tracks[1].Artist != "Unknown" {
			t.Fatalf("unexpected tracks %+v", rec.Tracks)
		}
		q := api.find("/v1/search").URL.Query()
		if q.Get("q") != "relaxed mood" || q.Get("type") != "playlist" {
			t.Fatalf("search query: %v", q)
		}
	})

	t.Run("unauthorized skips fallback", func(t *testing.T) {
		api, client := newFakeAPI(t)
		api.handle("GET /v1/me/top/tracks", http.StatusUnauthorized, `{"error":{"status":401,"message":"Invalid access token"}}`)

		_, err := client.Recommendations(context.Background(), "tok", domain.Happy)
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if api.count("/v1/search") != 0 || api.count("/v1/recommendations") != 0 {
			t.Fatalf("no further calls expected after 401")
		}
	})

	t.Run("nothing found", func(t *testing.T) {
		api, client := newFakeAPI(t)
		api.handle("GET /v1/me/top/tracks", http.StatusOK, `{"items":[]}`)
		api.handle("GET /v1/me/top/artists", http.StatusOK, `{"items":[]}`)
		api.handle("GET /v1/recommendations", http.StatusOK, `{"tracks":[]}`)
		api.handle("GET /v1/search", http.StatusOK, `{"playlists":{"items":[]}}`)

		_, err := client.Recommendations(context.Background(), "tok", domain.Fearful)
		if !errors.Is(err, domain.ErrNoRecommendations) {
			t.Fatalf("expected ErrNoRecommendations, got %v", err)
		}
	})
}

func TestPlay(t *testing.T) {
	const twoDevices = `{"devices":[{"id":"d1","name":"Laptop"},{"id":"d2","name":"Phone"}]}`

	tests := []struct {
		name       string
		devices    string
		deviceID   string
		playStatus int
		playBody   string
		wantErr    error
		wantDevice string
		wantMsg    string
	}{
		{name: "defaults to first device", devices: twoDevices, playStatus: http.StatusNoContent, wantDevice: "d1"},
		{name: "uses selected device", devices: twoDevices, deviceID: "d2", playStatus: http.StatusAccepted, wantDevice: "d2"},
		{name: "no devices", devices: `{"devices":[]}`, wantErr: domain.ErrNoActiveDevice},
		{name: "device vanished", devices: twoDevices, playStatus: http.StatusNotFound, playBody: `{"error":{"status":404,"message":"Device not found"}}`, wantErr: domain.ErrNoActiveDevice, wantDevice: "d1"},
		{name: "premium required", devices: twoDevices, playStatus: http.StatusForbidden, playBody: `{"error":{"status":403,"message":"Player command failed: Premium required"}}`, wantErr: domain.ErrPremiumRequired, wantDevice: "d1"},
		{name: "expired token", devices: twoDevices, playStatus: http.StatusUnauthorized, wantErr: domain.ErrUnauthorized, wantDevice: "d1"},
		{name: "other failure carries remote message", devices: twoDevices, playStatus: http.StatusBadRequest, playBody: `{"error":{"status":400,"message":"Bad uri"}}`, wantDevice: "d1", wantMsg: "Bad uri"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, client := newFakeAPI(t)
			api.handle("GET /v1/me/player/devices", http.StatusOK, tt.devices)
			api.handle("PUT /v1/me/player/play", tt.playStatus, tt.playBody)

			uris := []string{"spotify:track:a", "spotify:track:b"}
			err := client.Play(context.Background(), "tok", uris, tt.deviceID)

			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			case tt.wantMsg != "":
				var apiErr *ports.APIError
				if !errors.As(err, &apiErr) || apiErr.Message != tt.wantMsg {
					t.Fatalf("expected APIError %q, got %v", tt.wantMsg, err)
				}
			default:
				if err != nil {
					t.Fatalf("play: %v", err)
				}
			}

			req := api.find("/v1/me/player/play")
			if tt.wantDevice == "" {
				if req != nil {
					t.Fatalf("play must not be issued without devices")
				}
				return
			}
			if req == nil {
				t.Fatalf("play not issued")
			}
			if got := req.URL.Query().Get("device_id"); got != tt.wantDevice {
				t.Fatalf("device_id: got %q, want %q", got, tt.wantDevice)
			}
			if n := api.count("/v1/me/player/play"); n != 1 {
				t.Fatalf("play attempts: got %d, want 1", n)
			}

			api.mu.Lock()
			var body struct {
				URIs       []string `json:"uris"`
				PositionMs *int     `json:"position_ms"`
			}
			for i, r := range api.requests {
				if r.URL.Path == "/v1/me/player/play" {
					_ = json.Unmarshal([]byte(api.bodies[i]), &body)
				}
			}
			api.mu.Unlock()
			if len(body.URIs) != 2 || body.PositionMs == nil || *body.PositionMs != 0 {
				t.Fatalf("unexpected play body %+v", body)
			}
		})
	}
}

func TestPause(t *testing.T) {
	api, client := newFakeAPI(t)
	api.handle("PUT /v1/me/player/pause", http.StatusNoContent, "")
	if err := client.Pause(context.Background(), "tok"); err != nil {
		t.Fatalf("pause: %v", err)
	}

	api.handle("PUT /v1/me/player/pause", http.StatusUnauthorized, "")
	if err := client.Pause(context.Background(), "tok"); !ports.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
