package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
)

func syncDispatch(fn func()) { fn() }

func newTestEngine(music *mockMusic, authed bool, opts ...EngineOption) (*Engine, *Auth) {
	store := &memoryStore{}
	var auth *Auth
	if authed {
		store.token = "tok"
		auth = loggedIn(music, store, "tok")
	} else {
		auth = NewAuth(music, store, "client-id", &ErrorSlot{}, nil)
	}
	orch := NewOrchestrator(music, auth, nil, nil, auth.errs, nil)
	opts = append([]EngineOption{WithDispatcher(syncDispatch)}, opts...)
	return NewEngine(auth, orch, auth.errs, nil, opts...), auth
}

func playableRec() domain.Recommendation {
	return domain.Recommendation{
		Tracks: sampleTracks(),
		URIs:   []string{"spotify:track:t0", "spotify:track:t1", "spotify:track:t2"},
		Source: "recommendations",
	}
}

func TestEngine_ObserveSample(t *testing.T) {
	tests := []struct {
		name        string
		authed      bool
		autoPlay    bool
		sample      domain.Sample
		wantRecs    int
		wantCurrent domain.Emotion
	}{
		{name: "transition below playback threshold", authed: true, autoPlay: true, sample: sample(domain.Happy, 0.6), wantRecs: 0, wantCurrent: domain.Happy},
		{name: "confident transition triggers one request", authed: true, autoPlay: true, sample: sample(domain.Happy, 0.8), wantRecs: 1, wantCurrent: domain.Happy},
		{name: "auto-play off", authed: true, autoPlay: false, sample: sample(domain.Happy, 0.8), wantRecs: 0, wantCurrent: domain.Happy},
		{name: "not authenticated", authed: false, autoPlay: true, sample: sample(domain.Happy, 0.8), wantRecs: 0, wantCurrent: domain.Happy},
		{name: "noise", authed: true, autoPlay: true, sample: sample(domain.Happy, 0.3), wantRecs: 0, wantCurrent: domain.Neutral},
		{name: "same as current", authed: true, autoPlay: true, sample: sample(domain.Neutral, 0.99), wantRecs: 0, wantCurrent: domain.Neutral},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			music := &mockMusic{rec: playableRec()}
			e, _ := newTestEngine(music, tc.authed, WithAutoPlay(tc.autoPlay))
			defer e.Close()

			e.ObserveSample(tc.sample)

			if music.recCalls != tc.wantRecs {
				t.Fatalf("recommendation calls: got %d, want %d", music.recCalls, tc.wantRecs)
			}
			if got := e.Snapshot().Emotion.Current; got != tc.wantCurrent {
				t.Fatalf("current: got %s, want %s", got, tc.wantCurrent)
			}
			if tc.wantRecs > 0 {
				if music.lastRecLabel != tc.sample.Label {
					t.Fatalf("requested %s", music.lastRecLabel)
				}
				snap := e.Snapshot()
				if len(snap.Tracks) != 3 || !snap.IsPlaying {
					t.Fatalf("playback not started: %+v", snap)
				}
			}
		})
	}
}

func TestEngine_RepeatedManualSelectionRetriggers(t *testing.T) {
	music := &mockMusic{rec: playableRec()}
	e, _ := newTestEngine(music, true)
	defer e.Close()

	e.SelectEmotion(domain.Relaxed)
	e.SelectEmotion(domain.Relaxed)

	if music.recCalls != 2 {
		t.Fatalf("recommendation calls: got %d, want 2", music.recCalls)
	}
	st := e.Snapshot().Emotion
	if len(st.History) != 2 {
		t.Fatalf("history: got %v", st.History)
	}
	if st.Previous != domain.Neutral || st.Confidence != ManualConfidence {
		t.Fatalf("unexpected emotion state %+v", st)
	}
}

func TestEngine_ManualSelectionRespectsAutoPlay(t *testing.T) {
	music := &mockMusic{rec: playableRec()}
	e, _ := newTestEngine(music, true, WithAutoPlay(false))
	defer e.Close()

	e.SelectEmotion(domain.Sad)
	if music.recCalls != 0 {
		t.Fatalf("auto-play off must not request")
	}
	if e.Snapshot().Emotion.Current != domain.Sad {
		t.Fatalf("selection should still update the emotion")
	}

	e.SetAutoPlay(true)
	e.SelectEmotion(domain.Sad)
	if music.recCalls != 1 {
		t.Fatalf("recommendation calls: got %d, want 1", music.recCalls)
	}
}

func TestEngine_LogoutClearsPlayback(t *testing.T) {
	music := &mockMusic{rec: playableRec()}
	e, auth := newTestEngine(music, true)
	defer e.Close()

	e.SelectEmotion(domain.Happy)
	if len(e.Snapshot().Tracks) == 0 {
		t.Fatalf("expected tracks before logout")
	}

	auth.Logout(context.Background())
	snap := e.Snapshot()
	if snap.AuthStatus != domain.LoggedOut || len(snap.Tracks) != 0 || snap.IsPlaying {
		t.Fatalf("logout left state behind: %+v", snap)
	}
	if len(snap.Devices) != 0 || snap.Profile != nil {
		t.Fatalf("session data not cleared: %+v", snap)
	}
}

func TestEngine_StartDetection(t *testing.T) {
	t.Run("requires login", func(t *testing.T) {
		e, auth := newTestEngine(&mockMusic{}, false)
		defer e.Close()
		if err := e.StartDetection(context.Background()); !errors.Is(err, domain.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
		if auth.errs.Get() != msgLoginFirst {
			t.Fatalf("error slot: got %q", auth.errs.Get())
		}
	})

	t.Run("camera denied", func(t *testing.T) {
		e, auth := newTestEngine(&mockMusic{}, true)
		defer e.Close()
		e.AttachSampler(NewSampler(&fakeFrames{openErr: domain.ErrPermissionDenied}, &fakeDetector{}, time.Hour, nil, nil))

		if err := e.StartDetection(context.Background()); !errors.Is(err, domain.ErrPermissionDenied) {
			t.Fatalf("expected ErrPermissionDenied, got %v", err)
		}
		if auth.errs.Get() != msgCameraDenied {
			t.Fatalf("error slot: got %q", auth.errs.Get())
		}
		snap := e.Snapshot()
		if snap.Detecting || snap.CameraPermission != PermissionDenied {
			t.Fatalf("unexpected snapshot %+v", snap)
		}
	})

	t.Run("samples flow into the tracker", func(t *testing.T) {
		music := &mockMusic{rec: playableRec()}
		e, _ := newTestEngine(music, true)
		defer e.Close()
		e.AttachSampler(NewSampler(&fakeFrames{}, &fakeDetector{expressions: domain.Expressions{"surprised": 0.9}}, 5*time.Millisecond, nil, nil))

		if err := e.StartDetection(context.Background()); err != nil {
			t.Fatalf("start detection: %v", err)
		}
		deadline := time.Now().Add(2 * time.Second)
		for e.Snapshot().Emotion.Current != domain.Surprised {
			if time.Now().After(deadline) {
				t.Fatalf("sample never reached the tracker")
			}
			time.Sleep(2 * time.Millisecond)
		}
		e.StopDetection()
		if e.Snapshot().Detecting {
			t.Fatalf("still detecting")
		}
		music.mu.Lock()
		recs := music.recCalls
		music.mu.Unlock()
		if recs != 1 {
			t.Fatalf("recommendation calls: got %d, want 1", recs)
		}
	})
}

func TestEngine_Subscribe(t *testing.T) {
	e, _ := newTestEngine(&mockMusic{}, true)
	defer e.Close()

	var got []Snapshot
	unsubscribe := e.Subscribe(func(s Snapshot) { got = append(got, s) })

	e.SetAutoPlay(false)
	if len(got) != 1 || got[0].AutoPlay {
		t.Fatalf("expected one snapshot with auto-play off, got %+v", got)
	}
	if got[0].SessionID == "" {
		t.Fatalf("snapshot should carry a session id")
	}

	unsubscribe()
	e.SetAutoPlay(true)
	if len(got) != 1 {
		t.Fatalf("unsubscribed listener still notified")
	}
}
