package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
)

// Snapshot is the full user-visible state.
type Snapshot struct {
	SessionID        string            `json:"session_id"`
	AuthStatus       domain.AuthStatus `json:"auth_status"`
	Profile          *domain.Profile   `json:"profile,omitempty"`
	Devices          []domain.Device   `json:"devices"`
	SelectedDevice   string            `json:"selected_device,omitempty"`
	Emotion          EmotionState      `json:"emotion"`
	Tracks           []domain.Track    `json:"tracks"`
	CurrentIndex     int               `json:"current_index"`
	IsPlaying        bool              `json:"is_playing"`
	AutoPlay         bool              `json:"auto_play"`
	Detecting        bool              `json:"detecting"`
	CameraPermission CameraPermission  `json:"camera_permission"`
	Error            string            `json:"error,omitempty"`
}

// Engine is the single control point: samples and manual overrides go
// through the tracker under one lock, and accepted transitions are handed
// to the orchestrator.
type Engine struct {
	auth     *Auth
	orch     *Orchestrator
	sampler  *Sampler
	errs     *ErrorSlot
	logger   *zap.Logger
	id       string
	dispatch func(func())

	baseCtx context.Context
	stop    context.CancelFunc

	mu        sync.Mutex
	tracker   *Tracker
	autoPlay  bool
	listeners map[int]func(Snapshot)
	nextID    int
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithDispatcher overrides how playback work is scheduled. The default
// runs each job on its own goroutine.
func WithDispatcher(dispatch func(func())) EngineOption {
	return func(e *Engine) { e.dispatch = dispatch }
}

// WithAutoPlay sets the initial auto-play flag.
func WithAutoPlay(enabled bool) EngineOption {
	return func(e *Engine) { e.autoPlay = enabled }
}

// NewEngine wires the components together. sampler may be nil when no
// capture pipeline is configured; manual selection still works.
func NewEngine(auth *Auth, orch *Orchestrator, errs *ErrorSlot, logger *zap.Logger, opts ...EngineOption) *Engine {
	if errs == nil {
		errs = &ErrorSlot{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		auth:      auth,
		orch:      orch,
		errs:      errs,
		id:        uuid.NewString(),
		dispatch:  func(fn func()) { go fn() },
		baseCtx:   ctx,
		stop:      cancel,
		tracker:   NewTracker(),
		autoPlay:  true,
		listeners: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logger.With(zap.String("session", e.id))

	auth.mu.Lock()
	auth.onLogout = orch.Reset
	auth.onChange = e.publish
	auth.mu.Unlock()
	orch.mu.Lock()
	orch.onChange = e.publish
	orch.mu.Unlock()
	return e
}

// AttachSampler connects the automatic detection path.
func (e *Engine) AttachSampler(s *Sampler) {
	s.sink = func(sample domain.Sample) { e.ObserveSample(sample) }
	e.mu.Lock()
	e.sampler = s
	e.mu.Unlock()
}

// ObserveSample runs an automatic sample through the tracker.
func (e *Engine) ObserveSample(sample domain.Sample) Decision {
	e.mu.Lock()
	d := e.tracker.Observe(sample)
	trigger := d.Kind == Updated && d.Confident && e.autoPlay
	e.mu.Unlock()

	if d.Kind == Updated {
		e.logger.Info("emotion changed",
			zap.String("emotion", d.Label.String()),
			zap.Float64("confidence", d.Confidence),
		)
	}
	if trigger {
		e.requestPlayback(d.Label)
	}
	e.publish()
	return d
}

// SelectEmotion is the manual override. Every selection re-triggers
// playback when auto-play is on, even if the emotion did not change.
func (e *Engine) SelectEmotion(label domain.Emotion) Decision {
	e.mu.Lock()
	d := e.tracker.Override(label)
	trigger := e.autoPlay
	e.mu.Unlock()

	e.logger.Info("emotion selected manually", zap.String("emotion", d.Label.String()))
	if trigger {
		e.requestPlayback(d.Label)
	}
	e.publish()
	return d
}

func (e *Engine) requestPlayback(label domain.Emotion) {
	if !e.auth.Authenticated() {
		return
	}
	ctx := e.baseCtx
	e.dispatch(func() {
		if err := e.orch.RequestAndPlay(ctx, label); err != nil && !errors.Is(err, context.Canceled) {
			e.logger.Warn("playback request failed", zap.String("emotion", label.String()), zap.Error(err))
		}
	})
}

// StartDetection begins automatic sampling. It needs a logged-in session
// and camera permission.
func (e *Engine) StartDetection(ctx context.Context) error {
	if !e.auth.Authenticated() {
		return e.errs.Fail(msgLoginFirst, domain.ErrNotAuthenticated)
	}
	e.mu.Lock()
	s := e.sampler
	e.mu.Unlock()
	if s == nil {
		return &UserError{Msg: msgNoDetector, Err: fmt.Errorf("engine: detection not configured: %w", domain.ErrPermissionDenied)}
	}

	if err := s.Start(ctx); err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) {
			err = e.errs.Fail(msgCameraDenied, err)
		}
		e.publish()
		return err
	}
	e.errs.Clear()
	e.publish()
	return nil
}

// StopDetection halts sampling. It must not be called with e.mu held.
func (e *Engine) StopDetection() {
	e.mu.Lock()
	s := e.sampler
	e.mu.Unlock()
	if s != nil {
		s.Stop()
	}
	e.publish()
}

// SetAutoPlay toggles automatic playback on transitions.
func (e *Engine) SetAutoPlay(enabled bool) {
	e.mu.Lock()
	e.autoPlay = enabled
	e.mu.Unlock()
	e.publish()
}

// Auth exposes the session manager.
func (e *Engine) Auth() *Auth { return e.auth }

// Orchestrator exposes the playback orchestrator.
func (e *Engine) Orchestrator() *Orchestrator { return e.orch }

// Snapshot assembles the current state. Locks are taken one at a time.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	emotion := e.tracker.State()
	autoPlay := e.autoPlay
	s := e.sampler
	e.mu.Unlock()

	session := e.auth.Session()
	playback := e.orch.State()

	snap := Snapshot{
		SessionID:        e.id,
		AuthStatus:       e.auth.Status(),
		Profile:          session.Profile,
		Devices:          session.Devices,
		SelectedDevice:   session.SelectedDevice,
		Emotion:          emotion,
		Tracks:           playback.Tracks,
		CurrentIndex:     playback.CurrentIndex,
		IsPlaying:        playback.IsPlaying,
		AutoPlay:         autoPlay,
		CameraPermission: PermissionUnknown,
		Error:            e.errs.Get(),
	}
	if s != nil {
		snap.Detecting = s.Detecting()
		snap.CameraPermission = s.Permission()
	}
	return snap
}

// Subscribe registers fn to receive a snapshot after each state change.
// The returned func unregisters it.
func (e *Engine) Subscribe(fn func(Snapshot)) func() {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

func (e *Engine) publish() {
	e.mu.Lock()
	if len(e.listeners) == 0 {
		e.mu.Unlock()
		return
	}
	fns := make([]func(Snapshot), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	snap := e.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}

// Close stops detection and cancels in-flight playback work.
func (e *Engine) Close() {
	e.StopDetection()
	e.stop()
}
