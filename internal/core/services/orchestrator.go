package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
	"github.com/ewilliams-labs/emotune/internal/core/ports"
)

// PreviewQueue accepts tracks for background preview analysis.
type PreviewQueue interface {
	Enqueue(track domain.Track)
}

// Orchestrator turns emotions into recommendations and playback commands.
// It owns PlaybackState; a newer recommendation simply overwrites an
// older one (last write wins).
type Orchestrator struct {
	music  ports.MusicService
	auth   *Auth
	tracks ports.TrackRepository
	queue  PreviewQueue
	errs   *ErrorSlot
	logger *zap.Logger

	mu       sync.Mutex
	state    domain.PlaybackState
	onChange func()
}

// NewOrchestrator constructs an Orchestrator. tracks and queue may be nil.
func NewOrchestrator(music ports.MusicService, auth *Auth, tracks ports.TrackRepository, queue PreviewQueue, errs *ErrorSlot, logger *zap.Logger) *Orchestrator {
	if errs == nil {
		errs = &ErrorSlot{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		music:  music,
		auth:   auth,
		tracks: tracks,
		queue:  queue,
		errs:   errs,
		logger: logger.Named("orchestrator"),
	}
}

// RequestAndPlay fetches tracks for emotion, replaces the track list and
// starts playback of the returned URIs.
func (o *Orchestrator) RequestAndPlay(ctx context.Context, emotion domain.Emotion) error {
	token := o.auth.Token()
	if token == "" {
		return domain.ErrNotAuthenticated
	}

	rec, err := o.music.Recommendations(ctx, token, emotion)
	if err != nil {
		o.logger.Warn("recommendations failed", zap.String("emotion", emotion.String()), zap.Error(err))
		err = fmt.Errorf("orchestrator: recommendations for %s: %w", emotion, err)
		if ports.IsUnauthorized(err) {
			o.auth.Invalidate(ctx, token)
			return err
		}
		return o.errs.Fail(msgRecommendFailed, err)
	}

	o.mu.Lock()
	if !o.sessionCurrent(token) {
		o.mu.Unlock()
		o.logger.Info("dropping recommendations for an ended session", zap.String("emotion", emotion.String()))
		return fmt.Errorf("orchestrator: recommendations for %s: %w", emotion, domain.ErrNotAuthenticated)
	}
	o.state.Replace(rec.Tracks)
	o.mu.Unlock()
	o.changed()

	o.logger.Info("recommendations received",
		zap.String("emotion", emotion.String()),
		zap.String("source", rec.Source),
		zap.Int("tracks", len(rec.Tracks)),
	)
	o.catalog(ctx, rec.Tracks)

	if len(rec.URIs) == 0 {
		return nil
	}
	return o.Play(ctx, rec.URIs)
}

// Play starts playback of uris on the selected device.
func (o *Orchestrator) Play(ctx context.Context, uris []string) error {
	token := o.auth.Token()
	if token == "" {
		return domain.ErrNotAuthenticated
	}

	err := o.music.Play(ctx, token, uris, o.auth.SelectedDevice())
	if err == nil {
		o.mu.Lock()
		if !o.sessionCurrent(token) {
			o.mu.Unlock()
			return fmt.Errorf("orchestrator: play: %w", domain.ErrNotAuthenticated)
		}
		o.state.IsPlaying = true
		o.mu.Unlock()
		o.errs.Clear()
		o.changed()
		return nil
	}

	o.logger.Warn("play failed", zap.Int("uris", len(uris)), zap.Error(err))
	err = fmt.Errorf("orchestrator: play: %w", err)
	var apiErr *ports.APIError
	switch {
	case ports.IsUnauthorized(err):
		o.auth.Invalidate(ctx, token)
		return err
	case errors.Is(err, domain.ErrNoActiveDevice):
		err = o.errs.Fail(msgNoDevice, err)
		// self-heal: surface a fresh device list, but leave the retry to the user
		if _, rerr := o.auth.RefreshDevices(ctx); rerr != nil {
			o.logger.Warn("device refresh after play failure failed", zap.Error(rerr))
		}
		return err
	case errors.Is(err, domain.ErrPremiumRequired):
		return o.errs.Fail(msgPremiumRequired, err)
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return o.errs.Fail(apiErr.Message, err)
	default:
		return o.errs.Fail(msgPlayFailed, err)
	}
}

// PlayAll plays the whole current track list. No-op when it is empty.
func (o *Orchestrator) PlayAll(ctx context.Context) error {
	o.mu.Lock()
	uris := o.state.URIs()
	o.mu.Unlock()
	if len(uris) == 0 {
		return nil
	}
	return o.Play(ctx, uris)
}

// Pause stops playback. Failures are logged and leave state untouched.
func (o *Orchestrator) Pause(ctx context.Context) error {
	token := o.auth.Token()
	if token == "" {
		return domain.ErrNotAuthenticated
	}

	if err := o.music.Pause(ctx, token); err != nil {
		o.logger.Warn("pause failed", zap.Error(err))
		err = fmt.Errorf("orchestrator: pause: %w", err)
		if ports.IsUnauthorized(err) {
			o.auth.Invalidate(ctx, token)
			return err
		}
		return &UserError{Msg: msgPauseFailed, Err: err}
	}

	o.mu.Lock()
	o.state.IsPlaying = false
	o.mu.Unlock()
	o.changed()
	return nil
}

// Skip advances to the next track, wrapping around, and plays it alone.
func (o *Orchestrator) Skip(ctx context.Context) error {
	o.mu.Lock()
	track, ok := o.state.Advance()
	o.mu.Unlock()
	if !ok {
		return nil
	}
	o.changed()
	return o.Play(ctx, []string{track.URI})
}

// SelectTrack jumps to index and plays that track.
func (o *Orchestrator) SelectTrack(ctx context.Context, index int) error {
	o.mu.Lock()
	track, err := o.state.Select(index)
	o.mu.Unlock()
	if err != nil {
		return fmt.Errorf("orchestrator: select track %d: %w", index, err)
	}
	o.changed()
	return o.Play(ctx, []string{track.URI})
}

// Reset drops the track list and playing flag.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.state.Clear()
	o.mu.Unlock()
	o.changed()
}

// State returns a copy of the playback state.
func (o *Orchestrator) State() domain.PlaybackState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Snapshot()
}

// sessionCurrent reports whether token is still the live session token.
// A logout or re-login during a call makes its result stale. Callers hold
// o.mu so the check and the state write are not split by Reset.
func (o *Orchestrator) sessionCurrent(token string) bool {
	return o.auth.Token() == token
}

func (o *Orchestrator) catalog(ctx context.Context, tracks []domain.Track) {
	if o.tracks != nil && len(tracks) > 0 {
		if err := o.tracks.SaveTracks(ctx, tracks); err != nil {
			o.logger.Warn("failed to cache tracks", zap.Error(err))
		}
	}
	if o.queue == nil {
		return
	}
	for _, t := range tracks {
		if t.PreviewURL != "" {
			o.queue.Enqueue(t)
		}
	}
}

func (o *Orchestrator) changed() {
	o.mu.Lock()
	fn := o.onChange
	o.mu.Unlock()
	if fn != nil {
		fn()
	}
}
