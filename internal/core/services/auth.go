package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
	"github.com/ewilliams-labs/emotune/internal/core/ports"
)

// Auth owns the access token lifecycle and everything derived from it.
type Auth struct {
	music    ports.MusicService
	store    ports.TokenStore
	clientID string
	errs     *ErrorSlot
	logger   *zap.Logger

	mu           sync.Mutex
	status       domain.AuthStatus
	session      domain.SessionState
	pendingState string

	onLogout func()
	onChange func()
}

// NewAuth constructs an Auth in the LoggedOut state.
func NewAuth(music ports.MusicService, store ports.TokenStore, clientID string, errs *ErrorSlot, logger *zap.Logger) *Auth {
	if errs == nil {
		errs = &ErrorSlot{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auth{
		music:    music,
		store:    store,
		clientID: clientID,
		errs:     errs,
		logger:   logger.Named("auth"),
		status:   domain.LoggedOut,
	}
}

// BeginLogin returns the authorize URL the user must visit.
func (a *Auth) BeginLogin() (string, error) {
	if a.clientID == "" {
		return "", a.errs.Fail(msgClientIDMissing, domain.ErrMissingClientID)
	}

	state := uuid.NewString()
	a.mu.Lock()
	a.pendingState = state
	if a.status == domain.LoggedOut {
		a.status = domain.Authenticating
	}
	a.mu.Unlock()
	a.changed()

	return a.music.AuthURL(state), nil
}

// VerifyState checks the state echoed back by the authorize redirect.
// A process that never began a login accepts any state.
func (a *Auth) VerifyState(state string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pendingState == "" || a.pendingState == state
}

// CompleteLogin exchanges an authorization code for a token.
func (a *Auth) CompleteLogin(ctx context.Context, code string) error {
	if code == "" {
		return a.failLogin(errors.New("auth: authorization code is required"))
	}

	token, err := a.music.ExchangeCode(ctx, code)
	if err != nil {
		a.logger.Warn("code exchange failed", zap.Error(err))
		return a.failLogin(fmt.Errorf("auth: exchange code: %w", err))
	}

	a.mu.Lock()
	a.session = domain.SessionState{AccessToken: token}
	a.status = domain.Authenticated
	a.pendingState = ""
	a.mu.Unlock()

	if a.store != nil {
		if err := a.store.SaveToken(ctx, token); err != nil {
			a.logger.Warn("failed to persist token", zap.Error(err))
		}
	}
	a.errs.Clear()
	a.logger.Info("login completed")
	a.changed()

	return a.loadSessionData(ctx, token)
}

// AbortLogin ends a pending login the user declined or that came back
// with a mismatched state. The returned error carries the login failure message.
func (a *Auth) AbortLogin(reason string) error {
	a.logger.Warn("login aborted", zap.String("reason", reason))
	return a.failLogin(errors.New("auth: login aborted: " + reason))
}

func (a *Auth) failLogin(cause error) error {
	a.mu.Lock()
	if a.session.AccessToken == "" {
		a.status = domain.LoggedOut
	}
	a.pendingState = ""
	a.mu.Unlock()
	err := a.errs.Fail(msgAuthFailed, cause)
	a.changed()
	return err
}

// RestoreSession picks up a persisted token, if any, and validates it
// with a profile fetch. A rejected token is discarded.
func (a *Auth) RestoreSession(ctx context.Context) error {
	if a.store == nil {
		return nil
	}
	token, err := a.store.LoadToken(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("auth: load token: %w", err)
	}
	if token == "" {
		return nil
	}

	a.mu.Lock()
	a.session = domain.SessionState{AccessToken: token}
	a.status = domain.Authenticated
	a.mu.Unlock()
	a.changed()

	if err := a.loadSessionData(ctx, token); err != nil {
		return err
	}
	return nil
}

// loadSessionData fetches profile and devices for token. Only a 401 is
// returned; other failures are logged.
func (a *Auth) loadSessionData(ctx context.Context, token string) error {
	profile, err := a.music.Profile(ctx, token)
	if err != nil {
		if ports.IsUnauthorized(err) {
			a.Invalidate(ctx, token)
			return fmt.Errorf("auth: validate token: %w", err)
		}
		a.logger.Warn("profile fetch failed", zap.Error(err))
	} else {
		a.mu.Lock()
		if a.session.AccessToken == token {
			a.session.Profile = &profile
		}
		a.mu.Unlock()
	}

	if _, err := a.RefreshDevices(ctx); err != nil {
		if ports.IsUnauthorized(err) {
			return err
		}
	}
	a.changed()
	return nil
}

// Logout discards the token and all derived state.
func (a *Auth) Logout(ctx context.Context) {
	a.clear(ctx)
	a.logger.Info("logged out")
}

// Invalidate logs out if token is still the current one. A 401 carrying
// an older token is ignored so it cannot end a newer session.
func (a *Auth) Invalidate(ctx context.Context, token string) {
	a.mu.Lock()
	current := a.session.AccessToken
	a.mu.Unlock()
	if current == "" || current != token {
		return
	}
	a.clear(ctx)
	a.errs.Set(msgSessionExpired)
	a.logger.Warn("access token rejected, session cleared")
}

func (a *Auth) clear(ctx context.Context) {
	a.mu.Lock()
	a.session.Clear()
	a.status = domain.LoggedOut
	a.pendingState = ""
	onLogout := a.onLogout
	a.mu.Unlock()

	if a.store != nil {
		if err := a.store.ClearToken(ctx); err != nil {
			a.logger.Warn("failed to clear persisted token", zap.Error(err))
		}
	}
	if onLogout != nil {
		onLogout()
	}
	a.changed()
}

// RefreshDevices re-fetches the device list.
func (a *Auth) RefreshDevices(ctx context.Context) ([]domain.Device, error) {
	token := a.Token()
	if token == "" {
		return nil, domain.ErrNotAuthenticated
	}

	devices, err := a.music.Devices(ctx, token)
	if err != nil {
		if ports.IsUnauthorized(err) {
			a.Invalidate(ctx, token)
		} else {
			a.logger.Warn("device fetch failed", zap.Error(err))
		}
		return nil, fmt.Errorf("auth: list devices: %w", err)
	}

	a.mu.Lock()
	if a.session.AccessToken == token {
		a.session.SetDevices(devices)
	}
	a.mu.Unlock()
	a.changed()
	return devices, nil
}

// SelectDevice picks the playback target.
func (a *Auth) SelectDevice(id string) error {
	a.mu.Lock()
	if !a.session.HasDevice(id) {
		a.mu.Unlock()
		return a.errs.Fail(msgDeviceUnavailable, fmt.Errorf("auth: device %q: %w", id, domain.ErrNotFound))
	}
	a.session.SelectedDevice = id
	a.mu.Unlock()
	a.changed()
	return nil
}

// Token returns the current access token, or "" when logged out.
func (a *Auth) Token() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.AccessToken
}

// SelectedDevice returns the chosen device id, or "".
func (a *Auth) SelectedDevice() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.SelectedDevice
}

// Authenticated reports whether a token is held.
func (a *Auth) Authenticated() bool {
	return a.Token() != ""
}

// Status returns the state machine position.
func (a *Auth) Status() domain.AuthStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Session returns a copy of the session with the token redacted.
func (a *Auth) Session() domain.SessionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := domain.SessionState{
		Devices:        append([]domain.Device(nil), a.session.Devices...),
		SelectedDevice: a.session.SelectedDevice,
	}
	if a.session.Profile != nil {
		p := *a.session.Profile
		s.Profile = &p
	}
	return s
}

func (a *Auth) changed() {
	a.mu.Lock()
	fn := a.onChange
	a.mu.Unlock()
	if fn != nil {
		fn()
	}
}
