package services

import (
	"errors"
	"sync"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
)

// User-visible messages, kept close to what the UI has always shown.
const (
	msgLoginFirst        = "Please log in to Spotify first"
	msgClientIDMissing   = "Spotify client ID not configured"
	msgAuthFailed        = "Failed to authenticate with Spotify"
	msgSessionExpired    = "Spotify session expired. Please log in again."
	msgCameraDenied      = "Camera access is required for emotion detection. You can still manually select emotions below."
	msgRecommendFailed   = "Failed to get music recommendations. Please try again."
	msgNoDevice          = "No active Spotify devices found. Please open Spotify on your phone, computer, or web player."
	msgPremiumRequired   = "Spotify Premium required to control playback."
	msgPlayFailed        = "Failed to play music. Please ensure Spotify is open on a device."
	msgDeviceUnavailable = "Selected device is not available."
	msgPauseFailed       = "Failed to pause playback. Please try again."
	msgInvalidTrack      = "That track is not in the current list."
	msgNoDetector        = "Emotion detection is not configured on this server."
)

// UserError attaches the message shown to the user to the error that
// caused it.
type UserError struct {
	Msg string
	Err error
}

func (e *UserError) Error() string { return e.Err.Error() }

func (e *UserError) Unwrap() error { return e.Err }

// Message returns the user-visible text for err: the message attached
// where it failed, else the default for its class, else "".
func Message(err error) string {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Msg
	}
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		return msgLoginFirst
	case errors.Is(err, domain.ErrUnauthorized):
		return msgSessionExpired
	case errors.Is(err, domain.ErrMissingClientID):
		return msgClientIDMissing
	case errors.Is(err, domain.ErrNoActiveDevice):
		return msgNoDevice
	case errors.Is(err, domain.ErrPremiumRequired):
		return msgPremiumRequired
	case errors.Is(err, domain.ErrInvalidTrackIndex):
		return msgInvalidTrack
	}
	return ""
}

// ErrorSlot holds the single current user-visible error. Last write wins.
type ErrorSlot struct {
	mu  sync.Mutex
	msg string
}

// Set replaces the current message.
func (s *ErrorSlot) Set(msg string) {
	s.mu.Lock()
	s.msg = msg
	s.mu.Unlock()
}

// Clear empties the slot.
func (s *ErrorSlot) Clear() {
	s.Set("")
}

// Fail records msg and returns err carrying the same message.
func (s *ErrorSlot) Fail(msg string, err error) error {
	s.Set(msg)
	return &UserError{Msg: msg, Err: err}
}

// Get returns the current message, or "" when there is none.
func (s *ErrorSlot) Get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.msg
}
