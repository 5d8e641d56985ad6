package domain

import "errors"

var (
	ErrNotFound          = errors.New("domain: not found")
	ErrUnauthorized      = errors.New("domain: access token rejected")
	ErrNoActiveDevice    = errors.New("domain: no active playback device")
	ErrPremiumRequired   = errors.New("domain: premium account required for playback control")
	ErrNoDetection       = errors.New("domain: no face detected")
	ErrPermissionDenied  = errors.New("domain: camera permission denied")
	ErrMissingClientID   = errors.New("domain: client id not configured")
	ErrNotAuthenticated  = errors.New("domain: not authenticated")
	ErrInvalidTrackIndex = errors.New("domain: track index out of range")
	ErrNoRecommendations = errors.New("domain: no tracks found for emotion")
)

// AuthStatus is the login state machine position.
type AuthStatus string

const (
	LoggedOut      AuthStatus = "logged_out"
	Authenticating AuthStatus = "authenticating"
	Authenticated  AuthStatus = "authenticated"
)

// SessionState is everything derived from an access token.
// A non-empty AccessToken means the session is authenticated.
type SessionState struct {
	AccessToken    string
	Profile        *Profile
	Devices        []Device
	SelectedDevice string
}

// HasDevice reports whether id is in the device list.
func (s *SessionState) HasDevice(id string) bool {
	for _, d := range s.Devices {
		if d.ID == id {
			return true
		}
	}
	return false
}

// SetDevices replaces the device list, keeping the selection when it is
// still present and otherwise falling back to the first device.
func (s *SessionState) SetDevices(devices []Device) {
	s.Devices = append([]Device(nil), devices...)
	if s.SelectedDevice != "" && s.HasDevice(s.SelectedDevice) {
		return
	}
	s.SelectedDevice = ""
	if len(s.Devices) > 0 {
		s.SelectedDevice = s.Devices[0].ID
	}
}

// Clear drops the token and all derived state.
func (s *SessionState) Clear() {
	*s = SessionState{}
}
