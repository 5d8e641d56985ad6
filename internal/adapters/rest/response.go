package rest

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
	"github.com/ewilliams-labs/emotune/internal/core/services"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeErrorWithCode(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func isJSONContentType(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// Error codes let clients branch without parsing messages.
const (
	codeNotAuthenticated = "NOT_AUTHENTICATED"
	codeNotConfigured    = "NOT_CONFIGURED"
	codePermissionDenied = "PERMISSION_DENIED"
	codePremiumRequired  = "PREMIUM_REQUIRED"
	codeNoActiveDevice   = "NO_ACTIVE_DEVICE"
	codeInvalidIndex     = "INVALID_TRACK_INDEX"
	codeNotFound         = "NOT_FOUND"
	codeUpstream         = "UPSTREAM_ERROR"
)

// statusFor maps a service error onto an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated), errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, codeNotAuthenticated
	case errors.Is(err, domain.ErrMissingClientID):
		return http.StatusServiceUnavailable, codeNotConfigured
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden, codePermissionDenied
	case errors.Is(err, domain.ErrPremiumRequired):
		return http.StatusForbidden, codePremiumRequired
	case errors.Is(err, domain.ErrNoActiveDevice):
		return http.StatusConflict, codeNoActiveDevice
	case errors.Is(err, domain.ErrInvalidTrackIndex):
		return http.StatusBadRequest, codeInvalidIndex
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	default:
		return http.StatusBadGateway, codeUpstream
	}
}

// writeServiceError reports err with the user-visible message attached to
// it, falling back to the error text. The shared error slot is not consulted
// since it may still hold an older failure.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	msg := services.Message(err)
	if msg == "" {
		msg = err.Error()
	}
	if status >= http.StatusInternalServerError {
		h.logger.Warn("request failed", zap.Error(err))
	}
	writeErrorWithCode(w, status, msg, code)
}
