package rest

import (
	"net/http"
)

type selectTrackRequest struct {
	Index *int `json:"index"`
}

// Play resumes the whole current track list.
func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w) {
		return
	}
	if err := h.engine.Orchestrator().PlayAll(r.Context()); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

// Pause stops playback on the active device.
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Orchestrator().Pause(r.Context()); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

// Skip advances to the next track, wrapping at the end.
func (h *Handler) Skip(w http.ResponseWriter, r *http.Request) {
	if !h.requireSession(w) {
		return
	}
	if err := h.engine.Orchestrator().Skip(r.Context()); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

// SelectTrack handles PUT /api/playback/track
func (h *Handler) SelectTrack(w http.ResponseWriter, r *http.Request) {
	var req selectTrackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Index == nil {
		writeError(w, http.StatusBadRequest, "index is required")
		return
	}
	if err := h.engine.Orchestrator().SelectTrack(r.Context(), *req.Index); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

// requireSession rejects playback commands while logged out. PlayAll and
// Skip are silent no-ops on an empty list, so the check lives here.
func (h *Handler) requireSession(w http.ResponseWriter) bool {
	if h.engine.Auth().Authenticated() {
		return true
	}
	writeErrorWithCode(w, http.StatusUnauthorized, "Please log in to Spotify first", codeNotAuthenticated)
	return false
}
