package rest

import (
	"net/http"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
)

type autoPlayRequest struct {
	Enabled *bool `json:"enabled"`
}

type emotionRequest struct {
	Emotion string `json:"emotion"`
}

// StartDetection begins automatic sampling.
func (h *Handler) StartDetection(w http.ResponseWriter, r *http.Request) {
	// the request context only bounds opening the frame source
	if err := h.engine.StartDetection(r.Context()); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

// StopDetection halts sampling.
func (h *Handler) StopDetection(w http.ResponseWriter, r *http.Request) {
	h.engine.StopDetection()
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

// SetAutoPlay handles PUT /api/autoplay
func (h *Handler) SetAutoPlay(w http.ResponseWriter, r *http.Request) {
	var req autoPlayRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}
	h.engine.SetAutoPlay(*req.Enabled)
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

// SelectEmotion is the manual override. Unknown labels become neutral.
func (h *Handler) SelectEmotion(w http.ResponseWriter, r *http.Request) {
	var req emotionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.engine.SelectEmotion(domain.ParseEmotion(req.Emotion))
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}
