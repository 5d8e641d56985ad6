package rest

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
)

// GetTrack handles GET /api/tracks/{id}
func (h *Handler) GetTrack(w http.ResponseWriter, r *http.Request) {
	if h.tracks == nil {
		writeErrorWithCode(w, http.StatusNotFound, "track cache is not configured", codeNotFound)
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "track id is required")
		return
	}

	track, err := h.tracks.GetTrack(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeErrorWithCode(w, http.StatusNotFound, "track not found", codeNotFound)
			return
		}
		h.logger.Error("track lookup failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load track")
		return
	}

	writeJSON(w, http.StatusOK, track)
}
