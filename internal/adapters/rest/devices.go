package rest

import (
	"net/http"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
)

type selectDeviceRequest struct {
	DeviceID string `json:"device_id"`
}

type devicesResponse struct {
	Devices        []domain.Device `json:"devices"`
	SelectedDevice string          `json:"selected_device,omitempty"`
}

// ListDevices returns the cached device list.
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	session := h.engine.Auth().Session()
	writeJSON(w, http.StatusOK, devicesResponse{Devices: nonNil(session.Devices), SelectedDevice: session.SelectedDevice})
}

// RefreshDevices re-fetches the device list from the music service.
func (h *Handler) RefreshDevices(w http.ResponseWriter, r *http.Request) {
	if _, err := h.engine.Auth().RefreshDevices(r.Context()); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.ListDevices(w, r)
}

// SelectDevice handles PUT /api/devices/selected
func (h *Handler) SelectDevice(w http.ResponseWriter, r *http.Request) {
	var req selectDeviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DeviceID == "" {
		writeError(w, http.StatusBadRequest, "device_id is required")
		return
	}
	if err := h.engine.Auth().SelectDevice(req.DeviceID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.ListDevices(w, r)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
