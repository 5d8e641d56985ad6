// Package rest exposes the engine's controls as a JSON HTTP API plus a
// websocket state feed.
package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/emotune/internal/core/ports"
	"github.com/ewilliams-labs/emotune/internal/core/services"
)

// Handler manages the HTTP interface for our application.
type Handler struct {
	engine   *services.Engine
	tracks   ports.TrackRepository // optional track cache
	logger   *zap.Logger
	router   chi.Router
	upgrader websocket.Upgrader

	// where the browser lands after the authorize redirect completes
	loginRedirect string
}

// Option customises a Handler.
type Option func(*Handler)

// WithLoginRedirect sets where /callback sends the browser on success.
func WithLoginRedirect(path string) Option {
	return func(h *Handler) { h.loginRedirect = path }
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(engine *services.Engine, tracks ports.TrackRepository, logger *zap.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		engine:        engine,
		tracks:        tracks,
		logger:        logger.Named("rest"),
		router:        chi.NewRouter(),
		upgrader:      newUpgrader(),
		loginRedirect: "/",
	}
	for _, opt := range opts {
		opt(h)
	}

	// Register Routes
	h.routes()

	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// routes defines the mapping between URLs and methods.
func (h *Handler) routes() {
	h.router.Use(middleware.RequestID)
	h.router.Use(middleware.Recoverer)
	h.router.Use(h.requestLogger)

	// Health Check
	h.router.Get("/health", h.HealthCheck)
	// OAuth redirect target
	h.router.Get("/callback", h.Callback)

	h.router.Route("/api", func(r chi.Router) {
		r.Get("/state", h.GetState)
		r.Get("/events", h.Events)

		r.Get("/auth/login", h.Login)
		r.Post("/auth/logout", h.Logout)

		r.Post("/detection/start", h.StartDetection)
		r.Post("/detection/stop", h.StopDetection)
		r.Put("/autoplay", h.SetAutoPlay)
		r.Post("/emotion", h.SelectEmotion)

		r.Get("/devices", h.ListDevices)
		r.Post("/devices/refresh", h.RefreshDevices)
		r.Put("/devices/selected", h.SelectDevice)

		r.Post("/playback/play", h.Play)
		r.Post("/playback/pause", h.Pause)
		r.Post("/playback/skip", h.Skip)
		r.Put("/playback/track", h.SelectTrack)

		r.Get("/tracks/{id}", h.GetTrack)
	})
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Emotune is live 🎶"})
}

// GetState returns the full state snapshot.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// decodeJSON enforces the content type and decodes the body into v.
// It writes the error response itself and reports whether decoding worked.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
