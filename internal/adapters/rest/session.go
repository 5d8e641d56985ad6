package rest

import (
	"net/http"

	"github.com/ewilliams-labs/emotune/internal/core/services"
)

// Login redirects the browser to the authorize page.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	url, err := h.engine.Auth().BeginLogin()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// Callback handles GET /callback?code=&state=&error=
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	auth := h.engine.Auth()
	q := r.URL.Query()

	// 1. The user declined, or the provider reported a failure
	if reason := q.Get("error"); reason != "" {
		err := auth.AbortLogin(reason)
		writeErrorWithCode(w, http.StatusBadRequest, services.Message(err), codeNotAuthenticated)
		return
	}

	// 2. Guard against forged redirects
	if !auth.VerifyState(q.Get("state")) {
		err := auth.AbortLogin("state mismatch")
		writeErrorWithCode(w, http.StatusBadRequest, services.Message(err), codeNotAuthenticated)
		return
	}

	// 3. Exchange the code
	if err := auth.CompleteLogin(r.Context(), q.Get("code")); err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, services.Message(err), codeNotAuthenticated)
		return
	}

	http.Redirect(w, r, h.loginRedirect, http.StatusFound)
}

// Logout discards the session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.engine.Auth().Logout(r.Context())
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}
