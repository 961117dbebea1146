package handler

import (
	"net/http"

	"github.com/sakif/docrunner/internal/auth"
)

// ViewerResponse describes the current viewer.
type ViewerResponse struct {
	ID string `json:"id"`
}

// HandleViewer returns the viewer identity the Viewer middleware resolved.
//
// HTTP: GET /api/viewer
func HandleViewer(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := auth.ViewerIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, ViewerResponse{ID: viewerID})
}

// HandleForget drops the viewer cookie, so the browser is treated as a new
// viewer with default preferences from its next request on.
//
// HTTP: POST /api/viewer/forget
//
// POST, not GET: browsers pre-fetch GET URLs, and a pre-fetch must not reset
// anyone's preferences.
func HandleForget(w http.ResponseWriter, r *http.Request) {
	auth.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "viewer forgotten"})
}
