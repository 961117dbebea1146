package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/docrunner/internal/apperror"
	"github.com/sakif/docrunner/internal/auth"
	"github.com/sakif/docrunner/internal/model"
)

// PreferenceHandler exposes the viewer's preferences as JSON.
//
// Changes made here apply to pages opened afterwards. An open page changes
// its preferences through its session so the change is applied live.
type PreferenceHandler struct {
	prefs  PreferenceStore
	logger *slog.Logger
}

// NewPreferenceHandler creates a new PreferenceHandler.
func NewPreferenceHandler(prefs PreferenceStore, logger *slog.Logger) *PreferenceHandler {
	return &PreferenceHandler{prefs: prefs, logger: logger}
}

// HandleList returns every preference the viewer explicitly set.
//
// HTTP: GET /api/preferences
//
// RESPONSE FORMAT:
//
//	[{"key":"theme","value":"navy","updatedAt":"..."}]
func (h *PreferenceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.ViewerIDFromContext(r.Context())
	prefs, err := h.prefs.List(r.Context(), viewerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// HandleGet returns one preference, falling back to its default. The sidebar
// default depends on the layout, so callers may pass ?width=.
//
// HTTP: GET /api/preferences/{key}
func (h *PreferenceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	width, _ := strconv.Atoi(r.URL.Query().Get("width"))
	viewerID, _ := auth.ViewerIDFromContext(r.Context())

	value, err := h.prefs.Get(r.Context(), viewerID, key, width)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.Preference{Key: key, Value: value})
}

// SetRequest is the body of PUT /api/preferences/{key}.
type SetRequest struct {
	Value string `json:"value"`
}

// HandleSet validates and stores a preference.
//
// HTTP: PUT /api/preferences/{key}
// REQUEST BODY: {"value": "navy"}
func (h *PreferenceHandler) HandleSet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var body SetRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.Warn("invalid preference JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	viewerID, _ := auth.ViewerIDFromContext(r.Context())
	pref, err := h.prefs.Set(r.Context(), viewerID, key, body.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pref)
}

// HandleReset drops a stored preference so its default applies again.
//
// HTTP: DELETE /api/preferences/{key}
func (h *PreferenceHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	viewerID, _ := auth.ViewerIDFromContext(r.Context())

	if err := h.prefs.Reset(r.Context(), viewerID, key); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
