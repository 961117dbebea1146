package handler

import (
	_ "embed"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/docrunner/internal/highlight"
)

// RuntimeScriptPath is where pages load the browser half of the runtime.
const RuntimeScriptPath = "/_docrunner/runtime.js"

//go:embed runtime.js
var runtimeJS []byte

// ServeRuntime serves the embedded browser runtime.
//
// HTTP: GET /_docrunner/runtime.js
func ServeRuntime(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Write(runtimeJS)
}

// AssetHandler serves generated assets.
type AssetHandler struct {
	highlighter *highlight.Highlighter
	logger      *slog.Logger
}

func NewAssetHandler(highlighter *highlight.Highlighter, logger *slog.Logger) *AssetHandler {
	return &AssetHandler{highlighter: highlighter, logger: logger}
}

// HandleStylesheet serves the highlight stylesheet of a chroma style.
//
// HTTP: GET /highlight/{file}  e.g. /highlight/monokai.css
func (h *AssetHandler) HandleStylesheet(w http.ResponseWriter, r *http.Request) {
	style, ok := strings.CutSuffix(chi.URLParam(r, "file"), ".css")
	if !ok || !highlight.KnownStyle(style) {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if err := h.highlighter.WriteStylesheet(w, style); err != nil {
		h.logger.Error("failed to write stylesheet",
			slog.String("style", style),
			slog.String("error", err.Error()))
	}
}

// Pinger is anything the health check can probe.
type Pinger interface {
	Ping() error
}

// HealthHandler reports whether the preference database is reachable.
//
// HTTP: GET /healthz
func HealthHandler(db Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			logger.Error("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
