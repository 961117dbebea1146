// Package handler contains the HTTP request handlers of the documentation
// runtime.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (path, query params, body)
// 2. Call into the book, the preference service or a page session
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers hold no page logic of their own; they are the glue between HTTP
// and the runtime.
package handler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/docrunner/internal/apperror"
	"github.com/sakif/docrunner/internal/auth"
	"github.com/sakif/docrunner/internal/book"
	"github.com/sakif/docrunner/internal/model"
)

// PreferenceStore is the durable preference store used by the handlers.
type PreferenceStore interface {
	Get(ctx context.Context, viewerID, key string, viewportWidth int) (string, error)
	Set(ctx context.Context, viewerID, key, value string) (*model.Preference, error)
	List(ctx context.Context, viewerID string) ([]model.Preference, error)
	Reset(ctx context.Context, viewerID, key string) error
}

// PageHandler serves the book: annotated HTML pages and, for every other
// path, the files next to them (stylesheets, images, fonts).
type PageHandler struct {
	library *book.Library
	prefs   PreferenceStore
	static  http.Handler
	logger  *slog.Logger
}

// NewPageHandler creates a PageHandler over library.
func NewPageHandler(library *book.Library, prefs PreferenceStore, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		library: library,
		prefs:   prefs,
		static:  http.FileServer(http.Dir(library.Root())),
		logger:  logger,
	}
}

// HandlePage renders a page with the viewer's theme already applied, so the
// first paint matches the stored choice before the session socket connects.
//
// HTTP: GET /*
func (h *PageHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	pagePath, ok := book.Resolve(r.URL.Path)
	if !ok {
		h.static.ServeHTTP(w, r)
		return
	}

	page, err := h.library.Page(pagePath)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("failed to load page",
			slog.String("page", pagePath),
			slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	viewerID, _ := auth.ViewerIDFromContext(r.Context())
	theme, err := h.prefs.Get(r.Context(), viewerID, model.PreferenceTheme, 0)
	if err != nil {
		h.logger.Warn("rendering with default theme", slog.String("error", err.Error()))
		theme = model.ThemeLight
	}

	// Render into a buffer so a failure can still become a clean 500.
	var buf bytes.Buffer
	if err := page.Render(&buf, theme); err != nil {
		h.logger.Error("failed to render page",
			slog.String("page", pagePath),
			slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(buf.Bytes())
}
