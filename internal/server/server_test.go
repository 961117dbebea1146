package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/docrunner/internal/auth"
	"github.com/sakif/docrunner/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	bookDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bookDir, "index.html"),
		[]byte(`<html><head></head><body><pre><code class="language-rust">fn main() {}</code></pre></body></html>`), 0o644))

	cfg := config.DefaultConfig()
	cfg.Book.Dir = bookDir
	cfg.Database.Path = ":memory:"
	cfg.Auth.Secret = "server-test-secret-0123"
	require.NoError(t, cfg.Validate())

	s, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew_RejectsMissingBook(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Book.Dir = filepath.Join(t.TempDir(), "absent")
	cfg.Database.Path = ":memory:"
	cfg.Auth.Secret = "server-test-secret-0123"

	_, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		target string
		status int
		ctype  string
	}{
		{target: "/healthz", status: http.StatusOK, ctype: "application/json"},
		{target: "/", status: http.StatusOK, ctype: "text/html"},
		{target: "/highlight/github.css", status: http.StatusOK, ctype: "text/css"},
		{target: "/_docrunner/runtime.js", status: http.StatusOK, ctype: "javascript"},
		{target: "/api/preferences/theme", status: http.StatusOK, ctype: "application/json"},
		{target: "/missing.html", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.status, rec.Code)
			if tt.ctype != "" {
				assert.Contains(t, rec.Header().Get("Content-Type"), tt.ctype)
			}
		})
	}
}

func TestViewerCookieIsStable(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/viewer", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, auth.CookieName, cookies[0].Name)

	var first struct{ ID string }
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&first))
	require.NotEmpty(t, first.ID)

	req := httptest.NewRequest(http.MethodGet, "/api/viewer", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var second struct{ ID string }
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&second))
	assert.Equal(t, first.ID, second.ID)
}
