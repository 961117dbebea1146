package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/docrunner/internal/annotate"
	"github.com/sakif/docrunner/internal/editor"
	"github.com/sakif/docrunner/internal/handler"
	"github.com/sakif/docrunner/internal/model"
	"github.com/sakif/docrunner/internal/page"
	"github.com/sakif/docrunner/internal/view"
)

const bookIndex = `<!DOCTYPE html>
<html lang="en"><head><title>Intro</title></head>
<body>
<a rel="next" href="ch01.html">next</a>
<pre class="playground"><code class="language-rust">fn main() { println!("hi"); }
</code></pre>
</body></html>`

// =========================================================================
// PAGES
// =========================================================================

func TestPageHandler(t *testing.T) {
	lib := newLibrary(t, map[string]string{
		"index.html":     bookIndex,
		"css/book.css":   "body { margin: 0 }",
		"guide/ch1.html": "<html><body><p>guide</p></body></html>",
	})
	lib.InjectScript(handler.RuntimeScriptPath)
	prefs := newPreferences(t)
	_, err := prefs.Set(context.Background(), testViewer, model.PreferenceTheme, model.ThemeCoal)
	require.NoError(t, err)

	h := handler.NewPageHandler(lib, prefs, quietLogger())
	router := chi.NewRouter()
	router.Use(asViewer)
	router.Get("/*", h.HandlePage)

	get := func(target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	t.Run("annotated page with stored theme", func(t *testing.T) {
		rec := get("/")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		body := rec.Body.String()
		assert.Contains(t, body, `class="coal"`)
		assert.Contains(t, body, `data-action="`+annotate.ActionRun+`"`)
		assert.Contains(t, body, `src="`+handler.RuntimeScriptPath+`"`)
	})

	t.Run("nested page", func(t *testing.T) {
		rec := get("/guide/ch1.html")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "guide")
	})

	t.Run("static file", func(t *testing.T) {
		rec := get("/css/book.css")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "body { margin: 0 }", rec.Body.String())
	})

	t.Run("missing page", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get("/missing.html").Code)
	})
}

// =========================================================================
// SESSION SOCKET
// =========================================================================

func newSessionServer(t *testing.T, svc *fakePlayground) *httptest.Server {
	t.Helper()
	lib := newLibrary(t, map[string]string{"index.html": bookIndex})
	h := handler.NewSessionHandler(lib, page.Deps{
		Preferences: newPreferences(t),
		Playground:  svc,
		Capability:  editor.Capability{},
		Timeout:     time.Second,
	}, quietLogger())

	router := chi.NewRouter()
	router.Use(asViewer)
	router.Get("/_docrunner/session", h.HandleSession)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

// patchReader yields the patches of a session socket one at a time, across
// batch boundaries.
type patchReader struct {
	t       *testing.T
	conn    *websocket.Conn
	pending []view.Patch
}

func dial(t *testing.T, srv *httptest.Server, query string) *patchReader {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/_docrunner/session?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &patchReader{t: t, conn: conn}
}

func (r *patchReader) send(ev page.Event) {
	r.t.Helper()
	require.NoError(r.t, r.conn.WriteJSON(ev))
}

// until consumes patches until one satisfies match.
func (r *patchReader) until(match func(view.Patch) bool) view.Patch {
	r.t.Helper()
	require.NoError(r.t, r.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		for len(r.pending) > 0 {
			p := r.pending[0]
			r.pending = r.pending[1:]
			if match(p) {
				return p
			}
		}
		var batch []view.Patch
		require.NoError(r.t, r.conn.ReadJSON(&batch))
		r.pending = batch
	}
}

func op(name string) func(view.Patch) bool {
	return func(p view.Patch) bool { return p.Op == name }
}

func TestSessionHandler_AppliesPreferencesOnConnect(t *testing.T) {
	srv := newSessionServer(t, &fakePlayground{})
	conn := dial(t, srv, "page=/&width=1200")

	theme := conn.until(op(view.OpTheme))
	assert.Equal(t, model.ThemeLight, theme.Value)
	assert.Equal(t, "/highlight/github.css", theme.Href)

	sidebar := conn.until(op(view.OpSidebar))
	require.NotNil(t, sidebar.Visible)
	assert.True(t, *sidebar.Visible)
}

func TestSessionHandler_MenuToggle(t *testing.T) {
	srv := newSessionServer(t, &fakePlayground{})
	conn := dial(t, srv, "page=index.html&width=800")

	conn.until(op(view.OpSidebar))
	conn.send(page.Event{Type: page.EventClick, Action: page.ActionMenuToggle})

	menu := conn.until(op(view.OpMenu))
	require.NotNil(t, menu.Visible)
	assert.True(t, *menu.Visible)
}

func TestSessionHandler_RunShowsOutput(t *testing.T) {
	svc := &fakePlayground{result: &model.ExecutionResult{Success: true, Stdout: "hi\n"}}
	srv := newSessionServer(t, svc)
	conn := dial(t, srv, "page=/&width=1200")

	control := conn.until(func(p view.Patch) bool {
		return p.Op == view.OpRunControl && p.Visible != nil && *p.Visible
	})
	conn.send(page.Event{Type: page.EventClick, Action: annotate.ActionRun, Block: control.Block})

	result := conn.until(func(p view.Patch) bool {
		return p.Op == view.OpResult && p.Value == string(model.RunSucceeded)
	})
	assert.Equal(t, "hi\n", result.Text)
	assert.Equal(t, control.Block, result.Block)
}

func TestSessionHandler_RejectedEventKeepsSocketOpen(t *testing.T) {
	srv := newSessionServer(t, &fakePlayground{})
	conn := dial(t, srv, "page=/&width=1200")

	conn.until(op(view.OpSidebar))
	conn.send(page.Event{Type: "hover"})
	conn.send(page.Event{Type: page.EventClick, Action: page.ActionMenuToggle})

	conn.until(op(view.OpMenu))
}

func TestSessionHandler_UnknownPage(t *testing.T) {
	srv := newSessionServer(t, &fakePlayground{})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/_docrunner/session?page=nope.html"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
