package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sakif/docrunner/internal/auth"
	"github.com/sakif/docrunner/internal/book"
	"github.com/sakif/docrunner/internal/page"
)

const (
	writeWait  = 10 * time.Second
	maxMessage = 1 << 20
)

// SessionHandler upgrades a page's socket and runs a page.Session over it.
//
// The browser sends page.Event JSON messages; the server answers with JSON
// arrays of view.Patch, in emission order.
type SessionHandler struct {
	library  *book.Library
	deps     page.Deps
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewSessionHandler creates a SessionHandler. deps is shared by every
// session it starts.
func NewSessionHandler(library *book.Library, deps page.Deps, logger *slog.Logger) *SessionHandler {
	deps.Logger = logger
	return &SessionHandler{
		library: library,
		deps:    deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		logger: logger,
	}
}

// HandleSession serves one open page.
//
// HTTP: GET /_docrunner/session?page=<path>&width=<viewport width>
func (h *SessionHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	p, err := h.library.Page(r.URL.Query().Get("page"))
	if err != nil {
		writeError(w, err)
		return
	}
	width, _ := strconv.Atoi(r.URL.Query().Get("width"))
	viewerID, _ := auth.ViewerIDFromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Warn("session upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessage)

	sess := page.New(r.Context(), h.deps, viewerID, page.Content{
		Path:   p.Path,
		Blocks: p.Blocks,
		Links:  p.Links,
	})
	sess.Setup(width)

	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(conn, sess, done)
	}()

	h.readLoop(conn, sess)

	sess.Close()
	close(done)
	<-writerDone
}

// readLoop dispatches browser events until the socket closes.
func (h *SessionHandler) readLoop(conn *websocket.Conn, sess *page.Session) {
	for {
		var ev page.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("session socket closed unexpectedly",
					slog.String("session", sess.ID()),
					slog.String("error", err.Error()))
			}
			return
		}

		if err := sess.Dispatch(ev); err != nil {
			level := slog.LevelError
			if page.IsClientError(err) {
				level = slog.LevelDebug
			}
			h.logger.Log(context.Background(), level, "event rejected",
				slog.String("session", sess.ID()),
				slog.String("type", ev.Type),
				slog.String("action", ev.Action),
				slog.String("error", err.Error()))
		}
	}
}

// writeLoop is the only writer on conn. It sends pending patches whenever the
// session signals, then flushes once more on shutdown.
func (h *SessionHandler) writeLoop(conn *websocket.Conn, sess *page.Session, done <-chan struct{}) {
	flush := func() bool {
		patches := sess.Drain()
		if len(patches) == 0 {
			return true
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(patches); err != nil {
			h.logger.Debug("session write failed",
				slog.String("session", sess.ID()),
				slog.String("error", err.Error()))
			return false
		}
		return true
	}

	for {
		select {
		case <-sess.Updates():
			if !flush() {
				return
			}
		case <-done:
			flush()
			return
		}
	}
}
