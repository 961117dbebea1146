// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the wiring layer. It decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Server.New() creates:
//	  sqlite.DB → PreferenceService ─┬→ PreferenceHandler
//	                                 ├→ PageHandler
//	  remote.Client (playground) ────┼→ SessionHandler (one page.Session per socket)
//	  Highlighter → Annotator → book.Library ─┘
//	  TokenService → Viewer middleware
//
// This is the "composition root": every dependency is built here and handed
// down, so no package reaches for a global.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/docrunner/internal/annotate"
	"github.com/sakif/docrunner/internal/auth"
	"github.com/sakif/docrunner/internal/book"
	"github.com/sakif/docrunner/internal/config"
	"github.com/sakif/docrunner/internal/executor/remote"
	"github.com/sakif/docrunner/internal/handler"
	"github.com/sakif/docrunner/internal/highlight"
	"github.com/sakif/docrunner/internal/middleware"
	"github.com/sakif/docrunner/internal/page"
	sqliteRepo "github.com/sakif/docrunner/internal/repository/sqlite"
	"github.com/sakif/docrunner/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection and, when watching is enabled, the
// book watcher. Both are released by Close, which Start calls on shutdown.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	library *book.Library
	watcher *book.Watcher
}

// New creates a Server from a validated configuration.
//
// The viewer-cookie secret must already be resolved: callers without a
// configured secret generate one before calling New.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if info, err := os.Stat(cfg.Book.Dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("book directory %q is not readable", cfg.Book.Dir)
	}

	if cfg.Database.Path != ":memory:" {
		// os.MkdirAll is a no-op when the directory already exists.
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.Auth.Secret, cfg.Auth.ViewerTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	highlighter := highlight.New()
	annotator := annotate.New(cfg.Conventions, highlighter, cfg.Editor.EditingAvailable)
	s.library = book.NewLibrary(cfg.Book.Dir, annotator, logger)
	s.library.InjectScript(handler.RuntimeScriptPath)

	if cfg.Book.Watch {
		w, err := s.library.Watch()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("watching book: %w", err)
		}
		s.watcher = w
	}

	s.setupRoutes(tokens, highlighter)
	return s, nil
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Library returns the served book.
func (s *Server) Library() *book.Library {
	return s.library
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /healthz                        → database reachability
// GET    /highlight/{file}               → chroma stylesheet per theme
// GET    /_docrunner/runtime.js          → browser half of the runtime
// GET    /_docrunner/session             → page session socket
// GET    /api/viewer                     → current viewer id
// POST   /api/viewer/forget              → drop the viewer cookie
// GET    /api/preferences                → stored preferences
// GET    /api/preferences/{key}          → one preference, with default
// PUT    /api/preferences/{key}          → store a preference
// DELETE /api/preferences/{key}          → back to the default
// POST   /api/execute                    → run a snippet on the playground
// GET    /api/crates                     → playground dependency manifest
// GET    /*                              → annotated pages and book files
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns a unique ID to each request (for tracing)
// 2. RealIP: extracts the client IP from proxy headers
// 3. Recoverer: turns panics into 500s instead of crashing
// 4. Viewer: resolves or mints the viewer identity
// 5. Logger: logs each request, with the request and viewer IDs set above
func (s *Server) setupRoutes(tokens *auth.TokenService, highlighter *highlight.Highlighter) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(auth.Viewer(tokens, s.logger))
	s.router.Use(middleware.Logger(s.logger))

	prefs := service.NewPreferenceService(s.db, s.logger)
	playground := remote.New(remote.Config{
		BaseURL: s.config.Playground.URL,
		Timeout: s.config.Playground.Timeout,
	}, s.logger)

	assets := handler.NewAssetHandler(highlighter, s.logger)
	s.router.Get("/healthz", handler.HealthHandler(s.db, s.logger))
	s.router.Get("/highlight/{file}", assets.HandleStylesheet)
	s.router.Get(handler.RuntimeScriptPath, handler.ServeRuntime)

	sessions := handler.NewSessionHandler(s.library, page.Deps{
		Preferences: prefs,
		Playground:  playground,
		Capability:  s.config.Editor,
		Timeout:     s.config.Playground.Timeout,
	}, s.logger)
	s.router.Get("/_docrunner/session", sessions.HandleSession)

	preferences := handler.NewPreferenceHandler(prefs, s.logger)
	execute := handler.NewExecuteHandler(playground, s.config.Playground.Timeout, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/viewer", handler.HandleViewer)
		r.Post("/viewer/forget", handler.HandleForget)

		r.Get("/preferences", preferences.HandleList)
		r.Get("/preferences/{key}", preferences.HandleGet)
		r.Put("/preferences/{key}", preferences.HandleSet)
		r.Delete("/preferences/{key}", preferences.HandleReset)

		r.Post("/execute", execute.HandleExecute)
		r.Get("/crates", execute.HandleCrates)
	})

	pages := handler.NewPageHandler(s.library, prefs, s.logger)
	s.router.Get("/*", pages.HandlePage)
}

// Close releases the watcher and the database.
func (s *Server) Close() error {
	var errs []error
	if s.watcher != nil {
		errs = append(errs, s.watcher.Stop())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the watcher and the database (flushes WAL, releases file lock)
//
// Open page sockets are hijacked connections: Shutdown does not wait for
// them, and their sessions end when the process exits.
func (s *Server) Start() error {
	defer s.Close()

	// WriteTimeout stays unset: socket writes carry their own deadlines and
	// pages are rendered into a buffer before anything is written.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Server.Port)),
			slog.String("book", s.config.Book.Dir),
			slog.String("playground", s.config.Playground.URL),
			slog.Bool("watch", s.config.Book.Watch),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
