// Package page runs the interactive side of one open documentation page.
//
// A Session owns every component of the page (preferences, code blocks,
// editors, playground, clipboard, navigation and the theme menu). Browser
// events, network completions and timers all run under the session lock, one
// at a time, so components never see concurrent calls.
package page

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/docrunner/internal/annotate"
	"github.com/sakif/docrunner/internal/apperror"
	"github.com/sakif/docrunner/internal/clipboard"
	"github.com/sakif/docrunner/internal/editor"
	"github.com/sakif/docrunner/internal/executor"
	"github.com/sakif/docrunner/internal/highlight"
	"github.com/sakif/docrunner/internal/menu"
	"github.com/sakif/docrunner/internal/model"
	"github.com/sakif/docrunner/internal/navigation"
	"github.com/sakif/docrunner/internal/playground"
	"github.com/sakif/docrunner/internal/service"
	"github.com/sakif/docrunner/internal/view"
)

// Preferences is the durable preference store.
type Preferences interface {
	Get(ctx context.Context, viewerID, key string, viewportWidth int) (string, error)
	Set(ctx context.Context, viewerID, key, value string) (*model.Preference, error)
}

// Content is what a session needs to know about the page it serves.
type Content struct {
	Path   string
	Blocks []*model.CodeBlock
	Links  navigation.Links
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Preferences Preferences
	Playground  executor.Service
	Capability  editor.Capability
	Timeout     time.Duration
	Logger      *slog.Logger
}

// Session is one open page.
type Session struct {
	id       string
	viewerID string
	prefs    Preferences
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closed   bool
	blocks   map[string]*model.CodeBlock
	order    []*model.CodeBlock
	expanded map[string]bool
	theme    string
	sidebar  string
	width    int
	outbox   []view.Patch
	notify   chan struct{}
	timers   []*time.Timer

	afterFunc func(time.Duration, func()) *time.Timer

	editors *editor.Bridge
	play    *playground.Controller
	clip    *clipboard.Adapter
	nav     *navigation.Controller
	menu    *menu.Popup
}

// New creates a session for viewerID on content. Setup must be called before
// events are dispatched.
func New(ctx context.Context, deps Deps, viewerID string, content Content) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:        xid.New().String(),
		viewerID:  viewerID,
		prefs:     deps.Preferences,
		ctx:       ctx,
		cancel:    cancel,
		blocks:    make(map[string]*model.CodeBlock, len(content.Blocks)),
		order:     content.Blocks,
		expanded:  make(map[string]bool),
		theme:     model.ThemeLight,
		notify:    make(chan struct{}, 1),
		afterFunc: time.AfterFunc,
	}
	s.logger = deps.Logger.With(slog.String("session", s.id), slog.String("page", content.Path))
	for _, b := range content.Blocks {
		s.blocks[b.ID] = b
	}

	emit := view.EmitterFunc(s.emit)
	s.editors = editor.NewBridge(deps.Capability, emit)
	s.play = playground.NewController(playground.Config{Timeout: deps.Timeout}, deps.Playground, s.editors, s, emit, s.logger)
	s.clip = clipboard.New(emit, s.editors, s)
	s.nav = navigation.New(content.Links)
	s.menu = menu.NewPopup(emit, func(theme string) error {
		return s.setPreference(model.PreferenceTheme, theme)
	})
	return s
}

func (s *Session) ID() string {
	return s.id
}

// Setup applies the viewer's stored preferences, registers editors and
// starts gating the playground blocks. It runs once, before any event.
func (s *Session) Setup(viewportWidth int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.width = viewportWidth
	s.theme = s.preference(model.PreferenceTheme)
	s.sidebar = s.preference(model.PreferenceSidebar)

	// Editors exist before the theme is applied so they pick up its palette.
	for _, b := range s.order {
		s.editors.Register(b)
	}
	s.applyTheme()
	s.applySidebar()

	s.play.Setup(s.ctx, s.order)
	s.logger.Debug("page session ready",
		slog.Int("blocks", len(s.order)),
		slog.String("theme", s.theme),
		slog.Bool("editing", s.editors.Available()))
}

func (s *Session) preference(key string) string {
	v, err := s.prefs.Get(s.ctx, s.viewerID, key, s.width)
	if err != nil {
		s.logger.Warn("falling back to default preference",
			slog.String("key", key),
			slog.String("error", err.Error()))
		if key == model.PreferenceTheme {
			return model.ThemeLight
		}
		return service.DefaultSidebar(s.width)
	}
	return v
}

// Dispatch handles one browser event.
func (s *Session) Dispatch(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	switch ev.Type {
	case EventKeyDown:
		s.act(s.nav.Key(ev.key()))
	case EventTouchStart:
		s.nav.TouchStart(ev.point())
	case EventTouchMove:
		s.act(s.nav.TouchMove(ev.point(), float64(s.width), s.sidebar == model.SidebarVisible))
	case EventTouchEnd:
		s.nav.TouchEnd()
	case EventClick:
		return s.click(ev)
	case EventEdit:
		if !s.editors.Edit(ev.Block, ev.Text) {
			return apperror.NotFound("editor", ev.Block)
		}
	case EventCopied:
		s.clip.Report(ev.Block, ev.OK)
	case EventResize:
		if ev.Width > 0 {
			s.width = ev.Width
		}
	default:
		return apperror.ValidationFailed("type", fmt.Sprintf("unknown event type %q", ev.Type))
	}
	return nil
}

func (s *Session) click(ev Event) error {
	switch ev.Action {
	case ActionMenuToggle:
		s.menu.Toggle()
		return nil
	case ActionTheme:
		return s.menu.Select(ev.Value)
	}

	s.menu.ClickOutside()

	switch ev.Action {
	case ActionSidebarToggle:
		next := model.SidebarVisible
		if s.sidebar == model.SidebarVisible {
			next = model.SidebarHidden
		}
		return s.setPreference(model.PreferenceSidebar, next)
	case annotate.ActionToggleHidden:
		return s.toggleHidden(ev.Block)
	case annotate.ActionCopy:
		b, err := s.block(ev.Block)
		if err != nil {
			return err
		}
		s.clip.Copy(b)
	case annotate.ActionRun:
		return s.play.Run(s.ctx, ev.Block)
	case annotate.ActionReset:
		b, err := s.block(ev.Block)
		if err != nil {
			return err
		}
		if !s.editors.IsEditable(b) {
			return nil
		}
		s.editors.Reset(b)
		// The restored text brings its hidden units back; keep them in the
		// block's current expand state.
		if b.HasHidden() {
			s.emit(view.Patch{Op: view.OpHidden, Block: b.ID, Visible: view.Bool(s.expanded[b.ID])})
		}
	}
	return nil
}

func (s *Session) act(a navigation.Action) {
	if a != navigation.None {
		s.logger.Debug("navigation action", slog.String("action", a.String()))
	}
	switch a {
	case navigation.Previous, navigation.Next:
		if href, ok := s.nav.Target(a); ok {
			s.emit(view.Patch{Op: view.OpNavigate, Href: href})
		}
	case navigation.CloseMenu:
		s.menu.Escape()
	case navigation.ShowSidebar:
		s.logIfFailed(s.setPreference(model.PreferenceSidebar, model.SidebarVisible))
	case navigation.HideSidebar:
		s.logIfFailed(s.setPreference(model.PreferenceSidebar, model.SidebarHidden))
	}
}

func (s *Session) logIfFailed(err error) {
	if err != nil {
		s.logger.Warn("preference not saved", slog.String("error", err.Error()))
	}
}

func (s *Session) block(id string) (*model.CodeBlock, error) {
	b, ok := s.blocks[id]
	if !ok {
		return nil, apperror.NotFound("block", id)
	}
	return b, nil
}

// SetPreference persists a preference and applies it to the page.
func (s *Session) SetPreference(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setPreference(key, value)
}

func (s *Session) setPreference(key, value string) error {
	pref, err := s.prefs.Set(s.ctx, s.viewerID, key, value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	switch pref.Key {
	case model.PreferenceTheme:
		s.theme = pref.Value
		s.applyTheme()
	case model.PreferenceSidebar:
		s.sidebar = pref.Value
		s.applySidebar()
	}
	return nil
}

func (s *Session) applyTheme() {
	s.emit(view.Patch{Op: view.OpTheme, Value: s.theme, Href: highlight.StylesheetHref(s.theme)})
	s.editors.SetTheme(s.theme)
}

func (s *Session) applySidebar() {
	s.emit(view.Patch{Op: view.OpSidebar, Visible: view.Bool(s.sidebar == model.SidebarVisible)})
}

// toggleHidden flips every hidden unit of a block at once.
func (s *Session) toggleHidden(id string) error {
	b, err := s.block(id)
	if err != nil {
		return err
	}
	if !b.HasHidden() {
		return nil
	}
	s.expanded[id] = !s.expanded[id]
	s.emit(view.Patch{Op: view.OpHidden, Block: id, Visible: view.Bool(s.expanded[id])})
	return nil
}

// Expanded reports whether the hidden lines of a block are shown.
func (s *Session) Expanded(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expanded[id]
}

// Theme returns the theme applied to the page.
func (s *Session) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// Sidebar returns the applied sidebar state.
func (s *Session) Sidebar() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sidebar
}

// MenuVisible reports whether the theme menu is open.
func (s *Session) MenuVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.menu.Visible()
}

// RunState returns the execution state of a playground block.
func (s *Session) RunState(id string) model.RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.play.State(id)
}

// Async runs work off the session lock and its completion under it. A
// completion arriving after Close is dropped.
func (s *Session) Async(work func() func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		completion := work()
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || completion == nil {
			return
		}
		completion()
	}()
}

// After runs fn under the session lock once d has elapsed.
func (s *Session) After(d time.Duration, fn func()) {
	t := s.afterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		fn()
	})
	s.timers = append(s.timers, t)
}

func (s *Session) emit(p view.Patch) {
	s.outbox = append(s.outbox, p)
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Updates signals when patches are waiting to be drained.
func (s *Session) Updates() <-chan struct{} {
	return s.notify
}

// Drain returns the pending patches in emission order.
func (s *Session) Drain() []view.Patch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.outbox
	s.outbox = nil
	return out
}

// Wait blocks until every background request of the session has completed.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close tears the session down: pending requests are cancelled, timers
// stopped and editors released.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
	s.editors.Close()
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.logger.Debug("page session closed")
}

// IsClientError reports whether err was caused by the event itself rather
// than by the runtime.
func IsClientError(err error) bool {
	return errors.Is(err, apperror.ErrValidation) ||
		errors.Is(err, apperror.ErrNotFound) ||
		errors.Is(err, apperror.ErrConflict)
}
