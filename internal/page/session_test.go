package page

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/docrunner/internal/annotate"
	"github.com/sakif/docrunner/internal/apperror"
	"github.com/sakif/docrunner/internal/clipboard"
	"github.com/sakif/docrunner/internal/editor"
	"github.com/sakif/docrunner/internal/model"
	"github.com/sakif/docrunner/internal/navigation"
	"github.com/sakif/docrunner/internal/playground"
	"github.com/sakif/docrunner/internal/service"
	"github.com/sakif/docrunner/internal/view"
)

type memoryPrefs struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryPrefs() *memoryPrefs {
	return &memoryPrefs{values: make(map[string]string)}
}

func (m *memoryPrefs) Get(_ context.Context, viewerID, key string, width int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.values[viewerID+"/"+key]; ok {
		return v, nil
	}
	if key == model.PreferenceTheme {
		return model.ThemeLight, nil
	}
	return service.DefaultSidebar(width), nil
}

func (m *memoryPrefs) Set(_ context.Context, viewerID, key, value string) (*model.Preference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if key == model.PreferenceTheme && value == "plaid" {
		return nil, apperror.ValidationFailed("value", "unknown theme")
	}
	m.values[viewerID+"/"+key] = value
	return &model.Preference{ViewerID: viewerID, Key: key, Value: value}, nil
}

type stubPlayground struct {
	mu       sync.Mutex
	manifest model.DependencyManifest
	result   *model.ExecutionResult
	err      error
	release  chan struct{}
	requests []model.ExecutionRequest
}

func (p *stubPlayground) Crates(context.Context) (model.DependencyManifest, error) {
	return p.manifest, nil
}

func (p *stubPlayground) Execute(ctx context.Context, req model.ExecutionRequest) (*model.ExecutionResult, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	release := p.release
	p.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, apperror.Timeout("evaluate.json")
		}
	}
	return p.result, p.err
}

func testBlocks() []*model.CodeBlock {
	return []*model.CodeBlock{
		{
			ID:       "block-0",
			Language: "rust",
			Flags:    model.BlockFlags{Playground: true, Editable: true},
			Lines: []model.Line{
				{Text: "extern crate foo;", Hidden: true},
				{Text: "fn main() { println!(\"hi\"); }"},
			},
		},
		{
			ID:       "block-1",
			Language: "toml",
			Lines:    []model.Line{{Text: "[package]"}},
		},
	}
}

type harness struct {
	prefs   *memoryPrefs
	play    *stubPlayground
	timeout time.Duration
	s       *Session
}

func newHarness(t *testing.T, width int) *harness {
	return newHarnessWithTimeout(t, width, time.Second)
}

func newHarnessWithTimeout(t *testing.T, width int, timeout time.Duration) *harness {
	t.Helper()
	h := &harness{
		timeout: timeout,
		prefs:   newMemoryPrefs(),
		play: &stubPlayground{
			manifest: model.NewDependencyManifest("foo"),
			result:   &model.ExecutionResult{Success: true, Stdout: "hi\n"},
		},
	}
	h.start(t, width)
	return h
}

func (h *harness) start(t *testing.T, width int) {
	t.Helper()
	deps := Deps{
		Preferences: h.prefs,
		Playground:  h.play,
		Capability:  editor.Capability{EditingAvailable: true},
		Timeout:     h.timeout,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	content := Content{
		Path:   "ch02.html",
		Blocks: testBlocks(),
		Links:  navigation.Links{Previous: "ch01.html", Next: "ch03.html"},
	}
	h.s = New(context.Background(), deps, "viewer-1", content)
	t.Cleanup(h.s.Close)
	h.s.Setup(width)
	h.s.Wait()
}

func last(patches []view.Patch, op, block string) (view.Patch, bool) {
	r := &view.Recorder{}
	for _, p := range patches {
		r.Emit(p)
	}
	return r.Last(op, block)
}

func TestSession_SetupAppliesDefaults(t *testing.T) {
	h := newHarness(t, 1280)

	patches := h.s.Drain()

	theme, ok := last(patches, view.OpTheme, "")
	require.True(t, ok)
	assert.Equal(t, model.ThemeLight, theme.Value)
	assert.Equal(t, "/highlight/github.css", theme.Href)

	sidebar, ok := last(patches, view.OpSidebar, "")
	require.True(t, ok)
	assert.True(t, *sidebar.Visible, "wide layouts start with the sidebar")

	run, ok := last(patches, view.OpRunControl, "block-0")
	require.True(t, ok)
	assert.True(t, *run.Visible, "manifest contains foo")
}

func TestSession_NarrowLayoutHidesSidebar(t *testing.T) {
	h := newHarness(t, 600)

	assert.Equal(t, model.SidebarHidden, h.s.Sidebar())
}

func TestSession_ThemePersistsAcrossReload(t *testing.T) {
	h := newHarness(t, 1280)

	require.NoError(t, h.s.Dispatch(Event{Type: EventClick, Action: ActionMenuToggle}))
	require.NoError(t, h.s.Dispatch(Event{Type: EventClick, Action: ActionTheme, Value: model.ThemeCoal}))

	assert.True(t, h.s.MenuVisible(), "choosing a theme leaves the menu open")
	patches := h.s.Drain()
	theme, ok := last(patches, view.OpTheme, "")
	require.True(t, ok)
	assert.Equal(t, model.ThemeCoal, theme.Value)
	assert.Equal(t, "/highlight/monokai.css", theme.Href)
	palette, ok := last(patches, view.OpEditorTheme, "")
	require.True(t, ok)
	assert.Equal(t, editor.PaletteDark, palette.Value)

	h.s.Close()
	h.start(t, 1280)

	assert.Equal(t, model.ThemeCoal, h.s.Theme())
}

func TestSession_StoredDarkThemeReachesEditorsOnSetup(t *testing.T) {
	h := &harness{
		timeout: time.Second,
		prefs:   newMemoryPrefs(),
		play:    &stubPlayground{manifest: model.NewDependencyManifest("foo")},
	}
	h.prefs.values["viewer-1/"+model.PreferenceTheme] = model.ThemeCoal
	h.start(t, 1280)

	palette, ok := last(h.s.Drain(), view.OpEditorTheme, "")
	require.True(t, ok, "editors are themed on page load")
	assert.Equal(t, editor.PaletteDark, palette.Value)
}

func TestSession_InvalidThemeIsRejected(t *testing.T) {
	h := newHarness(t, 1280)

	err := h.s.Dispatch(Event{Type: EventClick, Action: ActionTheme, Value: "plaid"})

	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.True(t, IsClientError(err))
	assert.Equal(t, model.ThemeLight, h.s.Theme())
}

func TestSession_MenuClosesOnOutsideClickAndEscape(t *testing.T) {
	h := newHarness(t, 1280)

	require.NoError(t, h.s.Dispatch(Event{Type: EventClick, Action: ActionMenuToggle}))
	require.NoError(t, h.s.Dispatch(Event{Type: EventClick}))
	assert.False(t, h.s.MenuVisible())

	require.NoError(t, h.s.Dispatch(Event{Type: EventClick, Action: ActionMenuToggle}))
	require.NoError(t, h.s.Dispatch(Event{Type: EventKeyDown, Key: "Escape"}))
	assert.False(t, h.s.MenuVisible())
}

func TestSession_ToggleHidden(t *testing.T) {
	h := newHarness(t, 1280)

	require.NoError(t, h.s.Dispatch(Event{Type: EventClick, Action: annotate.ActionToggleHidden, Block: "block-0"}))
	assert.True(t, h.s.Expanded("block-0"))

	require.NoError(t, h.s.Dispatch(Event{Type: EventClick, Action: annotate.ActionToggleHidden, Block: "block-0"}))
	assert.False(t, h.s.Expanded("block-0"))

	require.NoError(t, h.s.Dispatch(Event{Type: EventClick, Action: annotate.ActionToggleHidden, Block: "block-1"}))
	assert.False(t, h.s.Expanded("block-1"), "blocks without hidden lines have nothing to toggle")

	err := h.s.Dispatch(Event{Type: EventClick, Action: annotate.ActionToggleHidden, Block: "block-7"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestSession_CopyAndAck(t *testing.T) {
	h := newHarness(t, 1280)
	var fire []func()
	h.s.afterFunc = func(d time.Duration, fn func()) *time.Timer {
		fire = append(fire, fn)
		return time.NewTimer(time.Hour)
	}
	h.s.Drain()

	require.NoError(t, h.s.Dispatch(Event{Type: EventClick, Action: annotate.ActionCopy, Block: "block-0"}))
	copyPatch, ok := last(h.s.Drain(), view.OpCopy, "block-0")
	require.True(t, ok)
	assert.Equal(t, "extern crate foo;\nfn main() { println!(\"hi\"); }", copyPatch.Text)

	require.NoError(t, h.s.Dispatch(Event{Type: EventCopied, Block: "block-0", OK: true}))
	ack, ok := last(h.s.Drain(), view.OpCopyAck, "block-0")
	require.True(t, ok)
	assert.Equal(t, clipboard.MsgCopied, ack.Text)

	require.Len(t, fire, 1)
	fire[0]()
	cleared, ok := last(h.s.Drain(), view.OpCopyAck, "block-0")
	require.True(t, ok)
	assert.Empty(t, cleared.Text)
}

func TestSession_RunShowsOutput(t *testing.T) {
	h := newHarness(t, 1280)

	require.NoError(t, h.s.Dispatch(Event{Type: EventClick, Action: annotate.ActionRun, Block: "block-0"}))
	h.s.Wait()

	result, ok := last(h.s.Drain(), view.OpResult, "block-0")
	require.True(t, ok)
	assert.Equal(t, "hi\n", result.Text)
	assert.Equal(t, model.RunSucceeded, h.s.RunState("block-0"))
}

func TestSession_SecondRunWhilePendingIsRejected(t *testing.T) {
	h := newHarness(t, 1280)
	h.play.release = make(chan struct{})

	require.NoError(t, h.s.Dispatch(Event{Type: EventClick, Action: annotate.ActionRun, Block: "block-0"}))
	assert.Equal(t, model.RunRunning, h.s.RunState("block-0"))

	err := h.s.Dispatch(Event{Type: EventClick, Action: annotate.ActionRun, Block: "block-0"})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	close(h.play.release)
	h.s.Wait()
	assert.Equal(t, model.RunSucceeded, h.s.RunState("block-0"))
	assert.Len(t, h.play.requests, 1)
}

func TestSession_TimeoutReplacesPlaceholder(t *testing.T) {
	h := newHarnessWithTimeout(t, 1280, 20*time.Millisecond)
	h.play.release = make(chan struct{})

	require.NoError(t, h.s.Dispatch(Event{Type: EventClick, Action: annotate.ActionRun, Block: "block-0"}))
	h.s.Wait()

	result, ok := last(h.s.Drain(), view.OpResult, "block-0")
	require.True(t, ok)
	assert.Equal(t, playground.MsgTimeout, result.Text)
	assert.Equal(t, model.RunTimedOut, h.s.RunState("block-0"))
}

func TestSession_EditRegatesAndResetRestores(t *testing.T) {
	h := newHarness(t, 1280)
	h.s.Drain()

	require.NoError(t, h.s.Dispatch(Event{Type: EventEdit, Block: "block-0", Text: "extern crate bar;\nfn main() {}"}))
	run, ok := last(h.s.Drain(), view.OpRunControl, "block-0")
	require.True(t, ok)
	assert.False(t, *run.Visible)

	require.NoError(t, h.s.Dispatch(Event{Type: EventClick, Action: annotate.ActionReset, Block: "block-0"}))
	patches := h.s.Drain()
	run, ok = last(patches, view.OpRunControl, "block-0")
	require.True(t, ok)
	assert.True(t, *run.Visible)
	text, ok := last(patches, view.OpEditorText, "block-0")
	require.True(t, ok)
	assert.Contains(t, text.Text, "extern crate foo;")

	err := h.s.Dispatch(Event{Type: EventEdit, Block: "block-1", Text: "x"})
	assert.ErrorIs(t, err, apperror.ErrNotFound, "static blocks have no editor")
}

func TestSession_ResetKeepsHiddenLinesInTheirState(t *testing.T) {
	h := newHarness(t, 1280)
	require.NoError(t, h.s.Dispatch(Event{Type: EventClick, Action: annotate.ActionToggleHidden, Block: "block-0"}))
	require.NoError(t, h.s.Dispatch(Event{Type: EventEdit, Block: "block-0", Text: "fn main() {}"}))
	h.s.Drain()

	require.NoError(t, h.s.Dispatch(Event{Type: EventClick, Action: annotate.ActionReset, Block: "block-0"}))
	patches := h.s.Drain()

	textAt, hiddenAt := -1, -1
	for i, p := range patches {
		switch p.Op {
		case view.OpEditorText:
			textAt = i
		case view.OpHidden:
			hiddenAt = i
		}
	}
	require.NotEqual(t, -1, textAt)
	require.Greater(t, hiddenAt, textAt, "expand state is re-applied after the text is restored")
	assert.True(t, *patches[hiddenAt].Visible)
	assert.True(t, h.s.Expanded("block-0"))
}

func TestSession_ResetOfStaticBlockDoesNothing(t *testing.T) {
	h := newHarness(t, 1280)
	h.s.Drain()

	require.NoError(t, h.s.Dispatch(Event{Type: EventClick, Action: annotate.ActionReset, Block: "block-1"}))
	assert.Empty(t, h.s.Drain())
}

func TestSession_KeyboardNavigation(t *testing.T) {
	h := newHarness(t, 1280)
	h.s.Drain()

	require.NoError(t, h.s.Dispatch(Event{Type: EventKeyDown, Key: "ArrowRight"}))
	require.NoError(t, h.s.Dispatch(Event{Type: EventKeyDown, Key: "ArrowLeft", CtrlKey: true}))

	patches := h.s.Drain()
	require.Len(t, patches, 1)
	assert.Equal(t, view.Patch{Op: view.OpNavigate, Href: "ch03.html"}, patches[0])
}

func TestSession_SwipeRevealsSidebar(t *testing.T) {
	h := newHarness(t, 600)
	require.Equal(t, model.SidebarHidden, h.s.Sidebar())

	require.NoError(t, h.s.Dispatch(Event{Type: EventTouchStart, X: 20, TimeStamp: 1000}))
	require.NoError(t, h.s.Dispatch(Event{Type: EventTouchMove, X: 200, TimeStamp: 1100}))

	assert.Equal(t, model.SidebarVisible, h.s.Sidebar())

	require.NoError(t, h.s.Dispatch(Event{Type: EventTouchStart, X: 400, TimeStamp: 2000}))
	require.NoError(t, h.s.Dispatch(Event{Type: EventTouchMove, X: 100, TimeStamp: 2100}))

	assert.Equal(t, model.SidebarHidden, h.s.Sidebar())
}

func TestSession_SidebarToggleClick(t *testing.T) {
	h := newHarness(t, 1280)

	require.NoError(t, h.s.Dispatch(Event{Type: EventClick, Action: ActionSidebarToggle}))

	assert.Equal(t, model.SidebarHidden, h.s.Sidebar())
	v, err := h.prefs.Get(context.Background(), "viewer-1", model.PreferenceSidebar, 1280)
	require.NoError(t, err)
	assert.Equal(t, model.SidebarHidden, v)
}

func TestSession_UnknownEvent(t *testing.T) {
	h := newHarness(t, 1280)

	err := h.s.Dispatch(Event{Type: "scroll"})

	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestSession_EventsAfterCloseAreIgnored(t *testing.T) {
	h := newHarness(t, 1280)
	h.s.Close()
	h.s.Drain()

	require.NoError(t, h.s.Dispatch(Event{Type: EventKeyDown, Key: "ArrowRight"}))

	assert.Empty(t, h.s.Drain())
}
