package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/docrunner/internal/model"
	"github.com/sakif/docrunner/internal/view"
)

func editableBlock() *model.CodeBlock {
	return &model.CodeBlock{
		ID:    "block-0",
		Flags: model.BlockFlags{Playground: true, Editable: true},
		Lines: []model.Line{{Text: "use std::io;", Hidden: true}, {Text: "fn main() {}"}},
	}
}

func TestBridge_WithoutCapabilityIsInert(t *testing.T) {
	rec := &view.Recorder{}
	b := NewBridge(Capability{}, rec)
	block := editableBlock()

	b.Register(block)
	called := false
	b.OnChange(block, func(string) { called = true })
	b.Reset(block)
	b.SetTheme(model.ThemeCoal)

	assert.False(t, b.IsEditable(block))
	assert.Equal(t, "use std::io;\nfn main() {}", b.Read(block))
	assert.False(t, b.Edit(block.ID, "changed"))
	assert.False(t, called)
	assert.Empty(t, rec.Patches())
}

func TestBridge_NonEditableBlockIsNotRegistered(t *testing.T) {
	b := NewBridge(Capability{EditingAvailable: true}, &view.Recorder{})
	block := editableBlock()
	block.Flags.Editable = false

	b.Register(block)

	assert.False(t, b.IsEditable(block))
}

func TestBridge_EditNotifiesInOrder(t *testing.T) {
	rec := &view.Recorder{}
	b := NewBridge(Capability{EditingAvailable: true}, rec)
	block := editableBlock()
	b.Register(block)

	var seen []string
	b.OnChange(block, func(text string) { seen = append(seen, "first:"+text) })
	b.OnChange(block, func(text string) { seen = append(seen, "second:"+text) })

	require.True(t, b.Edit(block.ID, "a"))
	require.True(t, b.Edit(block.ID, "b"))

	assert.Equal(t, []string{"first:a", "second:a", "first:b", "second:b"}, seen)
	assert.Equal(t, "b", b.Read(block))
	assert.True(t, b.Dirty(block))

	p, ok := rec.Last(view.OpResetButton, block.ID)
	require.True(t, ok)
	assert.True(t, *p.Visible)
}

func TestBridge_ResetRestoresOriginal(t *testing.T) {
	rec := &view.Recorder{}
	b := NewBridge(Capability{EditingAvailable: true}, rec)
	block := editableBlock()
	b.Register(block)

	var last string
	b.OnChange(block, func(text string) { last = text })
	b.Edit(block.ID, "fn main() { panic!() }")

	b.Reset(block)

	assert.Equal(t, block.Text(), b.Read(block))
	assert.Equal(t, block.Text(), last)
	assert.False(t, b.Dirty(block))

	text, ok := rec.Last(view.OpEditorText, block.ID)
	require.True(t, ok)
	assert.Equal(t, block.Text(), text.Text)
	reset, ok := rec.Last(view.OpResetButton, block.ID)
	require.True(t, ok)
	assert.False(t, *reset.Visible)
}

func TestBridge_EditBackToOriginalIsClean(t *testing.T) {
	b := NewBridge(Capability{EditingAvailable: true}, &view.Recorder{})
	block := editableBlock()
	b.Register(block)

	b.Edit(block.ID, "x")
	b.Edit(block.ID, block.Text())

	assert.False(t, b.Dirty(block))
}

func TestBridge_SetThemeAndClose(t *testing.T) {
	rec := &view.Recorder{}
	b := NewBridge(Capability{EditingAvailable: true}, rec)
	block := editableBlock()
	b.Register(block)

	b.SetTheme(model.ThemeNavy)
	b.SetTheme(model.ThemeRust)

	patches := rec.Drain()
	require.Len(t, patches, 2)
	assert.Equal(t, PaletteDark, patches[0].Value)
	assert.Equal(t, PaletteLight, patches[1].Value)

	b.Close()
	assert.False(t, b.IsEditable(block))
	b.SetTheme(model.ThemeAyu)
	assert.Empty(t, rec.Patches())
}
