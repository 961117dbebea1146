// Package editor drives optional in-page editors for code blocks.
//
// Whether editing exists at all is decided once at startup through a
// Capability. Editors live in a registry owned by one Bridge, indexed by
// block id and torn down with Close; nothing is global.
package editor

import (
	"github.com/sakif/docrunner/internal/model"
	"github.com/sakif/docrunner/internal/view"
)

// Editor palettes matching the page themes.
const (
	PaletteLight = "dawn"
	PaletteDark  = "tomorrow_night"
)

// PaletteFor returns the editor palette that matches a page theme.
func PaletteFor(theme string) string {
	if model.IsDarkTheme(theme) {
		return PaletteDark
	}
	return PaletteLight
}

// Capability describes the editing support of the hosting page.
type Capability struct {
	EditingAvailable bool `yaml:"editing_available" koanf:"editing_available"`
}

// ChangeFunc is called with the block's new text after every edit.
type ChangeFunc func(text string)

type instance struct {
	original  string
	text      string
	callbacks []ChangeFunc
}

func (i *instance) dirty() bool {
	return i.text != i.original
}

// Bridge routes read, write and reset operations to the editor of a block
// when one exists, and falls back to the block's static text otherwise.
//
// A Bridge is owned by one page session and is not safe for concurrent use.
type Bridge struct {
	capability Capability
	emit       view.Emitter
	editors    map[string]*instance
}

func NewBridge(capability Capability, emit view.Emitter) *Bridge {
	return &Bridge{
		capability: capability,
		emit:       emit,
		editors:    make(map[string]*instance),
	}
}

// Available reports whether the page has an editing capability.
func (b *Bridge) Available() bool {
	return b.capability.EditingAvailable
}

// Register creates an editor for an editable block. It does nothing when
// editing is unavailable, the block is not editable, or it is already
// registered.
func (b *Bridge) Register(block *model.CodeBlock) {
	if !b.capability.EditingAvailable || !block.Flags.Editable {
		return
	}
	if _, ok := b.editors[block.ID]; ok {
		return
	}
	text := block.Text()
	b.editors[block.ID] = &instance{original: text, text: text}
}

func (b *Bridge) IsEditable(block *model.CodeBlock) bool {
	_, ok := b.editors[block.ID]
	return ok
}

// Read returns the current text of a block: the editor's buffer when the
// block is edited in place, the static text otherwise.
func (b *Bridge) Read(block *model.CodeBlock) string {
	if ed, ok := b.editors[block.ID]; ok {
		return ed.text
	}
	return block.Text()
}

// Dirty reports whether the block's editor holds unsaved changes.
func (b *Bridge) Dirty(block *model.CodeBlock) bool {
	ed, ok := b.editors[block.ID]
	return ok && ed.dirty()
}

// OnChange registers fn to run after every edit of block, in registration
// order.
func (b *Bridge) OnChange(block *model.CodeBlock, fn ChangeFunc) {
	if ed, ok := b.editors[block.ID]; ok {
		ed.callbacks = append(ed.callbacks, fn)
	}
}

// Edit applies a user edit reported by the browser. It returns false when the
// block has no editor.
func (b *Bridge) Edit(blockID, text string) bool {
	ed, ok := b.editors[blockID]
	if !ok {
		return false
	}
	ed.text = text
	b.emit.Emit(view.Patch{Op: view.OpResetButton, Block: blockID, Visible: view.Bool(ed.dirty())})
	b.notify(ed)
	return true
}

// Reset restores the block's original text and clears the dirty indicator.
func (b *Bridge) Reset(block *model.CodeBlock) {
	ed, ok := b.editors[block.ID]
	if !ok {
		return
	}
	ed.text = ed.original
	b.emit.Emit(view.Patch{Op: view.OpEditorText, Block: block.ID, Text: ed.text})
	b.emit.Emit(view.Patch{Op: view.OpResetButton, Block: block.ID, Visible: view.Bool(false)})
	b.notify(ed)
}

// SetTheme re-themes every registered editor to the palette of theme.
func (b *Bridge) SetTheme(theme string) {
	if len(b.editors) == 0 {
		return
	}
	b.emit.Emit(view.Patch{Op: view.OpEditorTheme, Value: PaletteFor(theme)})
}

// Close drops every registered editor.
func (b *Bridge) Close() {
	clear(b.editors)
}

func (b *Bridge) notify(ed *instance) {
	for _, fn := range ed.callbacks {
		fn(ed.text)
	}
}
