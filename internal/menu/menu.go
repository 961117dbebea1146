// Package menu holds the visibility state of the theme selector popup.
package menu

import "github.com/sakif/docrunner/internal/view"

// SelectFunc applies a theme chosen in the menu.
type SelectFunc func(theme string) error

// Popup is a two-state machine, hidden or visible. It starts hidden.
type Popup struct {
	visible  bool
	emit     view.Emitter
	onSelect SelectFunc
}

func NewPopup(emit view.Emitter, onSelect SelectFunc) *Popup {
	return &Popup{emit: emit, onSelect: onSelect}
}

func (p *Popup) Visible() bool {
	return p.visible
}

// Toggle flips the menu.
func (p *Popup) Toggle() {
	p.set(!p.visible)
}

// Select applies a theme and leaves the menu open.
func (p *Popup) Select(theme string) error {
	if p.onSelect == nil {
		return nil
	}
	return p.onSelect(theme)
}

// ClickOutside hides a visible menu.
func (p *Popup) ClickOutside() {
	if p.visible {
		p.set(false)
	}
}

// Escape hides the menu.
func (p *Popup) Escape() {
	if p.visible {
		p.set(false)
	}
}

func (p *Popup) set(visible bool) {
	p.visible = visible
	p.emit.Emit(view.Patch{Op: view.OpMenu, Visible: view.Bool(visible)})
}
