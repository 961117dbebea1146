package page

import (
	"time"

	"github.com/sakif/docrunner/internal/navigation"
)

// Event types sent by the browser.
const (
	EventKeyDown    = "keydown"
	EventTouchStart = "touchstart"
	EventTouchMove  = "touchmove"
	EventTouchEnd   = "touchend"
	EventClick      = "click"
	EventEdit       = "edit"
	EventCopied     = "copied"
	EventResize     = "resize"
)

// Click actions that are not block controls.
const (
	ActionMenuToggle    = "menu-toggle"
	ActionTheme         = "theme"
	ActionSidebarToggle = "sidebar-toggle"
)

// Event is one input event forwarded by the browser.
type Event struct {
	Type string `json:"type"`

	// click: the data-action of the clicked control ("" for anything else)
	// and its data-block / value.
	Action string `json:"action,omitempty"`
	Block  string `json:"block,omitempty"`
	Value  string `json:"value,omitempty"`

	// keydown
	Key      string `json:"key,omitempty"`
	AltKey   bool   `json:"altKey,omitempty"`
	CtrlKey  bool   `json:"ctrlKey,omitempty"`
	ShiftKey bool   `json:"shiftKey,omitempty"`
	MetaKey  bool   `json:"metaKey,omitempty"`
	InEditor bool   `json:"inEditor,omitempty"`

	// touch*: client coordinates and the event timestamp in milliseconds.
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	TimeStamp float64 `json:"timeStamp,omitempty"`

	// edit: the editor's new text; copied: whether the write succeeded.
	Text string `json:"text,omitempty"`
	OK   bool   `json:"ok,omitempty"`

	// resize and the first event of a session: viewport width.
	Width int `json:"width,omitempty"`
}

func (e Event) key() navigation.Key {
	return navigation.Key{
		Key:      e.Key,
		Alt:      e.AltKey,
		Ctrl:     e.CtrlKey,
		Shift:    e.ShiftKey,
		Meta:     e.MetaKey,
		InEditor: e.InEditor,
	}
}

func (e Event) point() navigation.Point {
	return navigation.Point{
		X: e.X,
		Y: e.Y,
		T: time.Duration(e.TimeStamp * float64(time.Millisecond)),
	}
}
