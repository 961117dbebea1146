// Package view describes the changes the runtime asks the browser to apply.
//
// Components never touch the page directly. They emit Patches through an
// Emitter; the page session batches them and ships them over the WebSocket.
package view

// Patch operations.
const (
	OpTheme       = "theme"        // Value: theme class, Href: highlight stylesheet
	OpSidebar     = "sidebar"      // Visible
	OpMenu        = "menu"         // Visible
	OpHidden      = "hidden"       // Block, Visible: hidden lines expanded
	OpRunControl  = "run-control"  // Block, Visible, Enabled
	OpResult      = "result"       // Block, Text, Value: run state
	OpCopy        = "copy"         // Block, Text: write to the clipboard
	OpCopyAck     = "copy-ack"     // Block, Text ("" clears)
	OpEditorTheme = "editor-theme" // Value: editor palette
	OpEditorText  = "editor-text"  // Block, Text
	OpResetButton = "reset"        // Block, Visible
	OpNavigate    = "navigate"     // Href
)

// Patch is one change to apply to the rendered page.
type Patch struct {
	Op      string `json:"op"`
	Block   string `json:"block,omitempty"`
	Visible *bool  `json:"visible,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`
	Text    string `json:"text,omitempty"`
	Value   string `json:"value,omitempty"`
	Href    string `json:"href,omitempty"`
}

// Bool returns a pointer to b for the optional Patch fields.
func Bool(b bool) *bool {
	return &b
}

// Emitter receives patches.
type Emitter interface {
	Emit(p Patch)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Patch)

func (f EmitterFunc) Emit(p Patch) { f(p) }

// Recorder collects patches in emission order.
type Recorder struct {
	patches []Patch
}

func (r *Recorder) Emit(p Patch) {
	r.patches = append(r.patches, p)
}

// Drain returns the collected patches and resets the recorder.
func (r *Recorder) Drain() []Patch {
	out := r.patches
	r.patches = nil
	return out
}

// Patches returns the collected patches without resetting.
func (r *Recorder) Patches() []Patch {
	return r.patches
}

// Last returns the most recent patch with the given op and block, if any.
func (r *Recorder) Last(op, block string) (Patch, bool) {
	for i := len(r.patches) - 1; i >= 0; i-- {
		p := r.patches[i]
		if p.Op == op && p.Block == block {
			return p, true
		}
	}
	return Patch{}, false
}
