// Package model defines the data structures shared by the runtime's components.
package model

import "strings"

// BlockFlags is the typed descriptor parsed once from a block's rendering
// classes at discovery time. Components read these fields instead of
// matching class names.
type BlockFlags struct {
	Playground    bool // the block may be sent to the remote execution service
	SkipExecution bool // the run control never appears
	Editable      bool // the block may be driven by an in-page editor
}

// Line is one source line of a code block, with any hidden-line marker already stripped.
type Line struct {
	Text   string
	HTML   string // highlighted rendering of Text; empty until highlighting runs
	Hidden bool
}

// CodeBlock is a rendered sample of source text discovered on a page.
//
// Lines are fixed at discovery; toggling visibility only changes how the
// block is rendered, never the lines themselves.
type CodeBlock struct {
	ID       string     `json:"id"`
	Index    int        `json:"index"`
	Language string     `json:"language"`
	Flags    BlockFlags `json:"flags"`
	Lines    []Line     `json:"-"`
}

// HasHidden reports whether any line of the block is hidden.
func (b *CodeBlock) HasHidden() bool {
	for _, l := range b.Lines {
		if l.Hidden {
			return true
		}
	}
	return false
}

// Text returns the full text of the block, hidden lines included. This is the
// text copied to the clipboard and sent for execution.
func (b *CodeBlock) Text() string {
	parts := make([]string, len(b.Lines))
	for i, l := range b.Lines {
		parts[i] = l.Text
	}
	return strings.Join(parts, "\n")
}

// Segment is a run of text that is either always visible or belongs to one
// collapsible hidden unit.
type Segment struct {
	Text   string
	HTML   string
	Hidden bool
}

// Segments groups the block's lines into visible runs and hidden units.
//
// Contiguous hidden lines form one unit, and each unit carries the newline
// boundary next to it so that collapsing it does not shift the visible lines.
// A unit that ends the block takes the newline that precedes it.
func (b *CodeBlock) Segments() []Segment {
	var segs []Segment
	last := len(b.Lines) - 1
	for i, l := range b.Lines {
		text, html := l.Text, l.HTML
		if html == "" {
			html = escape(l.Text)
		}
		if i < last {
			text += "\n"
			html += "\n"
		}
		if n := len(segs); n > 0 && segs[n-1].Hidden == l.Hidden {
			segs[n-1].Text += text
			segs[n-1].HTML += html
			continue
		}
		segs = append(segs, Segment{Text: text, HTML: html, Hidden: l.Hidden})
	}

	// A trailing hidden unit has no newline of its own; move the one that ends
	// the preceding visible run into it.
	if n := len(segs); n > 1 && segs[n-1].Hidden {
		prev := &segs[n-2]
		if strings.HasSuffix(prev.Text, "\n") {
			prev.Text = strings.TrimSuffix(prev.Text, "\n")
			prev.HTML = strings.TrimSuffix(prev.HTML, "\n")
			segs[n-1].Text = "\n" + segs[n-1].Text
			segs[n-1].HTML = "\n" + segs[n-1].HTML
		}
	}
	return segs
}

var htmlEscaper = strings.NewReplacer(
	`&`, "&amp;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&#34;",
	`'`, "&#39;",
)

func escape(s string) string {
	return htmlEscaper.Replace(s)
}
