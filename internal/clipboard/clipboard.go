// Package clipboard copies code samples to the viewer's clipboard and shows a
// short acknowledgment next to the copy control.
package clipboard

import (
	"time"

	"github.com/sakif/docrunner/internal/model"
	"github.com/sakif/docrunner/internal/view"
)

// Acknowledgment texts.
const (
	MsgCopied = "Copied!"
	MsgFailed = "Clipboard error!"
)

// AckDuration is how long an acknowledgment stays on screen.
const AckDuration = time.Second

// Scheduler runs fn on the page's logical thread after d.
type Scheduler interface {
	After(d time.Duration, fn func())
}

// TextSource returns the current text of a block.
type TextSource interface {
	Read(block *model.CodeBlock) string
}

// Adapter asks the browser to write block text to the clipboard and renders
// the browser's report.
type Adapter struct {
	emit   view.Emitter
	source TextSource
	sched  Scheduler
	// generation per block; a newer acknowledgment outlives older timers.
	acks map[string]int
}

func New(emit view.Emitter, source TextSource, sched Scheduler) *Adapter {
	return &Adapter{emit: emit, source: source, sched: sched, acks: make(map[string]int)}
}

// Copy sends the block's full text, hidden lines included.
func (a *Adapter) Copy(block *model.CodeBlock) {
	a.emit.Emit(view.Patch{Op: view.OpCopy, Block: block.ID, Text: a.source.Read(block)})
}

// Report shows the outcome of a copy and clears it after AckDuration.
func (a *Adapter) Report(blockID string, ok bool) {
	msg := MsgCopied
	if !ok {
		msg = MsgFailed
	}
	a.acks[blockID]++
	gen := a.acks[blockID]
	a.emit.Emit(view.Patch{Op: view.OpCopyAck, Block: blockID, Text: msg})

	a.sched.After(AckDuration, func() {
		if a.acks[blockID] != gen {
			return
		}
		delete(a.acks, blockID)
		a.emit.Emit(view.Patch{Op: view.OpCopyAck, Block: blockID})
	})
}
