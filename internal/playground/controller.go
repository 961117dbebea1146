// Package playground implements the "run this code" workflow of a page:
// dependency gating of the run control, remote execution and result display.
package playground

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sakif/docrunner/internal/apperror"
	"github.com/sakif/docrunner/internal/editor"
	"github.com/sakif/docrunner/internal/executor"
	"github.com/sakif/docrunner/internal/model"
	"github.com/sakif/docrunner/internal/view"
)

// Result area messages.
const (
	MsgRunning            = "Running..."
	MsgTimeout            = "Playground communication timeout"
	MsgCommunicationError = "Playground communication error: "
)

// Loop runs work on behalf of a page without blocking it.
type Loop interface {
	// Async runs work in the background and then runs the completion it
	// returns on the page's single logical thread.
	Async(work func() (completion func()))
}

type event int

const (
	evStart event = iota
	evSucceeded
	evFailed
	evTimedOut
)

// transitions is the execution state machine of one block. Terminal states
// accept a new start: a finished run returns the block to idle behaviour.
var transitions = map[model.RunState]map[event]model.RunState{
	model.RunIdle:      {evStart: model.RunRunning},
	model.RunSucceeded: {evStart: model.RunRunning},
	model.RunFailed:    {evStart: model.RunRunning},
	model.RunTimedOut:  {evStart: model.RunRunning},
	model.RunRunning: {
		evSucceeded: model.RunSucceeded,
		evFailed:    model.RunFailed,
		evTimedOut:  model.RunTimedOut,
	},
}

type entry struct {
	block    *model.CodeBlock
	state    model.RunState
	runnable bool
	result   string
}

// Config holds controller settings.
type Config struct {
	// Timeout bounds the wait for an execution result.
	Timeout time.Duration
}

// Controller owns the execution state of every playground block of a page.
// All methods must be called from the page's logical thread.
type Controller struct {
	svc     executor.Service
	editors *editor.Bridge
	loop    Loop
	emit    view.Emitter
	logger  *slog.Logger
	timeout time.Duration

	manifest  *model.DependencyManifest
	requested bool
	entries   map[string]*entry
	order     []string
}

func NewController(cfg Config, svc executor.Service, editors *editor.Bridge, loop Loop, emit view.Emitter, logger *slog.Logger) *Controller {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = executor.DefaultTimeout
	}
	return &Controller{
		svc:     svc,
		editors: editors,
		loop:    loop,
		emit:    emit,
		logger:  logger,
		timeout: timeout,
		entries: make(map[string]*entry),
	}
}

// Setup registers the page's playground blocks, hides their run controls and
// requests the dependency manifest. The manifest is requested once per
// controller; later calls only register new blocks.
func (c *Controller) Setup(ctx context.Context, blocks []*model.CodeBlock) {
	for _, b := range blocks {
		if !b.Flags.Playground {
			continue
		}
		if _, ok := c.entries[b.ID]; ok {
			continue
		}
		e := &entry{block: b, state: model.RunIdle}
		c.entries[b.ID] = e
		c.order = append(c.order, b.ID)

		c.editors.OnChange(b, func(text string) { c.gate(e, text) })
		c.gate(e, c.editors.Read(b))
	}

	if c.requested {
		return
	}
	c.requested = true
	c.loop.Async(func() func() {
		manifest, err := c.svc.Crates(ctx)
		return func() {
			if err != nil {
				c.logger.Warn("dependency manifest unavailable; run controls stay hidden",
					slog.String("error", err.Error()))
				return
			}
			c.SetManifest(manifest)
		}
	})
}

// SetManifest installs the dependency manifest and re-evaluates every block.
// The first manifest wins; later ones are ignored.
func (c *Controller) SetManifest(m model.DependencyManifest) {
	if c.manifest != nil {
		return
	}
	c.manifest = &m
	c.logger.Debug("dependency manifest installed", slog.Int("crates", m.Len()))
	for _, id := range c.order {
		e := c.entries[id]
		c.gate(e, c.editors.Read(e.block))
	}
}

// Runnable reports whether the run control of a block is shown.
func (c *Controller) Runnable(blockID string) bool {
	e, ok := c.entries[blockID]
	return ok && e.runnable
}

// State returns the execution state of a block.
func (c *Controller) State(blockID string) model.RunState {
	if e, ok := c.entries[blockID]; ok {
		return e.state
	}
	return model.RunIdle
}

// Result returns the text currently shown in a block's result area.
func (c *Controller) Result(blockID string) string {
	if e, ok := c.entries[blockID]; ok {
		return e.result
	}
	return ""
}

// Run executes the current code of a block. While a request is pending the
// run control is disabled and Run returns a conflict error without sending
// anything.
func (c *Controller) Run(ctx context.Context, blockID string) error {
	e, ok := c.entries[blockID]
	if !ok {
		return apperror.NotFound("playground block", blockID)
	}
	if !e.runnable {
		return apperror.ValidationFailed("block", "block "+blockID+" cannot be run")
	}
	if e.state.Pending() {
		return apperror.Conflict("execution", blockID)
	}

	req := BuildRequest(c.editors.Read(e.block))
	c.transition(e, evStart, MsgRunning)
	c.logger.Info("executing code block",
		slog.String("block", blockID),
		slog.String("channel", req.Channel))

	c.loop.Async(func() func() {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		res, err := c.svc.Execute(ctx, req)
		return func() { c.complete(e, res, err) }
	})
	return nil
}

func (c *Controller) complete(e *entry, res *model.ExecutionResult, err error) {
	switch {
	case err != nil && isTimeout(err):
		c.logger.Warn("execution timed out", slog.String("block", e.block.ID))
		c.transition(e, evTimedOut, MsgTimeout)
	case err != nil:
		category := apperror.Category(err)
		if category == "" {
			category = "network"
		}
		c.logger.Warn("execution failed to reach the playground",
			slog.String("block", e.block.ID),
			slog.String("error", err.Error()))
		c.transition(e, evFailed, MsgCommunicationError+category)
	case res.Success:
		c.transition(e, evSucceeded, res.Output())
	default:
		c.transition(e, evFailed, res.Output())
	}
}

// transition is the single dispatch point of the execution state machine: it
// moves the block to its next state and renders that state.
func (c *Controller) transition(e *entry, ev event, text string) bool {
	next, ok := transitions[e.state][ev]
	if !ok {
		c.logger.Warn("ignored execution event",
			slog.String("block", e.block.ID),
			slog.String("state", string(e.state)),
			slog.Int("event", int(ev)))
		return false
	}
	e.state = next
	e.result = text

	c.emit.Emit(view.Patch{Op: view.OpResult, Block: e.block.ID, Text: text, Value: string(next)})
	c.emitControl(e)
	return true
}

func (c *Controller) gate(e *entry, code string) {
	e.runnable = Runnable(e.block.Flags, code, c.manifest)
	c.emitControl(e)
}

func (c *Controller) emitControl(e *entry) {
	c.emit.Emit(view.Patch{
		Op:      view.OpRunControl,
		Block:   e.block.ID,
		Visible: view.Bool(e.runnable),
		Enabled: view.Bool(!e.state.Pending()),
	})
}

func isTimeout(err error) bool {
	return errors.Is(err, apperror.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
