// Package cmdexec makes the platform actually perform copy, cut and
// paste when a direct request may be silently ignored.
//
// Strategies run in escalation order and each one only when the previous
// left the session serial unchanged:
//
//  1. the platform command, directly
//  2. the command again, on a transient invisible surface holding a
//     selection (the surface is always removed)
//  3. paste only: the hooks of an embedding wrapper
//  4. a grace window, after which a still unchanged serial means the
//     command was not executed and the user gets a help advisory
//
// The executor never bumps the serial; the clipboard handlers the
// platform calls back into do.
package cmdexec

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hazyhaar/clipbridge/backend"
	"github.com/hazyhaar/clipbridge/clock"
	"github.com/hazyhaar/clipbridge/platform"
	"github.com/hazyhaar/clipbridge/selection"
	"github.com/hazyhaar/clipbridge/ui"
)

// DefaultGraceWindow is how long a host bridge gets to deliver.
const DefaultGraceWindow = 150 * time.Millisecond

// Strategy names the step that changed the serial.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyDirect
	StrategySurface
	StrategyDeferred
)

func (s Strategy) String() string {
	switch s {
	case StrategyDirect:
		return "direct"
	case StrategySurface:
		return "surface"
	case StrategyDeferred:
		return "deferred"
	default:
		return "none"
	}
}

// Result of one Execute. Executed is false when the platform ignored
// every strategy.
type Result struct {
	Op       platform.Op
	Executed bool
	Strategy Strategy
}

// Config configures an Executor.
type Config struct {
	Capabilities platform.Capabilities
	Serial       *selection.Serial
	Clock        clock.Clock
	GraceWindow  time.Duration
	Notifier     ui.Notifier
	// OnPaste runs when a paste is confirmed after the grace window.
	OnPaste func()
	Logger  *slog.Logger
}

// Executor runs the escalation for one session.
type Executor struct {
	caps     platform.Capabilities
	serial   *selection.Serial
	clock    clock.Clock
	grace    time.Duration
	notifier ui.Notifier
	onPaste  func()
	logger   *slog.Logger
}

// New creates an Executor. cfg.Serial is required.
func New(cfg Config) *Executor {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.GraceWindow <= 0 {
		cfg.GraceWindow = DefaultGraceWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = ui.LogNotifier{Logger: cfg.Logger}
	}
	return &Executor{
		caps:     cfg.Capabilities,
		serial:   cfg.Serial,
		clock:    cfg.Clock,
		grace:    cfg.GraceWindow,
		notifier: cfg.Notifier,
		onPaste:  cfg.OnPaste,
		logger:   cfg.Logger,
	}
}

// Capabilities returns the capability set the executor runs with.
func (e *Executor) Capabilities() platform.Capabilities { return e.caps }

// Execute runs the escalation for op and blocks until it is settled,
// at most for the grace window.
func (e *Executor) Execute(ctx context.Context, op platform.Op) Result {
	serial := e.serial.Value()
	logger := e.logger.With("op", string(op), "serial", serial)

	// The serial decides, not what the command reports: a handler may run
	// even when the platform answers false or fails.
	accepted := e.direct(ctx, logger, op)
	if e.serial.Changed(serial) {
		logger.DebugContext(ctx, "cmdexec: executed directly", "accepted", accepted)
		return Result{Op: op, Executed: true, Strategy: StrategyDirect}
	}

	accepted = e.onSurface(ctx, logger, op)
	if e.serial.Changed(serial) {
		logger.DebugContext(ctx, "cmdexec: executed on surface", "accepted", accepted)
		return Result{Op: op, Executed: true, Strategy: StrategySurface}
	}

	if op == platform.OpPaste {
		e.askHost(ctx, logger)
	}

	done := make(chan Result, 1)
	t := e.clock.AfterFunc(e.grace, func() {
		done <- e.settle(ctx, logger, op, serial)
	})
	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		t.Stop()
		logger.DebugContext(ctx, "cmdexec: cancelled during grace window", "error", ctx.Err())
		return Result{Op: op}
	}
}

// FilterCommand intercepts the UNO clipboard commands coming from menus
// and key bindings and runs them through Execute instead. It reports
// whether cmd was one of them.
func (e *Executor) FilterCommand(ctx context.Context, cmd string) bool {
	var op platform.Op
	switch cmd {
	case backend.UnoCopy:
		op = platform.OpCopy
	case backend.UnoCut:
		op = platform.OpCut
	case backend.UnoPaste:
		op = platform.OpPaste
	default:
		return false
	}
	e.logger.DebugContext(ctx, "cmdexec: filtered uno command", "cmd", cmd)
	go e.Execute(context.WithoutCancel(ctx), op)
	return true
}

func (e *Executor) direct(ctx context.Context, logger *slog.Logger, op platform.Op) bool {
	if e.caps.Commander == nil {
		return false
	}
	ok, err := e.caps.Commander.ExecCommand(ctx, op)
	if err != nil {
		logger.WarnContext(ctx, "cmdexec: direct command failed", "error", err)
		return false
	}
	return ok
}

func (e *Executor) onSurface(ctx context.Context, logger *slog.Logger, op platform.Op) bool {
	if e.caps.Surfaces == nil {
		return false
	}
	surf, err := e.caps.Surfaces.CreateSurface(ctx, platform.SurfaceHTML)
	if err != nil {
		logger.WarnContext(ctx, "cmdexec: create surface failed", "error", err)
		return false
	}
	defer func() {
		if err := surf.Remove(ctx); err != nil {
			logger.WarnContext(ctx, "cmdexec: remove surface failed", "error", err)
		}
	}()

	if err := surf.SelectContents(ctx); err != nil {
		logger.WarnContext(ctx, "cmdexec: failed to select, cannot copy/paste", "error", err)
	}
	ok, err := surf.ExecCommand(ctx, op)
	if err != nil {
		logger.WarnContext(ctx, "cmdexec: surface command failed", "error", err)
		return false
	}
	logger.DebugContext(ctx, "cmdexec: surface command", "accepted", ok)
	return ok
}

// askHost delegates paste to whichever wrapper hooks are present.
func (e *Executor) askHost(ctx context.Context, logger *slog.Logger) {
	if b := e.caps.Bridge; b != nil {
		hookResult(ctx, logger, "message handler", b.PostMessage(ctx, platform.OpPaste))
	} else {
		logger.DebugContext(ctx, "cmdexec: no message handler")
	}
	if p := e.caps.Paster; p != nil {
		hookResult(ctx, logger, "direct paste", p.Paste(ctx))
	} else {
		logger.DebugContext(ctx, "cmdexec: no direct paste hook")
	}
}

func hookResult(ctx context.Context, logger *slog.Logger, hook string, err error) {
	switch {
	case err == nil:
		logger.DebugContext(ctx, "cmdexec: host hook called", "hook", hook)
	case errors.Is(err, platform.ErrNoHook):
		logger.DebugContext(ctx, "cmdexec: host hook absent", "hook", hook)
	default:
		logger.WarnContext(ctx, "cmdexec: cannot access host hook", "hook", hook, "error", err)
	}
}

func (e *Executor) settle(ctx context.Context, logger *slog.Logger, op platform.Op, serial uint64) Result {
	if e.serial.Changed(serial) {
		logger.DebugContext(ctx, "cmdexec: successful after grace window")
		if op == platform.OpPaste && e.onPaste != nil {
			e.onPaste()
		}
		return Result{Op: op, Executed: true, Strategy: StrategyDeferred}
	}

	logger.InfoContext(ctx, "cmdexec: help did not arrive")
	msg := ui.MsgHelpShortcuts
	if e.caps.Mobile {
		msg = ui.MsgHelpOnScreenKeyboard
	}
	e.notifier.Alert(ctx, msg)
	return Result{Op: op}
}
