// Package clipboard wires the clipboard handling of one editing session:
// the selection tracker, the relay orchestrator, the command executor
// and the backend channel.
//
// The host calls Copy, Cut and Paste from its native clipboard events,
// Execute or FilterCommand from menus and key bindings, and the On*
// methods when the backend reports selection changes. None of these
// return errors: failures are logged and end in a degraded paste or a
// user advisory.
package clipboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/clipbridge/backend"
	"github.com/hazyhaar/clipbridge/clock"
	"github.com/hazyhaar/clipbridge/cmdexec"
	"github.com/hazyhaar/clipbridge/envelope"
	"github.com/hazyhaar/clipbridge/kit"
	"github.com/hazyhaar/clipbridge/origin"
	"github.com/hazyhaar/clipbridge/platform"
	"github.com/hazyhaar/clipbridge/relay"
	"github.com/hazyhaar/clipbridge/selection"
	"github.com/hazyhaar/clipbridge/transfer"
	"github.com/hazyhaar/clipbridge/ui"
)

// Config configures a Session. Backend is required; everything else
// has a headless default.
type Config struct {
	// Identity of the session view. Its Tag is managed through SetKey.
	Identity    origin.Identity
	ProductName string

	Backend      backend.Backend
	Capabilities platform.Capabilities
	Document     selection.Document
	Editor       ui.Editor
	Progress     ui.DownloadProgress
	Notifier     ui.Notifier
	Renderer     selection.TextRenderer

	// Transfer options, used when Client is nil.
	Client      *transfer.Client
	Timeout     time.Duration
	MaxResponse int64

	HideDelay   time.Duration
	GraceWindow time.Duration
	Clock       clock.Clock
	Logger      *slog.Logger
}

// Session is the clipboard state and behaviour of one editing session.
type Session struct {
	tracker *selection.Tracker
	relay   *relay.Orchestrator
	exec    *cmdexec.Executor
	backend backend.Backend
	editor  ui.Editor
	logger  *slog.Logger
}

// New creates a Session.
func New(cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Progress == nil {
		cfg.Progress = ui.NopProgress{}
	}
	if cfg.Notifier == nil {
		cfg.Notifier = ui.LogNotifier{Logger: cfg.Logger, ProductName: cfg.ProductName}
	}
	if cfg.Editor == nil {
		cfg.Editor = ui.NopEditor{}
	}
	logger := cfg.Logger.With("doc", cfg.Identity.DocID, "view", cfg.Identity.ViewID)

	tracker := selection.NewTracker(selection.Config{
		Identity:    cfg.Identity,
		ProductName: cfg.ProductName,
		HideDelay:   cfg.HideDelay,
		Renderer:    cfg.Renderer,
		Document:    cfg.Document,
		Progress:    cfg.Progress,
		Notifier:    cfg.Notifier,
		Clock:       cfg.Clock,
		Logger:      logger,
	})

	client := cfg.Client
	if client == nil {
		opts := []transfer.Option{
			transfer.WithProgress(cfg.Progress),
			transfer.WithLogger(logger),
		}
		if cfg.Timeout > 0 {
			opts = append(opts, transfer.WithTimeout(cfg.Timeout))
		}
		if cfg.MaxResponse > 0 {
			opts = append(opts, transfer.WithMaxResponse(cfg.MaxResponse))
		}
		client = transfer.New(opts...)
	}

	return &Session{
		tracker: tracker,
		relay: relay.New(tracker, client, cfg.Backend,
			relay.WithNotifier(cfg.Notifier),
			relay.WithEditor(cfg.Editor),
			relay.WithLogger(logger),
		),
		exec: cmdexec.New(cmdexec.Config{
			Capabilities: cfg.Capabilities,
			Serial:       tracker.Serial(),
			Clock:        cfg.Clock,
			GraceWindow:  cfg.GraceWindow,
			Notifier:     cfg.Notifier,
			OnPaste:      tracker.StopHideDownload,
			Logger:       logger,
		}),
		backend: cfg.Backend,
		editor:  cfg.Editor,
		logger:  logger,
	}
}

// Tracker exposes the selection state.
func (s *Session) Tracker() *selection.Tracker { return s.tracker }

// SetKey rotates the access key of the paste target.
func (s *Session) SetKey(key string) { s.tracker.SetKey(key) }

// Copy fills w with the current selection and asks the backend to copy.
// It reports whether w accepted the data.
func (s *Session) Copy(ctx context.Context, w selection.ClipboardWriter) bool {
	return s.copyOrCut(kit.WithOperation(ctx, "copy"), w, backend.CmdCopy)
}

// Cut is Copy followed by the backend removing the selection.
func (s *Session) Cut(ctx context.Context, w selection.ClipboardWriter) bool {
	return s.copyOrCut(kit.WithOperation(ctx, "cut"), w, backend.CmdCut)
}

func (s *Session) copyOrCut(ctx context.Context, w selection.ClipboardWriter, cmd string) bool {
	logger := kit.Logger(ctx, s.logger)
	ok := true
	if err := s.tracker.PopulateOutgoing(ctx, w); err != nil {
		logger.WarnContext(ctx, "clipboard: populate failed", "error", err)
		ok = false
	}
	if err := s.backend.SendMessage(ctx, cmd); err != nil {
		logger.WarnContext(ctx, "clipboard: backend command failed", "cmd", cmd, "error", err)
	}
	return ok
}

// PasteEvent is what a native paste event carries.
type PasteEvent struct {
	// HTML is the text/html payload, read before anything else.
	HTML  string
	Data  envelope.Source
	Files []relay.File

	// UsePasteKeyEvent pastes into a dialog.
	UsePasteKeyEvent bool
}

// Paste handles a native paste event to completion.
func (s *Session) Paste(ctx context.Context, ev PasteEvent) relay.Outcome {
	ctx = kit.WithOperation(ctx, "paste")
	req := s.beginPaste(ev)
	out := s.relay.Paste(ctx, req)
	kit.Logger(ctx, s.logger).DebugContext(ctx, "clipboard: paste done", "outcome", out.String(), "serial", req.Generation)
	return out
}

// PasteAsync starts Paste in the background. done, which may be nil,
// receives the outcome. A later clipboard operation supersedes it.
func (s *Session) PasteAsync(ctx context.Context, ev PasteEvent, done func(relay.Outcome)) {
	ctx = kit.WithOperation(ctx, "paste")
	s.relay.PasteAsync(ctx, s.beginPaste(ev), done)
}

// beginPaste counts the paste and captures its generation.
func (s *Session) beginPaste(ev PasteEvent) relay.Request {
	gen := s.tracker.Serial().Bump()
	s.editor.AbortComposition()
	s.tracker.StopHideDownload()
	return relay.Request{
		Generation:       gen,
		HTML:             ev.HTML,
		Data:             ev.Data,
		Files:            ev.Files,
		PreferInternal:   true,
		UsePasteKeyEvent: ev.UsePasteKeyEvent,
	}
}

// LegacyPaste handles a paste whose HTML could only be read back from a
// scratch element. Internal short-circuit is not attempted.
func (s *Session) LegacyPaste(ctx context.Context, html string) relay.Outcome {
	ctx = kit.WithOperation(ctx, "legacy_paste")
	gen := s.tracker.Serial().Bump()
	out := s.relay.Paste(ctx, relay.Request{Generation: gen, HTML: html})
	s.editor.Focus()
	s.editor.AbortComposition()
	return out
}

// Execute makes the platform perform op.
func (s *Session) Execute(ctx context.Context, op platform.Op) cmdexec.Result {
	return s.exec.Execute(kit.WithOperation(ctx, string(op)), op)
}

// FilterCommand intercepts .uno:Copy, .uno:Cut and .uno:Paste.
func (s *Session) FilterCommand(ctx context.Context, cmd string) bool {
	return s.exec.FilterCommand(ctx, cmd)
}

// OnTextSelection records a plain-text selection from the backend.
func (s *Session) OnTextSelection(text string) { s.tracker.RecordSelection(text) }

// OnComplexSelection records a selection the backend cannot inline.
func (s *Session) OnComplexSelection() { s.tracker.RecordComplexSelection() }

// OnClearSelection forgets the selection.
func (s *Session) OnClearSelection() { s.tracker.Clear() }

// OnKey records a new access key.
func (s *Session) OnKey(key string) { s.tracker.SetKey(key) }

// OnExternalUpdate counts a clipboard change made outside the session
// handlers.
func (s *Session) OnExternalUpdate() { s.tracker.ExternalUpdate() }
