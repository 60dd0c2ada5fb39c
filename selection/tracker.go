// Package selection holds the clipboard state of one editing session: the
// last selection the backend reported, the rotating access keys of the
// paste target, and the operation serial.
//
// The Tracker decides what a copy or cut hands to the native clipboard.
// Simple text selections go out inline; complex or graphical selections
// go out as a stub that carries the origin, so another session can relay
// the real content and an external application is told to download
// first.
package selection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/clipbridge/clock"
	"github.com/hazyhaar/clipbridge/debounce"
	"github.com/hazyhaar/clipbridge/envelope"
	"github.com/hazyhaar/clipbridge/origin"
	"github.com/hazyhaar/clipbridge/ui"
)

// DefaultHideDelay is how long Clear waits for further clipboard activity
// before releasing the download widget.
const DefaultHideDelay = 15 * time.Second

// Document reports viewport state the tracker cannot infer itself.
type Document interface {
	HasGraphicSelection() bool
}

// ClipboardWriter receives the outgoing representations of a copy or cut.
type ClipboardWriter interface {
	SetData(mimeType, data string) error
}

// PlainTextWriter is implemented by writers that only hold text/plain,
// such as the legacy clipboard object.
type PlainTextWriter interface {
	PlainTextOnly() bool
}

// Config configures a Tracker. Identity carries the base, document,
// server and view of the session; its Tag is ignored and taken from the
// access keys instead.
type Config struct {
	Identity    origin.Identity
	ProductName string
	HideDelay   time.Duration
	Renderer    TextRenderer
	Document    Document
	Progress    ui.DownloadProgress
	Notifier    ui.Notifier
	Clock       clock.Clock
	Logger      *slog.Logger
}

// Tracker is the owned clipboard state of one editing session.
type Tracker struct {
	mu          sync.Mutex
	content     string
	kind        Kind
	keys        AccessKeys
	hideSerial  uint64
	warnedLarge bool

	serial      Serial
	hide        *debounce.Timer
	identity    origin.Identity
	productName string
	render      TextRenderer
	doc         Document
	progress    ui.DownloadProgress
	notifier    ui.Notifier
	logger      *slog.Logger
}

// NewTracker creates a Tracker with no selection and empty access keys.
func NewTracker(cfg Config) *Tracker {
	if cfg.HideDelay <= 0 {
		cfg.HideDelay = DefaultHideDelay
	}
	if cfg.Renderer == nil {
		cfg.Renderer = PlainText
	}
	if cfg.Progress == nil {
		cfg.Progress = ui.NopProgress{}
	}
	if cfg.Notifier == nil {
		cfg.Notifier = ui.LogNotifier{Logger: cfg.Logger, ProductName: cfg.ProductName}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	t := &Tracker{
		identity:    cfg.Identity,
		productName: cfg.ProductName,
		render:      cfg.Renderer,
		doc:         cfg.Document,
		progress:    cfg.Progress,
		notifier:    cfg.Notifier,
		logger:      cfg.Logger,
	}
	t.hide = debounce.New(cfg.Clock, cfg.HideDelay, t.hideIfIdle)
	return t
}

// Serial returns the session operation serial.
func (t *Tracker) Serial() *Serial { return &t.serial }

// Progress returns the download widget.
func (t *Tracker) Progress() ui.DownloadProgress { return t.progress }

// SetKey rotates the access keys when key differs from the current one.
func (t *Tracker) SetKey(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.keys.Set(key)
}

// Keys returns a copy of the access keys.
func (t *Tracker) Keys() AccessKeys {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.keys
}

// Identity returns the session identity under the current (0) or
// previous (1) access key.
func (t *Tracker) Identity(idx int) origin.Identity {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.identity
	id.Tag = t.keys.At(idx)
	return id
}

// RecordSelection stores a plain-text selection reported by the backend.
func (t *Tracker) RecordSelection(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.kind = KindText
	t.content = text
}

// RecordComplexSelection marks the selection as one the backend cannot
// summarize as text.
func (t *Tracker) RecordComplexSelection() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.kind = KindComplex
}

// State returns the current selection content and kind.
func (t *Tracker) State() (string, Kind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.content, t.kind
}

// ExternalUpdate records a clipboard mutation driven from outside the
// copy/cut/paste handlers.
func (t *Tracker) ExternalUpdate() uint64 {
	return t.serial.Bump()
}

// Clear forgets the selection and restarts the hide-download window.
// When the window elapses with no clipboard activity in between, the
// download widget is closed.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.content = ""
	t.kind = KindNone
	t.hideSerial = t.serial.Value()
	t.mu.Unlock()

	t.hide.Trigger()
}

func (t *Tracker) hideIfIdle() {
	t.mu.Lock()
	idle := t.hideSerial == t.serial.Value()
	t.mu.Unlock()
	if idle {
		t.closeProgress()
	}
}

// StopHideDownload cancels the pending hide and closes the download
// widget right away, if it is open.
func (t *Tracker) StopHideDownload() {
	t.hide.Cancel()
	t.closeProgress()
}

func (t *Tracker) closeProgress() {
	if !t.progress.Visible() || t.progress.Closed() {
		return
	}
	t.progress.Close()
}

// PopulateOutgoing writes the text/plain and text/html representations
// of the current selection to w and bumps the serial once.
func (t *Tracker) PopulateOutgoing(ctx context.Context, w ClipboardWriter) error {
	content, kind := t.State()
	stub := origin.Stub(t.Identity(0), t.productName)

	var doc string
	switch {
	case kind == KindComplex || (t.doc != nil && t.doc.HasGraphicSelection()):
		if kind == KindText && content != "" {
			// Back here after the large download finished.
			t.logger.DebugContext(ctx, "selection: copy of downloaded complex selection")
			doc = content
		} else {
			t.logger.DebugContext(ctx, "selection: copy of complex selection, emitting stub")
			doc = stub
			t.onLargeCopy(ctx)
			t.progress.SetURI(t.Identity(0).URL() + "&MimeType=" + envelope.TypeHTML)
		}
	case kind == KindNone:
		t.logger.DebugContext(ctx, "selection: copy with no selection, emitting stub")
		doc = stub
	default:
		doc = content
	}

	if err := w.SetData(envelope.TypePlain, t.render(doc)); err != nil {
		return fmt.Errorf("selection: write %s: %w", envelope.TypePlain, err)
	}
	if pw, ok := w.(PlainTextWriter); !ok || !pw.PlainTextOnly() {
		if err := w.SetData(envelope.TypeHTML, doc); err != nil {
			return fmt.Errorf("selection: write %s: %w", envelope.TypeHTML, err)
		}
	}
	t.serial.Bump()
	return nil
}

// onLargeCopy warns about the first complex copy of the session and
// opens the download widget, or tells the user a download already runs.
func (t *Tracker) onLargeCopy(ctx context.Context) {
	if t.progress.Closed() {
		t.mu.Lock()
		first := !t.warnedLarge
		t.warnedLarge = true
		t.mu.Unlock()
		if first {
			t.notifier.Alert(ctx, ui.MsgLargeCopyFirst)
		}
		if !t.progress.Visible() {
			t.progress.Show()
		}
		return
	}
	if t.progress.Started() {
		t.notifier.Alert(ctx, ui.MsgLargeCopyAlreadyStarted)
	}
}
