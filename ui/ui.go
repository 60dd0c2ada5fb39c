// Package ui declares the user-facing collaborators of a clipboard
// session: the download progress widget, modal alerts and document focus.
// The session only talks to these interfaces; rendering is the host's.
package ui

import (
	"context"
	"log/slog"
)

// Progress is the single process-wide progress indicator. Every path
// that shows it must close it on success and on failure.
type Progress interface {
	Visible() bool
	Show()
	// SetValue moves the bar, 0..100.
	SetValue(percent int)
	Complete()
	Close()
}

// DownloadProgress is the progress widget that also offers the explicit
// "download then copy" flow for large selections.
type DownloadProgress interface {
	Progress
	// Closed reports whether the user dismissed the widget.
	Closed() bool
	// Started reports whether a large-content download is running.
	Started() bool
	// SetURI points the widget at the content to download.
	SetURI(uri string)
}

// Notifier displays a modal advisory. Implementations focus the document
// once the user dismisses it.
type Notifier interface {
	Alert(ctx context.Context, msg Message)
}

// Editor is the input side of the document view.
type Editor interface {
	Focus()
	// AbortComposition cancels a pending input-method composition.
	AbortComposition()
}

// LogNotifier writes alerts to a logger. Used by headless hosts.
type LogNotifier struct {
	Logger      *slog.Logger
	ProductName string
}

func (n LogNotifier) Alert(ctx context.Context, msg Message) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.WarnContext(ctx, "clipboard advisory", "message", msg.String(), "text", msg.Text(n.ProductName))
}

// NopEditor ignores focus requests.
type NopEditor struct{}

func (NopEditor) Focus()            {}
func (NopEditor) AbortComposition() {}

// NopProgress is a Progress that is never visible.
type NopProgress struct{}

func (NopProgress) Visible() bool { return false }
func (NopProgress) Show()         {}
func (NopProgress) SetValue(int)  {}
func (NopProgress) Complete()     {}
func (NopProgress) Close()        {}
func (NopProgress) Closed() bool  { return true }
func (NopProgress) Started() bool { return false }
func (NopProgress) SetURI(string) {}
