// Package relay decides what a paste does with the payload the platform
// handed over, and drives it to a backend paste signal.
//
// A paste is classified once by the origin embedded in its HTML:
//
//   - our own origin, internal paste preferred: the backend pastes its
//     own clipboard (short-circuit, no transfer)
//   - a foreign origin: the content is downloaded from the source
//     session and uploaded to ours, then pasted (relay)
//   - no origin: whatever the platform gave us is encoded and uploaded
//     to our own endpoint, then pasted (fallback)
//
// Every step runs sequentially on the calling goroutine. A paste is
// superseded when the session serial moves past its generation before
// the paste signal; the stale attempt then sends nothing.
package relay

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/hazyhaar/clipbridge/backend"
	"github.com/hazyhaar/clipbridge/envelope"
	"github.com/hazyhaar/clipbridge/origin"
	"github.com/hazyhaar/clipbridge/selection"
	"github.com/hazyhaar/clipbridge/transfer"
	"github.com/hazyhaar/clipbridge/ui"
)

// Outcome is the terminal state of one paste attempt.
type Outcome int

const (
	// OutcomeNoop: no content and no files, nothing was sent.
	OutcomeNoop Outcome = iota
	// OutcomeShortCircuit: the payload came from this session.
	OutcomeShortCircuit
	// OutcomeRelayed: content was copied from the source session.
	OutcomeRelayed
	// OutcomeRelayedHTML: the source download failed and the literal
	// HTML was uploaded instead.
	OutcomeRelayedHTML
	// OutcomeFallback: a locally encoded envelope was uploaded.
	OutcomeFallback
	// OutcomeImages: image files were sent directly to the backend.
	OutcomeImages
	// OutcomeAborted: the payload was a stub; the user must re-copy.
	OutcomeAborted
	// OutcomeSuperseded: a newer clipboard operation won the race.
	OutcomeSuperseded
	// OutcomeFailed: an upload failed with nothing left to fall back to.
	OutcomeFailed
)

var outcomeNames = [...]string{
	OutcomeNoop:         "noop",
	OutcomeShortCircuit: "short-circuit",
	OutcomeRelayed:      "relayed",
	OutcomeRelayedHTML:  "relayed-html",
	OutcomeFallback:     "fallback",
	OutcomeImages:       "images",
	OutcomeAborted:      "aborted",
	OutcomeSuperseded:   "superseded",
	OutcomeFailed:       "failed",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}

// Signaled reports whether the outcome ended with a paste sent to the
// backend.
func (o Outcome) Signaled() bool {
	switch o {
	case OutcomeShortCircuit, OutcomeRelayed, OutcomeRelayedHTML, OutcomeFallback, OutcomeImages:
		return true
	}
	return false
}

// File is a file handed over by the platform with the paste.
type File struct {
	Name string
	Type string
	Open func() (io.ReadCloser, error)
}

// Request is one paste attempt.
type Request struct {
	// Generation is the session serial captured when the paste started.
	Generation uint64

	// HTML is the text/html payload, captured up front.
	HTML string

	// Data lists every native type. Nil on the legacy path.
	Data  envelope.Source
	Files []File

	// PreferInternal short-circuits payloads from this session.
	PreferInternal bool

	// UsePasteKeyEvent pastes with a keystroke, for dialogs.
	UsePasteKeyEvent bool
}

// Session is the local side of a paste: its addressable identities and
// its serial.
type Session interface {
	Identity(idx int) origin.Identity
	Serial() *selection.Serial
}

// Orchestrator runs paste attempts for one session.
type Orchestrator struct {
	session  Session
	client   *transfer.Client
	backend  backend.Backend
	notifier ui.Notifier
	editor   ui.Editor
	logger   *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets where user advisories go.
func WithNotifier(n ui.Notifier) Option { return func(o *Orchestrator) { o.notifier = n } }

// WithEditor sets the document focused after an aborted paste.
func WithEditor(e ui.Editor) Option { return func(o *Orchestrator) { o.editor = e } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(o *Orchestrator) { o.logger = l } }

// New creates an Orchestrator.
func New(session Session, client *transfer.Client, be backend.Backend, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		session: session,
		client:  client,
		backend: be,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.notifier == nil {
		o.notifier = ui.LogNotifier{Logger: o.logger}
	}
	if o.editor == nil {
		o.editor = ui.NopEditor{}
	}
	return o
}

// Paste runs one attempt to completion.
func (o *Orchestrator) Paste(ctx context.Context, req Request) Outcome {
	cur, prev := o.session.Identity(0), o.session.Identity(1)
	logger := o.logger.With("doc", cur.DocID, "view", cur.ViewID, "generation", req.Generation)

	fp := origin.Extract(req.HTML, logger)
	if req.PreferInternal && !fp.IsZero() && origin.Matches(fp, cur, prev) {
		logger.DebugContext(ctx, "relay: short-circuit, internal paste")
		return o.signal(ctx, logger, req, OutcomeShortCircuit, false)
	}

	if !fp.IsZero() {
		logger.DebugContext(ctx, "relay: transfer between servers", "origin", fp.String(), "local", cur.Path())
		return o.relay(ctx, logger, req, fp, cur)
	}

	return o.fallback(ctx, logger, req, req.Data)
}

// PasteAsync runs Paste on its own goroutine and reports the outcome to
// done, which may be nil.
func (o *Orchestrator) PasteAsync(ctx context.Context, req Request, done func(Outcome)) {
	go func() {
		out := o.Paste(ctx, req)
		if done != nil {
			done(out)
		}
	}()
}

func (o *Orchestrator) relay(ctx context.Context, logger *slog.Logger, req Request, fp origin.Fingerprint, local origin.Identity) Outcome {
	src := fp.DownloadURL(local.Base)
	dest := local.URL()

	body, err := o.client.Do(ctx, transfer.Request{
		Method: http.MethodGet,
		URL:    src,
		Range:  transfer.FirstHalf,
	})
	if err == nil {
		_, err = o.client.Do(ctx, transfer.Request{
			Method: http.MethodPost,
			URL:    dest,
			Upload: &transfer.Upload{Field: "data", FileName: "clipboard", Data: body},
			Range:  transfer.SecondHalf,
		})
		if err != nil {
			logger.WarnContext(ctx, "relay: upload failed", "dest", dest, "error", err)
			return OutcomeFailed
		}
		logger.DebugContext(ctx, "relay: upload done, now paste", "bytes", len(body))
		return o.signal(ctx, logger, req, OutcomeRelayed, false)
	}

	logger.WarnContext(ctx, "relay: failed to download clipboard, using fallback html", "src", src, "error", err)
	if origin.IsStub(req.HTML) {
		return o.abort(ctx, logger)
	}

	_, err = o.client.Do(ctx, transfer.Request{
		Method: http.MethodPost,
		URL:    dest,
		Upload: &transfer.Upload{Field: "data", FileName: "clipboard", Data: []byte(req.HTML)},
		Range:  transfer.SecondHalf,
	})
	if err == nil {
		logger.DebugContext(ctx, "relay: upload of fallback html done, now paste")
		return o.signal(ctx, logger, req, OutcomeRelayedHTML, false)
	}
	logger.WarnContext(ctx, "relay: upload of fallback html failed", "dest", dest, "error", err)
	return o.fallback(ctx, logger, req, nil)
}

func (o *Orchestrator) fallback(ctx context.Context, logger *slog.Logger, req Request, src envelope.Source) Outcome {
	var env *envelope.Envelope
	if src != nil {
		env = envelope.EncodeMultiple(src)
	}
	if env != nil && len(req.Files) > 0 {
		logger.InfoContext(ctx, "relay: files dropped in favour of other types", "files", len(req.Files), "types", len(env.Entries))
	}
	if env == nil && req.HTML != "" {
		env = envelope.EncodeSingle(envelope.TypeHTML, req.HTML)
	}

	if env == nil {
		if len(req.Files) > 0 {
			return o.pasteImages(ctx, logger, req)
		}
		logger.InfoContext(ctx, "relay: nothing we can paste on the clipboard")
		return OutcomeNoop
	}

	if e, ok := env.Get(envelope.TypeHTML); ok && origin.IsStub(string(e.Data)) {
		return o.abort(ctx, logger)
	}

	logger.DebugContext(ctx, "relay: normal html, smart paste not possible")
	data := env.Bytes()
	_, err := o.client.Do(ctx, transfer.Request{
		Method: http.MethodPost,
		URL:    o.session.Identity(0).URL(),
		Upload: &transfer.Upload{Field: "file", Data: data},
		Range:  transfer.Full,
	})
	if err != nil {
		logger.WarnContext(ctx, "relay: local upload failed", "error", err)
		return OutcomeFailed
	}
	logger.DebugContext(ctx, "relay: posted envelope", "bytes", len(data))
	return o.signal(ctx, logger, req, OutcomeFallback, req.UsePasteKeyEvent)
}

// pasteImages sends every image file straight to the backend, one
// goroutine per file.
func (o *Orchestrator) pasteImages(ctx context.Context, logger *slog.Logger, req Request) Outcome {
	logger.DebugContext(ctx, "relay: attempting to paste image(s)", "files", len(req.Files))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sent int
	)
	for _, f := range req.Files {
		if !strings.HasPrefix(f.Type, "image/") || f.Open == nil {
			logger.DebugContext(ctx, "relay: skipping non-image file", "name", f.Name, "type", f.Type)
			continue
		}
		wg.Add(1)
		go func(f File) {
			defer wg.Done()
			data, err := readFile(f)
			if err != nil {
				logger.WarnContext(ctx, "relay: read image failed", "name", f.Name, "error", err)
				return
			}
			if o.session.Serial().Changed(req.Generation) {
				logger.InfoContext(ctx, "relay: image paste superseded", "name", f.Name)
				return
			}
			if err := o.backend.SendBinary(ctx, backend.PasteImageMessage(f.Type, data)); err != nil {
				logger.WarnContext(ctx, "relay: send image failed", "name", f.Name, "error", err)
				return
			}
			mu.Lock()
			sent++
			mu.Unlock()
		}(f)
	}
	wg.Wait()

	switch {
	case sent > 0:
		return OutcomeImages
	case o.session.Serial().Changed(req.Generation):
		return OutcomeSuperseded
	default:
		return OutcomeNoop
	}
}

func readFile(f File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// signal sends the paste to the backend unless the attempt has been
// superseded.
func (o *Orchestrator) signal(ctx context.Context, logger *slog.Logger, req Request, out Outcome, keyEvent bool) Outcome {
	if o.session.Serial().Changed(req.Generation) {
		logger.InfoContext(ctx, "relay: superseded before paste", "outcome", out.String(), "serial", o.session.Serial().Value())
		if p := o.client.Progress(); p.Visible() {
			p.Close()
		}
		return OutcomeSuperseded
	}

	var err error
	if keyEvent {
		err = o.backend.SendKeyEvent(ctx, 0, backend.KeyPaste)
	} else {
		err = o.backend.SendMessage(ctx, backend.CmdPaste)
	}
	if err != nil {
		logger.WarnContext(ctx, "relay: paste signal failed", "error", err)
		return OutcomeFailed
	}
	return out
}

func (o *Orchestrator) abort(ctx context.Context, logger *slog.Logger) Outcome {
	logger.WarnContext(ctx, "relay: stub payload, not pasting")
	o.notifier.Alert(ctx, ui.MsgReCopy)
	o.editor.Focus()
	return OutcomeAborted
}
