package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hazyhaar/clipbridge/backend"
	"github.com/hazyhaar/clipbridge/clipboard"
	"github.com/hazyhaar/clipbridge/envelope"
	"github.com/hazyhaar/clipbridge/origin"
	"github.com/hazyhaar/clipbridge/selection"
)

// textSource is a native clipboard holding only text/plain.
type textSource string

func (s textSource) Types() []string    { return []string{envelope.TypePlain} }
func (s textSource) Data(string) string { return string(s) }

func runRelay(ctx context.Context, args []string) error {
	c := newFlagSet("relay")
	to := c.fs.String("to", "", "clipboard endpoint URL of the destination view")
	from := c.fs.String("from", "", "fingerprint (endpoint URL) of the source view")
	htmlFile := c.fs.String("html-file", "", "paste the HTML in this file")
	text := c.fs.String("text", "", "paste plain text")
	dialog := c.fs.Bool("dialog", false, "signal the paste with a key event")
	cfg, logger, err := c.parse(args)
	if cfg == nil || err != nil {
		return err
	}

	if *to == "" {
		return errors.New("relay: --to is required")
	}
	dest, err := origin.Fingerprint(*to).Identity()
	if err != nil {
		return fmt.Errorf("relay: --to: %w", err)
	}

	var ev clipboard.PasteEvent
	ev.UsePasteKeyEvent = *dialog
	switch {
	case *from != "":
		fp := origin.Fingerprint(*from)
		if _, err := fp.Identity(); err != nil {
			return fmt.Errorf("relay: --from: %w", err)
		}
		ev.HTML = origin.Embed("<html><head></head><body></body></html>", fp)
	case *htmlFile != "":
		data, err := os.ReadFile(*htmlFile)
		if err != nil {
			return fmt.Errorf("relay: %w", err)
		}
		ev.HTML = string(data)
	case *text != "":
		ev.Data = textSource(*text)
	default:
		return errors.New("relay: one of --from, --html-file or --text is required")
	}

	rec := &backend.Recorder{Logger: logger}
	sess := clipboard.New(clipboard.Config{
		Identity:    dest,
		ProductName: cfg.ProductName,
		Backend:     rec,
		Renderer:    selection.RendererFor(cfg.Client.PlainText),
		Timeout:     cfg.Client.Timeout,
		MaxResponse: cfg.Client.MaxResponse,
		HideDelay:   cfg.Client.HideDownloadDelay,
		GraceWindow: cfg.Client.GraceWindow,
		Logger:      logger,
	})
	sess.SetKey(dest.Tag)

	out := sess.Paste(ctx, ev)
	if err := printJSON(map[string]any{
		"outcome":  out.String(),
		"messages": rec.Messages(),
		"keys":     rec.Keys(),
		"images":   len(rec.Binaries()),
	}); err != nil {
		return err
	}
	if !out.Signaled() {
		return fmt.Errorf("relay: nothing pasted (%s)", out)
	}
	return nil
}
