package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/clipbridge/backend"
	"github.com/hazyhaar/clipbridge/clipboard"
	"github.com/hazyhaar/clipbridge/platform"
	"github.com/hazyhaar/clipbridge/platform/rodplatform"
)

func runProbe(ctx context.Context, args []string) error {
	c := newFlagSet("probe")
	pageURL := c.fs.String("url", "", "page to probe")
	execOp := c.fs.String("exec", "", "also run a clipboard command: copy | cut | paste")
	remote := c.fs.String("remote", "", "DevTools WebSocket URL of a running Chrome (overrides browser.remote)")
	cfg, logger, err := c.parse(args)
	if cfg == nil || err != nil {
		return err
	}
	if *pageURL == "" {
		return errors.New("probe: --url is required")
	}
	if *remote != "" {
		cfg.Browser.Remote = *remote
	}

	var op platform.Op
	switch *execOp {
	case "":
	case string(platform.OpCopy), string(platform.OpCut), string(platform.OpPaste):
		op = platform.Op(*execOp)
	default:
		return fmt.Errorf("probe: unknown --exec %q", *execOp)
	}

	browser, err := rodplatform.Launch(ctx, rodplatform.Config{
		RemoteURL: cfg.Browser.Remote,
		Headful:   cfg.Browser.Headful,
		Stealth:   cfg.Browser.Stealth,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer browser.Close()

	page, err := browser.Open(ctx, *pageURL)
	if err != nil {
		return err
	}
	defer page.Close()

	caps, err := page.Capabilities(ctx)
	if err != nil {
		return err
	}
	report := map[string]any{
		"url":    *pageURL,
		"kind":   caps.Kind.String(),
		"mobile": caps.Mobile,
	}

	if op != "" {
		rec := &backend.Recorder{Logger: logger}
		sess := clipboard.New(clipboard.Config{
			ProductName:  cfg.ProductName,
			Backend:      rec,
			Capabilities: caps,
			GraceWindow:  cfg.Client.GraceWindow,
			Logger:       logger,
		})
		if caps.Kind == platform.KindLegacy && op != platform.OpPaste {
			w := platform.LegacyWriter{Clipboard: page}
			if op == platform.OpCut {
				sess.Cut(ctx, w)
			} else {
				sess.Copy(ctx, w)
			}
		}
		res := sess.Execute(ctx, op)
		report["exec"] = map[string]any{
			"op":       string(res.Op),
			"executed": res.Executed,
			"strategy": res.Strategy.String(),
			"backend":  rec.Messages(),
		}
	}
	return printJSON(report)
}
