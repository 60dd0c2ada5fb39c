// Package rodplatform drives the clipboard capabilities of an editor page
// loaded in Chrome, through go-rod.
//
// It is the capability set used by the probe command and by headless
// integration runs; the page must expose a focused editor document.
package rodplatform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/clipbridge/idgen"
	"github.com/hazyhaar/clipbridge/platform"
)

// Config configures the browser.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty launches a local Chrome.
	RemoteURL string

	// Headful shows the browser window.
	Headful bool

	// Stealth opens pages with go-rod/stealth evasions.
	Stealth bool

	Logger *slog.Logger
}

// Browser is a connected Chrome.
type Browser struct {
	cfg     Config
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// Launch starts Chrome (or connects to RemoteURL).
func Launch(ctx context.Context, cfg Config) (*Browser, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	b := &Browser{cfg: cfg}

	wsURL := cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().Headless(!cfg.Headful).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("rodplatform: launch: %w", err)
		}
		wsURL = u
		b.lnch = l
		cfg.Logger.Info("rodplatform: launched local chrome", "url", wsURL)
	} else {
		cfg.Logger.Info("rodplatform: connecting to remote", "url", wsURL)
	}

	b.browser = rod.New().Context(ctx).ControlURL(wsURL)
	if err := b.browser.Connect(); err != nil {
		b.kill()
		return nil, fmt.Errorf("rodplatform: connect: %w", err)
	}
	return b, nil
}

// Open navigates a new tab to pageURL and waits for it to load.
func (b *Browser) Open(ctx context.Context, pageURL string) (*Page, error) {
	var (
		page *rod.Page
		err  error
	)
	if b.cfg.Stealth {
		page, err = stealth.Page(b.browser)
	} else {
		page, err = b.browser.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("rodplatform: create tab: %w", err)
	}
	if err := page.Context(ctx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("rodplatform: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(ctx).WaitLoad(); err != nil {
		b.cfg.Logger.Warn("rodplatform: wait load", "url", pageURL, "error", err)
	}
	return &Page{page: page, logger: b.cfg.Logger}, nil
}

// Close disconnects and stops a locally launched Chrome.
func (b *Browser) Close() error {
	var err error
	if b.browser != nil {
		err = b.browser.Close()
	}
	b.kill()
	return err
}

func (b *Browser) kill() {
	if b.lnch != nil {
		b.lnch.Kill()
		b.lnch = nil
	}
}

// Page is one editor tab. It implements platform.Commander,
// platform.SurfaceFactory, platform.HostBridge and platform.DirectPaster.
type Page struct {
	page   *rod.Page
	logger *slog.Logger
}

var (
	_ platform.Commander      = (*Page)(nil)
	_ platform.SurfaceFactory = (*Page)(nil)
	_ platform.HostBridge     = (*Page)(nil)
	_ platform.DirectPaster   = (*Page)(nil)
)

// Probe runs feature detection once.
func (p *Page) Probe(ctx context.Context) (platform.Probe, error) {
	res, err := p.page.Context(ctx).Eval(probeJS)
	if err != nil {
		return platform.Probe{}, fmt.Errorf("rodplatform: probe: %w", err)
	}
	v := res.Value
	probe := platform.Probe{
		ClipboardEvents: v.Get("events").Bool(),
		LegacyClipboard: v.Get("legacy").Bool(),
		Mobile:          v.Get("mobile").Bool(),
		Commander:       p,
		Surfaces:        p,
	}
	if v.Get("webkit").Bool() {
		probe.Bridge = p
	}
	if v.Get("rich").Bool() {
		probe.Paster = p
	}
	return probe, nil
}

// Capabilities probes the page and selects its capability set.
func (p *Page) Capabilities(ctx context.Context) (platform.Capabilities, error) {
	probe, err := p.Probe(ctx)
	if err != nil {
		return platform.Capabilities{}, err
	}
	caps := platform.Detect(probe)
	p.logger.InfoContext(ctx, "rodplatform: capabilities", "kind", caps.Kind.String(), "mobile", caps.Mobile)
	return caps, nil
}

// ExecCommand runs document.execCommand(op).
func (p *Page) ExecCommand(ctx context.Context, op platform.Op) (bool, error) {
	res, err := p.page.Context(ctx).Eval(`(op) => document.execCommand(op)`, string(op))
	if err != nil {
		return false, fmt.Errorf("rodplatform: exec %s: %w", op, err)
	}
	return res.Value.Bool(), nil
}

// CreateSurface appends a transient editable div holding html.
func (p *Page) CreateSurface(ctx context.Context, html string) (platform.Surface, error) {
	id := idgen.SurfaceID()
	if _, err := p.page.Context(ctx).Eval(createSurfaceJS, id, html); err != nil {
		return nil, fmt.Errorf("rodplatform: create surface: %w", err)
	}
	return &surface{page: p.page, id: id}, nil
}

// PostMessage posts op to the webkit message handler of the wrapper.
func (p *Page) PostMessage(ctx context.Context, op platform.Op) error {
	res, err := p.page.Context(ctx).Eval(postMessageJS, string(op))
	if err != nil {
		return fmt.Errorf("rodplatform: post message: %w", err)
	}
	if !res.Value.Bool() {
		return platform.ErrNoHook
	}
	return nil
}

// Paste calls the direct paste hook of the wrapper.
func (p *Page) Paste(ctx context.Context) error {
	res, err := p.page.Context(ctx).Eval(directPasteJS)
	if err != nil {
		return fmt.Errorf("rodplatform: direct paste: %w", err)
	}
	if !res.Value.Bool() {
		return platform.ErrNoHook
	}
	return nil
}

// SetText writes to the legacy clipboard object.
func (p *Page) SetText(text string) bool {
	res, err := p.page.Eval(`(t) => !!(window.clipboardData && window.clipboardData.setData('Text', t))`, text)
	if err != nil {
		p.logger.Warn("rodplatform: legacy clipboard write", "error", err)
		return false
	}
	return res.Value.Bool()
}

// Close closes the tab.
func (p *Page) Close() error { return p.page.Close() }

type surface struct {
	page *rod.Page
	id   string
}

func (s *surface) SelectContents(ctx context.Context) error {
	res, err := s.page.Context(ctx).Eval(selectSurfaceJS, s.id)
	if err != nil {
		return fmt.Errorf("rodplatform: select surface: %w", err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("rodplatform: selection of %s is collapsed", s.id)
	}
	return nil
}

func (s *surface) ExecCommand(ctx context.Context, op platform.Op) (bool, error) {
	res, err := s.page.Context(ctx).Eval(`(op) => document.execCommand(op)`, string(op))
	if err != nil {
		return false, fmt.Errorf("rodplatform: exec %s on surface: %w", op, err)
	}
	return res.Value.Bool(), nil
}

func (s *surface) Remove(ctx context.Context) error {
	if _, err := s.page.Context(ctx).Eval(removeSurfaceJS, s.id); err != nil {
		return fmt.Errorf("rodplatform: remove surface: %w", err)
	}
	return nil
}
