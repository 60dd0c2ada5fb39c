// Package platform models what the host environment can do with the
// native clipboard. The capability set is detected once when a session
// starts and never re-probed.
package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/clipbridge/envelope"
)

// Op is a clipboard operation the platform can be asked to perform.
type Op string

const (
	OpCopy  Op = "copy"
	OpCut   Op = "cut"
	OpPaste Op = "paste"
)

// Kind is the clipboard API shape of the host.
type Kind int

const (
	// KindNone: no clipboard access at all.
	KindNone Kind = iota
	// KindStandard: clipboard events carry a readable and writable
	// data transfer with every MIME type.
	KindStandard
	// KindLegacy: a global clipboard object that only holds text.
	KindLegacy
	// KindHostBridge: an embedding mobile wrapper that performs paste
	// on our behalf.
	KindHostBridge
)

func (k Kind) String() string {
	switch k {
	case KindStandard:
		return "standard"
	case KindLegacy:
		return "legacy"
	case KindHostBridge:
		return "host-bridge"
	default:
		return "none"
	}
}

// SurfaceHTML is the content of the transient editable surface. It has
// to be selectable yet invisible.
const SurfaceHTML = `<b style="font-weight:normal; background-color: transparent; color: transparent;"><span>&nbsp;&nbsp;</span></b>`

// Commander asks the platform to run a clipboard command against the
// current selection. It reports whether the platform accepted it, which
// says nothing about whether it had any effect.
type Commander interface {
	ExecCommand(ctx context.Context, op Op) (bool, error)
}

// Surface is a transient, invisible, editable element.
type Surface interface {
	SelectContents(ctx context.Context) error
	ExecCommand(ctx context.Context, op Op) (bool, error)
	Remove(ctx context.Context) error
}

// SurfaceFactory creates transient surfaces holding html.
type SurfaceFactory interface {
	CreateSurface(ctx context.Context, html string) (Surface, error)
}

// HostBridge is the message hook of an embedding wrapper.
type HostBridge interface {
	PostMessage(ctx context.Context, op Op) error
}

// DirectPaster is the direct paste call of an embedding wrapper.
type DirectPaster interface {
	Paste(ctx context.Context) error
}

// Probe is the raw result of feature detection.
type Probe struct {
	ClipboardEvents bool
	LegacyClipboard bool
	Mobile          bool

	Commander Commander
	Surfaces  SurfaceFactory
	Bridge    HostBridge
	Paster    DirectPaster
}

// Capabilities is the capability set a session runs with. Nil members
// are simply skipped by the callers.
type Capabilities struct {
	Kind   Kind
	Mobile bool

	Commander Commander
	Surfaces  SurfaceFactory
	Bridge    HostBridge
	Paster    DirectPaster
}

// Detect selects the capability set from a probe.
func Detect(p Probe) Capabilities {
	c := Capabilities{
		Mobile:    p.Mobile,
		Commander: p.Commander,
		Surfaces:  p.Surfaces,
		Bridge:    p.Bridge,
		Paster:    p.Paster,
	}
	switch {
	case p.Bridge != nil || p.Paster != nil:
		c.Kind = KindHostBridge
	case p.ClipboardEvents:
		c.Kind = KindStandard
	case p.LegacyClipboard:
		c.Kind = KindLegacy
	default:
		c.Kind = KindNone
	}
	return c
}

// HasBridge reports whether any host-bridge hook is present.
func (c Capabilities) HasBridge() bool { return c.Bridge != nil || c.Paster != nil }

// CommanderFunc adapts a function to Commander.
type CommanderFunc func(ctx context.Context, op Op) (bool, error)

func (f CommanderFunc) ExecCommand(ctx context.Context, op Op) (bool, error) { return f(ctx, op) }

// BridgeFunc adapts a function to HostBridge.
type BridgeFunc func(ctx context.Context, op Op) error

func (f BridgeFunc) PostMessage(ctx context.Context, op Op) error { return f(ctx, op) }

// PasterFunc adapts a function to DirectPaster.
type PasterFunc func(ctx context.Context) error

func (f PasterFunc) Paste(ctx context.Context) error { return f(ctx) }

// ErrNoHook reports a host-bridge hook that is not present.
var ErrNoHook = errors.New("platform: host hook not present")

// ErrLegacyWrite reports that the legacy clipboard refused a write.
var ErrLegacyWrite = errors.New("platform: legacy clipboard refused write")

// LegacyClipboard is the text-only clipboard object.
type LegacyClipboard interface {
	SetText(text string) bool
}

// LegacyWriter writes outgoing clipboard data to a LegacyClipboard. Only
// text/plain is kept.
type LegacyWriter struct {
	Clipboard LegacyClipboard
}

func (w LegacyWriter) PlainTextOnly() bool { return true }

func (w LegacyWriter) SetData(mimeType, data string) error {
	if mimeType != envelope.TypePlain {
		return nil
	}
	if w.Clipboard == nil || !w.Clipboard.SetText(data) {
		return fmt.Errorf("%w: %s", ErrLegacyWrite, mimeType)
	}
	return nil
}
