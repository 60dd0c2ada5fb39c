package platform

import (
	"context"
	"errors"
	"testing"
)

type legacy struct {
	ok   bool
	text string
}

func (l *legacy) SetText(s string) bool {
	l.text = s
	return l.ok
}

func TestDetect(t *testing.T) {
	bridge := BridgeFunc(func(context.Context, Op) error { return nil })
	paster := PasterFunc(func(context.Context) error { return nil })

	tests := []struct {
		name  string
		probe Probe
		want  Kind
	}{
		{"nothing", Probe{}, KindNone},
		{"standard", Probe{ClipboardEvents: true}, KindStandard},
		{"legacy", Probe{LegacyClipboard: true}, KindLegacy},
		{"standard wins over legacy", Probe{ClipboardEvents: true, LegacyClipboard: true}, KindStandard},
		{"bridge", Probe{ClipboardEvents: true, Bridge: bridge}, KindHostBridge},
		{"paster", Probe{Paster: paster, Mobile: true}, KindHostBridge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Detect(tt.probe)
			if c.Kind != tt.want {
				t.Fatalf("kind: got %v, want %v", c.Kind, tt.want)
			}
			if c.HasBridge() != (tt.want == KindHostBridge) {
				t.Fatalf("HasBridge: got %v", c.HasBridge())
			}
		})
	}
}

func TestLegacyWriter(t *testing.T) {
	cb := &legacy{ok: true}
	w := LegacyWriter{Clipboard: cb}
	if !w.PlainTextOnly() {
		t.Fatal("legacy writer must be text only")
	}
	if err := w.SetData("text/html", "<b>x</b>"); err != nil {
		t.Fatal(err)
	}
	if err := w.SetData("text/plain", "x"); err != nil {
		t.Fatal(err)
	}
	if cb.text != "x" {
		t.Fatalf("text: got %q", cb.text)
	}

	cb.ok = false
	if err := w.SetData("text/plain", "y"); !errors.Is(err, ErrLegacyWrite) {
		t.Fatalf("err: got %v", err)
	}
	if err := (LegacyWriter{}).SetData("text/plain", "z"); !errors.Is(err, ErrLegacyWrite) {
		t.Fatalf("nil clipboard err: got %v", err)
	}
}
