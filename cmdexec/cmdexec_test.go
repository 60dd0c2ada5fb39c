package cmdexec

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/clipbridge/backend"
	"github.com/hazyhaar/clipbridge/clock"
	"github.com/hazyhaar/clipbridge/platform"
	"github.com/hazyhaar/clipbridge/selection"
	"github.com/hazyhaar/clipbridge/ui"
	"github.com/hazyhaar/clipbridge/ui/uitest"
)

// fakeSurface records its lifecycle.
type fakeSurface struct {
	mu       sync.Mutex
	created  int
	selected int
	removed  int
	accept   bool
	effect   func()
	selErr   error
}

func (f *fakeSurface) CreateSurface(_ context.Context, html string) (platform.Surface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return f, nil
}

func (f *fakeSurface) SelectContents(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected++
	return f.selErr
}

func (f *fakeSurface) ExecCommand(context.Context, platform.Op) (bool, error) {
	if f.effect != nil {
		f.effect()
	}
	return f.accept, nil
}

func (f *fakeSurface) Remove(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed++
	return nil
}

type fixture struct {
	serial   *selection.Serial
	clk      *clock.FakeClock
	notifier *uitest.Notifier
	pasted   int
}

func newFixture() *fixture {
	return &fixture{
		serial:   &selection.Serial{},
		clk:      clock.Fake(time.Unix(0, 0)),
		notifier: &uitest.Notifier{},
	}
}

func (f *fixture) executor(caps platform.Capabilities) *Executor {
	return New(Config{
		Capabilities: caps,
		Serial:       f.serial,
		Clock:        f.clk,
		Notifier:     f.notifier,
		OnPaste:      func() { f.pasted++ },
	})
}

// run executes op on a goroutine and drives the grace window.
func (f *fixture) run(t *testing.T, e *Executor, op platform.Op) Result {
	t.Helper()
	done := make(chan Result, 1)
	go func() { done <- e.Execute(context.Background(), op) }()
	select {
	case r := <-done:
		return r
	case <-time.After(50 * time.Millisecond):
	}
	f.clk.WaitForTimers(1)
	f.clk.Advance(DefaultGraceWindow)
	return <-done
}

func TestExecute_DirectSuccess(t *testing.T) {
	f := newFixture()
	surf := &fakeSurface{}
	e := f.executor(platform.Capabilities{
		Commander: platform.CommanderFunc(func(context.Context, platform.Op) (bool, error) {
			f.serial.Bump() // the copy handler ran
			return true, nil
		}),
		Surfaces: surf,
	})
	r := e.Execute(context.Background(), platform.OpCopy)
	if !r.Executed || r.Strategy != StrategyDirect {
		t.Fatalf("result: got %+v", r)
	}
	if surf.created != 0 {
		t.Fatal("surface used after direct success")
	}
	if f.serial.Value() != 1 {
		t.Fatalf("serial: got %d, want 1", f.serial.Value())
	}
}

func TestExecute_DirectAcceptedWithoutEffectEscalates(t *testing.T) {
	f := newFixture()
	surf := &fakeSurface{accept: true, effect: func() { f.serial.Bump() }}
	e := f.executor(platform.Capabilities{
		Commander: platform.CommanderFunc(func(context.Context, platform.Op) (bool, error) {
			return true, nil
		}),
		Surfaces: surf,
	})
	r := e.Execute(context.Background(), platform.OpCut)
	if !r.Executed || r.Strategy != StrategySurface {
		t.Fatalf("result: got %+v", r)
	}
	if surf.created != 1 || surf.selected != 1 || surf.removed != 1 {
		t.Fatalf("surface lifecycle: %+v", surf)
	}
	if f.serial.Value() != 1 {
		t.Fatalf("serial: got %d, want exactly 1", f.serial.Value())
	}
}

func TestExecute_DirectEffectWithoutAcceptanceStops(t *testing.T) {
	for name, direct := range map[string]platform.CommanderFunc{
		"rejected": func(context.Context, platform.Op) (bool, error) {
			return false, nil
		},
		"error": func(context.Context, platform.Op) (bool, error) {
			return false, errors.New("not allowed")
		},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			surf := &fakeSurface{accept: true, effect: func() { f.serial.Bump() }}
			bridged := 0
			e := f.executor(platform.Capabilities{
				Commander: platform.CommanderFunc(func(ctx context.Context, op platform.Op) (bool, error) {
					f.serial.Bump() // the handler ran anyway
					return direct(ctx, op)
				}),
				Surfaces: surf,
				Bridge: platform.BridgeFunc(func(context.Context, platform.Op) error {
					bridged++
					return nil
				}),
			})
			r := e.Execute(context.Background(), platform.OpPaste)
			if !r.Executed || r.Strategy != StrategyDirect {
				t.Fatalf("result: got %+v", r)
			}
			if surf.created != 0 || bridged != 0 {
				t.Fatalf("escalated after the serial changed: surfaces=%d bridge=%d", surf.created, bridged)
			}
			if f.serial.Value() != 1 {
				t.Fatalf("serial: got %d, want 1", f.serial.Value())
			}
		})
	}
}

func TestExecute_SurfaceEffectWithoutAcceptanceStops(t *testing.T) {
	f := newFixture()
	surf := &fakeSurface{accept: false, effect: func() { f.serial.Bump() }}
	bridged := 0
	e := f.executor(platform.Capabilities{
		Surfaces: surf,
		Bridge: platform.BridgeFunc(func(context.Context, platform.Op) error {
			bridged++
			f.serial.Bump()
			return nil
		}),
	})
	r := e.Execute(context.Background(), platform.OpPaste)
	if !r.Executed || r.Strategy != StrategySurface {
		t.Fatalf("result: got %+v", r)
	}
	if bridged != 0 || surf.removed != 1 {
		t.Fatalf("bridge=%d removed=%d", bridged, surf.removed)
	}
	if f.serial.Value() != 1 {
		t.Fatalf("serial: got %d, want 1", f.serial.Value())
	}
}

func TestExecute_SurfaceAlwaysRemoved(t *testing.T) {
	f := newFixture()
	surf := &fakeSurface{accept: false, selErr: errors.New("collapsed")}
	e := f.executor(platform.Capabilities{Surfaces: surf})

	r := f.run(t, e, platform.OpCopy)
	if r.Executed {
		t.Fatalf("result: got %+v", r)
	}
	if surf.removed != 1 {
		t.Fatalf("removed: got %d", surf.removed)
	}
}

func TestExecute_FailureShowsShortcutHelp(t *testing.T) {
	f := newFixture()
	e := f.executor(platform.Capabilities{})
	r := f.run(t, e, platform.OpCopy)
	if r.Executed || r.Strategy != StrategyNone {
		t.Fatalf("result: got %+v", r)
	}
	if got := f.notifier.Messages(); len(got) != 1 || got[0] != ui.MsgHelpShortcuts {
		t.Fatalf("alerts: %v", got)
	}
}

func TestExecute_FailureOnMobileShowsKeyboardHelp(t *testing.T) {
	f := newFixture()
	e := f.executor(platform.Capabilities{Mobile: true})
	f.run(t, e, platform.OpPaste)
	if f.notifier.Count(ui.MsgHelpOnScreenKeyboard) != 1 {
		t.Fatalf("alerts: %v", f.notifier.Messages())
	}
}

func TestExecute_PasteHostBridge(t *testing.T) {
	f := newFixture()
	var posted []platform.Op
	pasterCalled := 0
	e := f.executor(platform.Capabilities{
		Bridge: platform.BridgeFunc(func(_ context.Context, op platform.Op) error {
			posted = append(posted, op)
			return nil
		}),
		Paster: platform.PasterFunc(func(context.Context) error {
			pasterCalled++
			// The wrapper delivers asynchronously; the paste handler bumps.
			f.serial.Bump()
			return nil
		}),
	})

	r := f.run(t, e, platform.OpPaste)
	if !r.Executed || r.Strategy != StrategyDeferred {
		t.Fatalf("result: got %+v", r)
	}
	if len(posted) != 1 || posted[0] != platform.OpPaste || pasterCalled != 1 {
		t.Fatalf("hooks: posted=%v paster=%d", posted, pasterCalled)
	}
	if f.pasted != 1 {
		t.Fatalf("OnPaste calls: got %d", f.pasted)
	}
	if len(f.notifier.Messages()) != 0 {
		t.Fatalf("alerts: %v", f.notifier.Messages())
	}
}

func TestExecute_HookErrorsSkipped(t *testing.T) {
	f := newFixture()
	called := false
	e := f.executor(platform.Capabilities{
		Bridge: platform.BridgeFunc(func(context.Context, platform.Op) error {
			return errors.New("security error")
		}),
		Paster: platform.PasterFunc(func(context.Context) error {
			called = true
			return platform.ErrNoHook
		}),
	})
	r := f.run(t, e, platform.OpPaste)
	if r.Executed || !called {
		t.Fatalf("result %+v, paster called %v", r, called)
	}
	if f.notifier.Count(ui.MsgHelpShortcuts) != 1 {
		t.Fatalf("alerts: %v", f.notifier.Messages())
	}
}

func TestExecute_CopyNeverUsesBridge(t *testing.T) {
	f := newFixture()
	e := f.executor(platform.Capabilities{
		Bridge: platform.BridgeFunc(func(context.Context, platform.Op) error {
			t.Error("bridge called for copy")
			return nil
		}),
	})
	f.run(t, e, platform.OpCopy)
}

func TestExecute_GraceWindowNotElapsed(t *testing.T) {
	f := newFixture()
	e := f.executor(platform.Capabilities{})
	done := make(chan Result, 1)
	go func() { done <- e.Execute(context.Background(), platform.OpCopy) }()

	f.clk.WaitForTimers(1)
	f.clk.Advance(DefaultGraceWindow - time.Millisecond)
	select {
	case r := <-done:
		t.Fatalf("settled early: %+v", r)
	case <-time.After(20 * time.Millisecond):
	}
	f.clk.Advance(time.Millisecond)
	if r := <-done; r.Executed {
		t.Fatalf("result: got %+v", r)
	}
}

func TestExecute_Cancelled(t *testing.T) {
	f := newFixture()
	e := f.executor(platform.Capabilities{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() { done <- e.Execute(ctx, platform.OpCopy) }()
	f.clk.WaitForTimers(1)
	cancel()
	if r := <-done; r.Executed {
		t.Fatalf("result: got %+v", r)
	}
	if f.clk.Pending() != 0 {
		t.Fatal("grace timer left pending")
	}
	if len(f.notifier.Messages()) != 0 {
		t.Fatal("cancelled execution alerted")
	}
}

func TestFilterCommand(t *testing.T) {
	f := newFixture()
	ops := make(chan platform.Op, 3)
	e := f.executor(platform.Capabilities{
		Commander: platform.CommanderFunc(func(_ context.Context, op platform.Op) (bool, error) {
			ops <- op
			f.serial.Bump()
			return true, nil
		}),
	})
	for cmd, want := range map[string]platform.Op{
		backend.UnoCopy:  platform.OpCopy,
		backend.UnoCut:   platform.OpCut,
		backend.UnoPaste: platform.OpPaste,
	} {
		if !e.FilterCommand(context.Background(), cmd) {
			t.Fatalf("%s not filtered", cmd)
		}
		if got := <-ops; got != want {
			t.Fatalf("%s: got %s, want %s", cmd, got, want)
		}
	}
	if e.FilterCommand(context.Background(), ".uno:Bold") {
		t.Fatal(".uno:Bold filtered")
	}
}
