// Package debounce keeps at most one pending timer per kind. Triggering
// again cancels the pending call and starts a fresh window instead of
// stacking a second one.
package debounce

import (
	"sync"
	"time"

	"github.com/hazyhaar/clipbridge/clock"
)

// Timer runs fn once the window elapses without a further Trigger.
type Timer struct {
	mu     sync.Mutex
	clk    clock.Clock
	window time.Duration
	fn     func()
	timer  *clock.Timer
	gen    uint64
}

// New returns an idle Timer. A nil clock means clock.Real().
func New(clk clock.Clock, window time.Duration, fn func()) *Timer {
	if clk == nil {
		clk = clock.Real()
	}
	return &Timer{clk: clk, window: window, fn: fn}
}

// Trigger cancels any pending call and (re)starts the window.
func (t *Timer) Trigger() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = t.clk.AfterFunc(t.window, func() { t.fire(gen) })
}

// TriggerIfIdle starts the window only when nothing is pending. It
// reports whether a new window was started.
func (t *Timer) TriggerIfIdle() bool {
	t.mu.Lock()
	if t.timer != nil {
		t.mu.Unlock()
		return false
	}
	t.mu.Unlock()
	t.Trigger()
	return true
}

// Cancel drops the pending call, if any. It reports whether one was
// pending.
func (t *Timer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer == nil {
		return false
	}
	t.timer.Stop()
	t.timer = nil
	t.gen++
	return true
}

// Pending reports whether a call is scheduled.
func (t *Timer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	// A Trigger or Cancel raced the expiry.
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	fn := t.fn
	t.mu.Unlock()

	if fn != nil {
		fn()
	}
}
