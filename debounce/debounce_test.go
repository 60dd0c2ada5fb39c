package debounce

import (
	"testing"
	"time"

	"github.com/hazyhaar/clipbridge/clock"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestTrigger_FiresAfterWindow(t *testing.T) {
	clk := clock.Fake(epoch)
	calls := 0
	d := New(clk, 15*time.Second, func() { calls++ })

	d.Trigger()
	if !d.Pending() {
		t.Fatal("Pending: got false after Trigger")
	}
	clk.Advance(14 * time.Second)
	if calls != 0 {
		t.Fatalf("calls before window: got %d", calls)
	}
	clk.Advance(time.Second)
	if calls != 1 {
		t.Fatalf("calls after window: got %d, want 1", calls)
	}
	if d.Pending() {
		t.Fatal("Pending: got true after fire")
	}
}

func TestTrigger_Reschedules(t *testing.T) {
	clk := clock.Fake(epoch)
	calls := 0
	d := New(clk, 10*time.Second, func() { calls++ })

	d.Trigger()
	clk.Advance(8 * time.Second)
	d.Trigger()
	clk.Advance(8 * time.Second)
	if calls != 0 {
		t.Fatalf("rescheduled timer fired early: calls=%d", calls)
	}
	if clk.Pending() != 1 {
		t.Fatalf("pending timers: got %d, want 1", clk.Pending())
	}
	clk.Advance(2 * time.Second)
	if calls != 1 {
		t.Fatalf("calls: got %d, want 1", calls)
	}
}

func TestTriggerIfIdle(t *testing.T) {
	clk := clock.Fake(epoch)
	calls := 0
	d := New(clk, time.Second, func() { calls++ })

	if !d.TriggerIfIdle() {
		t.Fatal("first TriggerIfIdle: got false")
	}
	if d.TriggerIfIdle() {
		t.Fatal("second TriggerIfIdle: got true while pending")
	}
	clk.Advance(time.Second)
	if calls != 1 {
		t.Fatalf("calls: got %d, want 1", calls)
	}
}

func TestCancel(t *testing.T) {
	clk := clock.Fake(epoch)
	calls := 0
	d := New(clk, time.Second, func() { calls++ })

	if d.Cancel() {
		t.Fatal("Cancel on idle timer: got true")
	}
	d.Trigger()
	if !d.Cancel() {
		t.Fatal("Cancel on pending timer: got false")
	}
	clk.Advance(time.Minute)
	if calls != 0 {
		t.Fatalf("cancelled timer fired: calls=%d", calls)
	}
}
