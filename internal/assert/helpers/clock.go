package helpers

import (
	"sync"
	"time"

	"github.com/aiinpocket/n3n/editor/internal/persist"
)

type (
	// FakeClock is a manually advanced clock for deterministic
	// coordinator tests
	FakeClock struct {
		now time.Time
		mu  sync.Mutex
	}

	// FakeTimer is a manually fired debounce timer. Reset and Stop only
	// record state; tests trigger expiry with Fire
	FakeTimer struct {
		ch     chan time.Time
		resets int
		armed  bool
		mu     sync.Mutex
	}
)

// NewFakeClock creates a clock starting at a fixed instant
func NewFakeClock() *FakeClock {
	return &FakeClock{
		now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Now returns the clock's current instant
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// NewFakeTimer creates an unarmed fake timer
func NewFakeTimer() *FakeTimer {
	return &FakeTimer{
		ch: make(chan time.Time, 1),
	}
}

// Constructor returns a TimerConstructor that always yields this timer
func (t *FakeTimer) Constructor() persist.TimerConstructor {
	return func(time.Duration) persist.Timer {
		return t
	}
}

func (t *FakeTimer) Channel() <-chan time.Time {
	return t.ch
}

func (t *FakeTimer) Reset(time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := t.armed
	t.armed = true
	t.resets++
	return was
}

func (t *FakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := t.armed
	t.armed = false
	return was
}

// Fire simulates the debounce window elapsing. Returns false when the
// timer was not armed
func (t *FakeTimer) Fire() bool {
	t.mu.Lock()
	if !t.armed {
		t.mu.Unlock()
		return false
	}
	t.armed = false
	t.mu.Unlock()

	t.ch <- time.Now()
	return true
}

// Resets reports how many times the timer has been re-armed
func (t *FakeTimer) Resets() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resets
}

// IsArmed reports whether the timer is currently armed
func (t *FakeTimer) IsArmed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}
