package console

import (
	"sort"
	"sync"
	"testing"
	"time"
)

// fakeClock fires timers only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward and runs due timers in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

// Active returns the number of timers that have neither fired nor been stopped.
func (c *fakeClock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func TestDebounceHandleIgnoresStaleGeneration(t *testing.T) {
	clock := newFakeClock()
	var h debounceHandle
	var fired []uint64

	h.arm(clock, time.Second, func(gen uint64) { fired = append(fired, gen) })
	first := clock.timers[0]
	h.arm(clock, time.Second, func(gen uint64) { fired = append(fired, gen) })

	if !first.stopped {
		t.Error("re-arming should stop the previous timer")
	}

	// A callback that was already running when it was replaced
	first.f()
	if len(fired) != 1 || h.current(fired[0]) {
		t.Errorf("stale callback should see an old generation, fired=%v", fired)
	}

	clock.Advance(time.Second)
	if len(fired) != 2 || !h.current(fired[1]) {
		t.Errorf("live callback should see the current generation, fired=%v", fired)
	}

	h.cancel()
	if h.pending() || h.current(fired[1]) {
		t.Error("cancel should invalidate the handle")
	}
}
