package console

import "time"

// Clock abstracts time for debouncing.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending delayed call.
type Timer interface {
	Stop() bool
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// debounceHandle is the trailing timer of a burst. Every arm or cancel bumps
// the generation, so a callback that was already running when it was
// replaced sees a stale generation and does nothing.
//
// Callers hold the console lock.
type debounceHandle struct {
	timer Timer
	gen   uint64
}

func (h *debounceHandle) arm(clock Clock, d time.Duration, fire func(gen uint64)) {
	h.cancel()
	gen := h.gen
	h.timer = clock.AfterFunc(d, func() { fire(gen) })
}

func (h *debounceHandle) cancel() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.gen++
}

func (h *debounceHandle) current(gen uint64) bool {
	return h.timer != nil && h.gen == gen
}

func (h *debounceHandle) pending() bool {
	return h.timer != nil
}
