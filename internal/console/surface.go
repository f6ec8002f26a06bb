package console

import (
	"context"
	"sync"
)

// Mode tells whether a content change came from the user or from the console
// writing to the surface.
type Mode uint8

const (
	// ModeNormal is a change made by the user.
	ModeNormal Mode = iota

	// ModeProgrammaticWrite is a change made by the console itself.
	ModeProgrammaticWrite
)

// String returns a human-readable representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeProgrammaticWrite:
		return "programmatic"
	default:
		return "unknown"
	}
}

// Change is a content change reported by a surface.
type Change struct {
	Text string
	Mode Mode
}

// Surface is an editing surface holding the live buffer.
//
// SetValue must report the write back with the same mode, either through
// Console.HandleChange or not at all.
type Surface interface {
	Value() string
	SetValue(text string, mode Mode)
}

// Notifier is implemented by surfaces that deliver their own change events.
type Notifier interface {
	OnChange(fn func(Change))
}

// Persister stores the current content of a console.
type Persister interface {
	Persist(ctx context.Context, consoleID, content string) error
}

// Loader reads the last persisted content of a console.
type Loader interface {
	Load(ctx context.Context, consoleID string) (content string, found bool, err error)
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(ctx context.Context, consoleID, content string) error

// Persist implements Persister.
func (f PersisterFunc) Persist(ctx context.Context, consoleID, content string) error {
	return f(ctx, consoleID, content)
}

// MemorySurface is an in-memory Surface. It mirrors a remote editor for the
// HTTP API and stands in for a real editor in tests.
type MemorySurface struct {
	mu      sync.Mutex
	text    string
	handler func(Change)
	writes  int
}

// NewMemorySurface creates a surface holding text.
func NewMemorySurface(text string) *MemorySurface {
	return &MemorySurface{text: text}
}

// Value returns the buffer content.
func (s *MemorySurface) Value() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// SetValue replaces the buffer and reports the change to the bound handler.
func (s *MemorySurface) SetValue(text string, mode Mode) {
	s.mu.Lock()
	s.text = text
	if mode == ModeProgrammaticWrite {
		s.writes++
	}
	h := s.handler
	s.mu.Unlock()

	if h != nil {
		h(Change{Text: text, Mode: mode})
	}
}

// OnChange implements Notifier.
func (s *MemorySurface) OnChange(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = fn
}

// ProgrammaticWrites returns how many times the console wrote to the surface.
func (s *MemorySurface) ProgrammaticWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
