package history

import (
	"time"

	"github.com/google/uuid"
)

// DefaultMaxEntries is the default cap on retained versions.
const DefaultMaxEntries = 500

// Option configures a Manager.
type Option func(*Manager)

// WithMaxEntries caps the number of retained entries.
// Values <= 0 keep the default.
func WithMaxEntries(max int) Option {
	return func(m *Manager) {
		if max > 0 {
			m.maxEntries = max
		}
	}
}

// WithClock sets the time source used for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator sets the function used to create entry ids.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) {
		if gen != nil {
			m.newID = gen
		}
	}
}

func defaultIDGenerator() string {
	return uuid.NewString()
}
