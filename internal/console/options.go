package console

import (
	"time"

	"github.com/dshills/querystorm/internal/engine/history"
	"github.com/dshills/querystorm/internal/event"
	"github.com/dshills/querystorm/internal/logging"
)

// DefaultDebounce is the quiet period that ends a burst of edits.
const DefaultDebounce = 500 * time.Millisecond

// InitialDescription describes the version seeded when a console opens.
const InitialDescription = "Initial content"

// Option configures a Console.
type Option func(*settings)

type settings struct {
	clock       Clock
	debounce    time.Duration
	maxVersions int
	seed        bool
	logger      *logging.Logger
	bus         *event.Bus
	persister   Persister
	idGen       func() string
}

func defaultSettings() settings {
	return settings{
		clock:       SystemClock(),
		debounce:    DefaultDebounce,
		maxVersions: history.DefaultMaxEntries,
		seed:        true,
		logger:      logging.Nop(),
	}
}

// WithClock sets the clock used for debouncing and version timestamps.
func WithClock(c Clock) Option {
	return func(s *settings) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithDebounce sets the quiet period that ends a burst.
func WithDebounce(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithMaxVersions caps the number of retained versions.
func WithMaxVersions(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxVersions = n
		}
	}
}

// WithSeed controls whether the opening content is recorded as the first version.
func WithSeed(seed bool) Option {
	return func(s *settings) { s.seed = seed }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBus publishes console events on b.
func WithBus(b *event.Bus) Option {
	return func(s *settings) { s.bus = b }
}

// WithPersister sets the collaborator used by Persist.
func WithPersister(p Persister) Option {
	return func(s *settings) { s.persister = p }
}

// WithVersionIDs sets the version id generator. Used by tests.
func WithVersionIDs(fn func() string) Option {
	return func(s *settings) { s.idGen = fn }
}
