package preview

import (
	"sync"

	"github.com/dshills/querystorm/internal/engine/patch"
	"github.com/dshills/querystorm/internal/engine/tracking"
)

// Status is the state of a Session.
type Status uint8

const (
	// Idle means no suggestion is pending.
	Idle Status = iota

	// Previewing means a suggestion is waiting for Accept or Reject.
	Previewing
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Previewing:
		return "previewing"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is what Accept hands back to the caller.
type Result struct {
	Original     string             `json:"original"`
	Modified     string             `json:"modified"`
	Modification patch.Modification `json:"modification"`
}

// Session is a two-state preview of one modification.
type Session struct {
	mu      sync.Mutex
	status  Status
	pending PreviewingDiff
	opts    tracking.DiffOptions
}

// NewSession creates an idle session. Diffs use tracking.DefaultDiffOptions.
func NewSession() *Session {
	return &Session{opts: tracking.DefaultDiffOptions()}
}

// SetDiffOptions changes the options used for diffs computed by later calls to Show.
func (s *Session) SetDiffOptions(opts tracking.DiffOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = opts
}

// Show computes the modified content and enters Previewing.
//
// Calling Show while already previewing discards the earlier suggestion;
// replaced reports whether that happened.
func (s *Session) Show(original string, mod patch.Modification) (diff PreviewingDiff, replaced bool) {
	modified := patch.Apply(original, mod)

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced = s.status == Previewing
	s.pending = PreviewingDiff{
		Original:     original,
		Modified:     modified,
		Modification: mod,
		Diff:         tracking.Compute(original, modified, s.opts),
	}
	s.status = Previewing
	return s.pending, replaced
}

// Accept returns the pending suggestion and goes back to Idle.
// It reports false when nothing is pending.
func (s *Session) Accept() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != Previewing {
		return Result{}, false
	}
	res := Result{
		Original:     s.pending.Original,
		Modified:     s.pending.Modified,
		Modification: s.pending.Modification,
	}
	s.clearLocked()
	return res, true
}

// Reject discards the pending suggestion.
// It reports false when nothing is pending.
func (s *Session) Reject() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != Previewing {
		return false
	}
	s.clearLocked()
	return true
}

func (s *Session) clearLocked() {
	s.status = Idle
	s.pending = PreviewingDiff{}
}

// Status returns the current state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// IsPreviewing returns true while a suggestion is pending.
func (s *Session) IsPreviewing() bool {
	return s.Status() == Previewing
}

// Pending returns the pending suggestion, if any.
func (s *Session) Pending() (PreviewingDiff, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != Previewing {
		return PreviewingDiff{}, false
	}
	return s.pending, true
}

// View returns what a presentation layer should show.
func (s *Session) View() View {
	if p, ok := s.Pending(); ok {
		return p
	}
	return Editing{}
}
