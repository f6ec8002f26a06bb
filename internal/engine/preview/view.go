package preview

import (
	"github.com/dshills/querystorm/internal/engine/patch"
	"github.com/dshills/querystorm/internal/engine/tracking"
)

// View is the presentation state of a console: either Editing or
// PreviewingDiff.
type View interface {
	// Status returns the session status this view corresponds to.
	Status() Status

	isView()
}

// Editing is the view when no suggestion is pending.
type Editing struct{}

// Status returns Idle.
func (Editing) Status() Status { return Idle }

func (Editing) isView() {}

// PreviewingDiff is the view while a suggestion is pending.
type PreviewingDiff struct {
	Original     string              `json:"original"`
	Modified     string              `json:"modified"`
	Modification patch.Modification  `json:"modification"`
	Diff         tracking.DiffResult `json:"diff"`
}

// Status returns Previewing.
func (PreviewingDiff) Status() Status { return Previewing }

func (PreviewingDiff) isView() {}

// Unified returns the pending change in unified diff format.
func (p PreviewingDiff) Unified() string {
	return tracking.Unified(p.Diff, "current", "suggested")
}
