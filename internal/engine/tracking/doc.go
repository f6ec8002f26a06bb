// Package tracking computes line-level differences between two versions of
// a console buffer.
//
// The diff is used to present an AI suggestion before it is accepted:
//
//	result := tracking.Compute(original, modified, tracking.DefaultDiffOptions())
//	if result.HasChanges() {
//	    fmt.Print(tracking.Unified(result, "current", "suggested"))
//	}
//
// Hunk lines carry a one-character prefix: ' ' for context, '-' for lines
// only in the old text and '+' for lines only in the new text.
//
// Inputs up to MaxLines lines are compared with the Myers algorithm. Larger
// inputs fall back to a prefix/suffix comparison that is linear in size but
// reports the whole middle section as changed.
package tracking
