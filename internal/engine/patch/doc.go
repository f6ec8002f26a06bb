// Package patch computes console content from structured edit instructions.
//
// A Modification is one of three kinds:
//
//   - replace: the buffer becomes the given content
//   - append:  the content is added after the buffer, separated by exactly one newline
//   - insert:  the content is spliced in at a 1-indexed line/column, or prepended
//     when no position is given
//
// Apply is pure and deterministic. The diff preview and the live commit path
// both call it, so what a user previews is exactly what gets committed.
package patch
