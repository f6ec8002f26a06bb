// Package preview holds an AI suggestion for review before it reaches the
// live buffer.
//
// A Session is Idle until Show computes the suggested content. While it is
// Previewing, Accept hands the original and modified content back to the
// caller and Reject discards them; both return the session to Idle. The
// session never writes to the buffer or the history itself.
package preview
