// Package console ties an editing surface to its version history and to
// the AI suggestion preview.
//
// # Consoles
//
// A Console owns one history.Manager and one preview.Session. The surface
// reports every content change through HandleChange; the console writes back
// to the surface for undo, redo, restore and accepted suggestions. Those
// writes carry ModeProgrammaticWrite and the surface echoes the mode in the
// Change it reports, so they are never recorded as user versions.
//
// # Debounce
//
// The first change after a quiet period records the content as it was before
// the change (usually already the current version, so nothing is added) and
// starts a burst. Every change in the burst re-arms a trailing timer; when it
// fires the final content is saved once. Undo, redo, restore, persist and
// close flush a pending burst first.
//
// # Dirty state
//
// A console is dirty when the xxh3 hash of its content differs from the hash
// of the last content reported persisted. Persist only advances that hash
// when the Persister succeeds.
//
// # Registry
//
// Registry maps console ids to open consoles and applies shared options to
// each one it opens.
package console
