// Package history provides the linear version history behind a query console.
//
// A Manager keeps an ordered list of immutable snapshots (entries) of a console
// buffer plus a cursor pointing at the entry that matches the visible buffer.
// Key concepts:
//
// # Entries
//
// An Entry records the full buffer content together with its origin (a human
// edit or an applied AI modification), a description, a timestamp and a
// per-manager sequence number. Entries are values; the manager never hands out
// references into its own storage.
//
// # Saving
//
// Save appends a new entry and moves the cursor to it. Saving content equal to
// the entry at the cursor is a no-op. Saving while the cursor is not at the
// tail discards every entry after the cursor:
//
//	m := NewManager()
//	m.Save("select 1", OriginUser, "")
//	m.Save("select 2", OriginUser, "")
//	m.Undo()                            // cursor -> "select 1"
//	m.Save("select 3", OriginUser, "")  // "select 2" is gone
//
// # Browsing
//
// Restore moves the cursor directly to any entry by id without discarding
// anything, so a later Redo still walks forward through the old entries.
package history
