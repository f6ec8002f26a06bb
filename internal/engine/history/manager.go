package history

import (
	"sync"
	"time"
)

// Manager owns the linear version history of one console.
//
// Every method is synchronous and never fails; operations that cannot be
// performed (undo at the oldest entry, unknown ids) report false and leave
// the state unchanged.
type Manager struct {
	mu sync.Mutex

	entries []Entry
	cursor  int // -1 when empty
	seq     int

	// Configuration
	maxEntries int
	now        func() time.Time
	newID      func() string
}

// NewManager creates an empty history.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		cursor:     -1,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
		newID:      defaultIDGenerator,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Save records content as a new version.
//
// If content equals the entry at the cursor nothing happens and ok is false.
// Otherwise every entry after the cursor is discarded, the new entry is
// appended and the cursor moves to it.
func (m *Manager) Save(content string, origin Origin, description string) (entry Entry, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor >= 0 && m.entries[m.cursor].Content == content {
		return Entry{}, false
	}

	if !origin.Valid() {
		origin = OriginUser
	}
	if description == "" {
		description = origin.DefaultDescription()
	}

	// Drop the redo branch
	if m.cursor < len(m.entries)-1 {
		m.entries = m.entries[:m.cursor+1]
	}

	m.seq++
	entry = Entry{
		ID:          m.newID(),
		Content:     content,
		Origin:      origin,
		Description: description,
		Timestamp:   m.now(),
		Sequence:    m.seq,
	}
	m.entries = append(m.entries, entry)
	m.cursor = len(m.entries) - 1

	m.enforceMaxLocked()
	return entry, true
}

// enforceMaxLocked trims the history to maxEntries without ever evicting the
// cursor entry: the oldest entries go first, then the newest redo entries.
func (m *Manager) enforceMaxLocked() {
	if len(m.entries) <= m.maxEntries {
		return
	}
	excess := len(m.entries) - m.maxEntries
	older := min(excess, m.cursor)
	end := older + m.maxEntries

	kept := make([]Entry, m.maxEntries)
	copy(kept, m.entries[older:end])
	m.entries = kept
	m.cursor -= older
}

// Undo moves the cursor back one entry and returns its content.
func (m *Manager) Undo() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor <= 0 {
		return "", false
	}
	m.cursor--
	return m.entries[m.cursor].Content, true
}

// Redo moves the cursor forward one entry and returns its content.
func (m *Manager) Redo() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor < 0 || m.cursor >= len(m.entries)-1 {
		return "", false
	}
	m.cursor++
	return m.entries[m.cursor].Content, true
}

// CanUndo returns true if there is an older entry before the cursor.
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor > 0
}

// CanRedo returns true if there is a newer entry after the cursor.
func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor >= 0 && m.cursor < len(m.entries)-1
}

// Restore moves the cursor to the entry with the given id and returns its
// content. Entries on both sides of the cursor are kept.
func (m *Manager) Restore(id string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.entries {
		if m.entries[i].ID == id {
			m.cursor = i
			return m.entries[i].Content, true
		}
	}
	return "", false
}

// Get returns the entry with the given id.
func (m *Manager) Get(id string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Current returns the entry at the cursor.
func (m *Manager) Current() (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor < 0 {
		return Entry{}, false
	}
	return m.entries[m.cursor], true
}

// History returns a copy of all entries, oldest first.
func (m *Manager) History() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]Entry, len(m.entries))
	copy(result, m.entries)
	return result
}

// Infos returns the listing view of all entries with the current one marked.
func (m *Manager) Infos() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]Info, len(m.entries))
	for i, e := range m.entries {
		result[i] = e.Info()
		result[i].Current = i == m.cursor
	}
	return result
}

// Len returns the number of entries.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Cursor returns the index of the current entry, or -1 when empty.
func (m *Manager) Cursor() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor
}

// IsEmpty returns true if no entries have been saved.
func (m *Manager) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries) == 0
}

// Clear removes all entries.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = nil
	m.cursor = -1
}

// SetMaxEntries changes the maximum number of retained entries.
// If the history is larger, entries before the cursor are removed first,
// then redo entries; the current entry is always kept.
func (m *Manager) SetMaxEntries(max int) {
	if max <= 0 {
		max = DefaultMaxEntries
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.maxEntries = max
	m.enforceMaxLocked()
}

// MaxEntries returns the maximum number of retained entries.
func (m *Manager) MaxEntries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxEntries
}
