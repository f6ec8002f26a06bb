package console

import (
	"sync"

	"github.com/zeebo/xxh3"
)

// dirtyTracker compares the hash of the live content with the hash of the
// last persisted content. It has its own lock because surface echoes update
// it while the console lock is held by the writer.
type dirtyTracker struct {
	mu        sync.Mutex
	current   uint64
	persisted uint64
}

func newDirtyTracker(content string) *dirtyTracker {
	h := hashContent(content)
	return &dirtyTracker{current: h, persisted: h}
}

func hashContent(content string) uint64 {
	return xxh3.HashString(content)
}

func (d *dirtyTracker) update(content string) {
	h := hashContent(content)
	d.mu.Lock()
	d.current = h
	d.mu.Unlock()
}

func (d *dirtyTracker) markPersisted(content string) {
	h := hashContent(content)
	d.mu.Lock()
	d.persisted = h
	d.mu.Unlock()
}

func (d *dirtyTracker) dirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current != d.persisted
}
