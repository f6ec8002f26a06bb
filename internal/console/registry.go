package console

import (
	"sort"
	"sync"
	"time"
)

// Registry maps console ids to open consoles.
type Registry struct {
	mu       sync.RWMutex
	consoles map[string]*Console
	defaults []Option

	// Set at runtime; applied after defaults.
	debounce    time.Duration
	maxVersions int
}

// NewRegistry creates an empty registry. defaults are applied to every
// console it opens, before the options given to Open.
func NewRegistry(defaults ...Option) *Registry {
	return &Registry{
		consoles: make(map[string]*Console),
		defaults: defaults,
	}
}

// Open returns the console for id, creating it on surface if it is not
// open yet. created is false when an existing console was returned; the
// surface argument is then ignored.
func (r *Registry) Open(id string, surface Surface, opts ...Option) (c *Console, created bool, err error) {
	if id == "" {
		return nil, false, ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.consoles[id]; ok {
		return existing, false, nil
	}

	all := make([]Option, 0, len(r.defaults)+len(opts)+2)
	all = append(all, r.defaults...)
	if r.debounce > 0 {
		all = append(all, WithDebounce(r.debounce))
	}
	if r.maxVersions > 0 {
		all = append(all, WithMaxVersions(r.maxVersions))
	}
	all = append(all, opts...)
	c = New(id, surface, all...)
	r.consoles[id] = c
	return c, true, nil
}

// Get returns the open console for id.
func (r *Registry) Get(id string) (*Console, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.consoles[id]
	if !ok {
		return nil, ErrConsoleNotFound
	}
	return c, nil
}

// Close closes and forgets the console for id.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	c, ok := r.consoles[id]
	delete(r.consoles, id)
	r.mu.Unlock()

	if !ok {
		return ErrConsoleNotFound
	}
	c.Close()
	return nil
}

// CloseAll closes every open console.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	open := r.consoles
	r.consoles = make(map[string]*Console)
	r.mu.Unlock()

	for _, c := range open {
		c.Close()
	}
}

// IDs returns the ids of open consoles in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.consoles))
	for id := range r.consoles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of open consoles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.consoles)
}

// Each calls fn for every open console.
func (r *Registry) Each(fn func(*Console)) {
	r.mu.RLock()
	list := make([]*Console, 0, len(r.consoles))
	for _, c := range r.consoles {
		list = append(list, c)
	}
	r.mu.RUnlock()

	for _, c := range list {
		fn(c)
	}
}

// SetDebounce changes the debounce interval of open consoles and of
// consoles opened later.
func (r *Registry) SetDebounce(d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	r.debounce = d
	r.mu.Unlock()

	r.Each(func(c *Console) { c.SetDebounce(d) })
}

// SetMaxVersions changes the version cap of open consoles and of consoles
// opened later.
func (r *Registry) SetMaxVersions(n int) {
	if n <= 0 {
		return
	}
	r.mu.Lock()
	r.maxVersions = n
	r.mu.Unlock()

	r.Each(func(c *Console) { c.SetMaxVersions(n) })
}
