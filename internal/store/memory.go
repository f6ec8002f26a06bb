package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process store.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
	closed  bool
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

// Persist implements Store.
func (m *Memory) Persist(ctx context.Context, id, content string) error {
	if err := checkID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.records[id] = Record{
		ConsoleID: id,
		Content:   content,
		Hash:      Hash(content),
		UpdatedAt: m.now(),
	}
	return nil
}

// Load implements Store.
func (m *Memory) Load(ctx context.Context, id string) (string, bool, error) {
	rec, ok, err := m.Record(ctx, id)
	return rec.Content, ok, err
}

// Record implements Store.
func (m *Memory) Record(ctx context.Context, id string) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Record{}, false, ErrClosed
	}
	rec, ok := m.records[id]
	return rec, ok, nil
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	delete(m.records, id)
	return nil
}

// IDs implements Store.
func (m *Memory) IDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close implements Store.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.records = nil
	return nil
}
