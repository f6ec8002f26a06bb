// Package assist produces AI modifications for a console.
//
// A Producer turns the current console content and a prompt into a
// patch.Modification. The console then either previews it (ShowDiff) or
// applies it directly (ApplyDirect); producers never touch the console.
//
// Two producers are provided: LLM, backed by any langchaingo model, and
// Script, which runs a sandboxed Lua function.
package assist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dshills/querystorm/internal/engine/patch"
)

// Errors returned by producers.
var (
	ErrEmptyPrompt      = errors.New("empty prompt")
	ErrEmptyResponse    = errors.New("producer returned no modification")
	ErrInvalidResponse  = errors.New("producer returned an invalid modification")
	ErrProducerNotFound = errors.New("producer not found")
)

// Request is the input to a producer.
type Request struct {
	ConsoleID string `json:"console_id"`
	Content   string `json:"content"`
	Prompt    string `json:"prompt"`
}

// Producer suggests a modification for a console.
type Producer interface {
	// Name identifies the producer in requests and logs.
	Name() string

	// Suggest returns a modification for req.Content. It must not block
	// past ctx's deadline.
	Suggest(ctx context.Context, req Request) (patch.Modification, error)
}

// Set holds the producers available to the application, keyed by name.
type Set struct {
	mu        sync.RWMutex
	producers map[string]Producer
	fallback  string
}

// NewSet creates a set. The first producer registered becomes the default.
func NewSet(producers ...Producer) *Set {
	s := &Set{producers: make(map[string]Producer)}
	for _, p := range producers {
		s.Register(p)
	}
	return s
}

// Register adds or replaces a producer.
func (s *Set) Register(p Producer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fallback == "" {
		s.fallback = p.Name()
	}
	s.producers[p.Name()] = p
}

// Get returns the named producer. An empty name selects the default.
func (s *Set) Get(name string) (Producer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if name == "" {
		name = s.fallback
	}
	p, ok := s.producers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProducerNotFound, name)
	}
	return p, nil
}

// Names returns the registered names in sorted order.
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.producers))
	for name := range s.producers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered producers.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.producers)
}

// Suggest runs the named producer and validates its result.
func (s *Set) Suggest(ctx context.Context, name string, req Request) (patch.Modification, error) {
	p, err := s.Get(name)
	if err != nil {
		return patch.Modification{}, err
	}
	mod, err := p.Suggest(ctx, req)
	if err != nil {
		return patch.Modification{}, fmt.Errorf("%s: %w", p.Name(), err)
	}
	if err := mod.Validate(); err != nil {
		return patch.Modification{}, fmt.Errorf("%s: %w: %v", p.Name(), ErrInvalidResponse, err)
	}
	return mod, nil
}
