package event

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Priority determines handler execution order. Lower values execute first.
type Priority int

const (
	// PriorityCritical is for handlers that must observe state first.
	PriorityCritical Priority = 0

	// PriorityHigh is for handlers that feed other subsystems.
	PriorityHigh Priority = 100

	// PriorityNormal is the default priority.
	PriorityNormal Priority = 200

	// PriorityLow is for metrics and logging handlers that run last.
	PriorityLow Priority = 300
)

// HandlerFunc processes an event.
type HandlerFunc func(ctx context.Context, ev Event) error

// ErrorHandler receives handler errors and recovered panics.
type ErrorHandler func(ev Event, err error)

// Subscription is a registered handler.
type Subscription struct {
	id       string
	pattern  Topic
	handler  HandlerFunc
	priority Priority
	filter   func(Event) bool
	once     bool
	seq      uint64
	active   atomic.Bool
}

// ID returns the subscription identifier.
func (s *Subscription) ID() string { return s.id }

// Pattern returns the subscribed topic pattern.
func (s *Subscription) Pattern() Topic { return s.pattern }

// IsActive returns true until the subscription is removed.
func (s *Subscription) IsActive() bool { return s.active.Load() }

// SubscriptionOption configures a subscription.
type SubscriptionOption func(*Subscription)

// WithPriority sets the handler priority.
func WithPriority(p Priority) SubscriptionOption {
	return func(s *Subscription) { s.priority = p }
}

// WithFilter only delivers events for which fn returns true.
func WithFilter(fn func(Event) bool) SubscriptionOption {
	return func(s *Subscription) { s.filter = fn }
}

// Once removes the subscription after its first successful delivery.
func Once() SubscriptionOption {
	return func(s *Subscription) { s.once = true }
}

// Stats contains bus counters.
type Stats struct {
	EventsPublished   uint64
	HandlersExecuted  uint64
	HandlerErrors     uint64
	HandlerPanics     uint64
	ActiveSubscribers int
}

// Bus delivers events synchronously to matching subscriptions.
type Bus struct {
	mu   sync.RWMutex
	subs []*Subscription
	seq  uint64

	onError ErrorHandler

	published atomic.Uint64
	executed  atomic.Uint64
	errors    atomic.Uint64
	panics    atomic.Uint64
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithErrorHandler sets the callback for handler errors and panics.
func WithErrorHandler(h ErrorHandler) BusOption {
	return func(b *Bus) { b.onError = h }
}

// NewBus creates an empty bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers fn for every topic matching pattern.
func (b *Bus) Subscribe(pattern Topic, fn HandlerFunc, opts ...SubscriptionOption) (*Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	if !pattern.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTopic, pattern)
	}

	sub := &Subscription{
		id:       uuid.NewString(),
		pattern:  pattern,
		handler:  fn,
		priority: PriorityNormal,
	}
	for _, opt := range opts {
		opt(sub)
	}
	sub.active.Store(true)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	sub.seq = b.seq
	b.subs = append(b.subs, sub)
	// Stable by priority then registration order
	sort.SliceStable(b.subs, func(i, j int) bool {
		if b.subs[i].priority != b.subs[j].priority {
			return b.subs[i].priority < b.subs[j].priority
		}
		return b.subs[i].seq < b.subs[j].seq
	})
	return sub, nil
}

// Unsubscribe removes a subscription.
func (b *Bus) Unsubscribe(sub *Subscription) error {
	if sub == nil {
		return ErrSubscriptionNotFound
	}
	if !b.remove(sub) {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (b *Bus) remove(sub *Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			sub.active.Store(false)
			return true
		}
	}
	return false
}

// Publish delivers ev to every matching subscription and returns once all
// handlers have run. Handler errors are reported to the error handler, not
// to the caller.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	if !ev.Topic.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, ev.Topic)
	}
	b.published.Add(1)

	for _, sub := range b.match(ev.Topic) {
		if !sub.IsActive() {
			continue
		}
		if sub.filter != nil && !sub.filter(ev) {
			continue
		}

		err := b.deliver(ctx, sub, ev)
		b.executed.Add(1)
		if err != nil {
			b.errors.Add(1)
			if b.onError != nil {
				b.onError(ev, &HandlerError{SubscriptionID: sub.id, Topic: ev.Topic, Err: err})
			}
			continue
		}
		if sub.once {
			b.remove(sub)
		}
	}
	return nil
}

// Emit is shorthand for Publish(ctx, New(t, payload, source)).
func (b *Bus) Emit(ctx context.Context, t Topic, payload any, source string) {
	_ = b.Publish(ctx, New(t, payload, source))
}

func (b *Bus) match(t Topic) []*Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []*Subscription
	for _, s := range b.subs {
		if t.Matches(s.pattern) {
			out = append(out, s)
		}
	}
	return out
}

func (b *Bus) deliver(ctx context.Context, sub *Subscription, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return sub.handler(ctx, ev)
}

// Stats returns current bus counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	active := len(b.subs)
	b.mu.RUnlock()

	return Stats{
		EventsPublished:   b.published.Load(),
		HandlersExecuted:  b.executed.Load(),
		HandlerErrors:     b.errors.Load(),
		HandlerPanics:     b.panics.Load(),
		ActiveSubscribers: active,
	}
}
