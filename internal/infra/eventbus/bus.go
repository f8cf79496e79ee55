// Package eventbus implements the synchronous notification bus the engine
// publishes to. Delivery happens on the publisher's goroutine, in
// subscription order; a failing handler never blocks the ones after it.
package eventbus

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/attnlab/dopamind/internal/domain"
)

// Handler consumes one event. A returned error is logged, not propagated.
type Handler func(domain.Event) error

type subscription struct {
	id      uint64
	kind    domain.EventKind // empty = all kinds
	handler Handler
}

// Bus is an in-process publish/subscribe channel.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
	closed bool
	logger *slog.Logger
	stats  Stats
}

// Stats counts deliveries since construction.
type Stats struct {
	Published int64 `json:"published"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
}

// New creates a bus. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger.With("component", "eventbus")}
}

// Subscribe registers h for one event kind and returns an unsubscribe func.
func (b *Bus) Subscribe(kind domain.EventKind, h Handler) (func(), error) {
	return b.add(kind, h)
}

// SubscribeAll registers h for every event kind.
func (b *Bus) SubscribeAll(h Handler) (func(), error) {
	return b.add("", h)
}

// On subscribes a handler typed on a concrete event struct.
func On[T domain.Event](b *Bus, h func(T) error) (func(), error) {
	var zero T
	return b.Subscribe(zero.Kind(), func(e domain.Event) error {
		ev, ok := e.(T)
		if !ok {
			return fmt.Errorf("unexpected event type %T for %s", e, zero.Kind())
		}
		return h(ev)
	})
}

func (b *Bus) add(kind domain.EventKind, h Handler) (func(), error) {
	if h == nil {
		return nil, errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, domain.ErrBusClosed
	}

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, kind: kind, handler: h})

	return func() { b.remove(id) }, nil
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers event to every matching handler before returning.
func (b *Bus) Publish(event domain.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return domain.ErrBusClosed
	}
	targets := make([]subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.kind == "" || s.kind == event.Kind() {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	var delivered, failed int64
	for _, s := range targets {
		if err := b.deliver(s.handler, event); err != nil {
			failed++
			b.logger.Error("handler error", "event_kind", event.Kind(), "error", err)
			continue
		}
		delivered++
	}

	b.mu.Lock()
	b.stats.Published++
	b.stats.Delivered += delivered
	b.stats.Failed += failed
	b.mu.Unlock()

	return nil
}

// deliver runs one handler, turning a panic into an error.
func (b *Bus) deliver(h Handler, event domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(event)
}

// Stats returns delivery counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stats
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close drops all subscriptions; later Publish calls fail with ErrBusClosed.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.subs = nil
	b.logger.Info("event bus closed")
	return nil
}
