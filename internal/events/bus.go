// Package events is an in-process publish/subscribe bus for workflow
// lifecycle notifications. Metrics and logging observe the workflow through
// it without the store knowing about either.
package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/valksor/go-phaseflow/internal/log"
)

// maxAsyncPublishes bounds the number of concurrently running async handlers.
const maxAsyncPublishes = 100

// Handler receives published events
type Handler func(Event)

type subscription struct {
	id string
	fn Handler
}

// Bus dispatches events to subscribers
type Bus struct {
	mu          sync.RWMutex
	handlers    map[Type][]subscription
	allHandlers []subscription

	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBus creates an empty bus
func NewBus() *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		handlers:    make(map[Type][]subscription),
		allHandlers: make([]subscription, 0),
		sem:         semaphore.NewWeighted(maxAsyncPublishes),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Subscribe registers fn for one event type and returns its subscription ID
func (b *Bus) Subscribe(t Type, fn Handler) string {
	id := uuid.NewString()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], subscription{id: id, fn: fn})

	return id
}

// SubscribeAll registers fn for every event type
func (b *Bus) SubscribeAll(fn Handler) string {
	id := uuid.NewString()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.allHandlers = append(b.allHandlers, subscription{id: id, fn: fn})

	return id
}

// Unsubscribe removes a subscription. Unknown IDs are ignored.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for t, subs := range b.handlers {
		b.handlers[t] = removeSub(subs, id)
		if len(b.handlers[t]) == 0 {
			delete(b.handlers, t)
		}
	}
	b.allHandlers = removeSub(b.allHandlers, id)
}

func removeSub(subs []subscription, id string) []subscription {
	out := subs[:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// HasSubscribers reports whether any handler would receive events of type t
func (b *Bus) HasSubscribers(t Type) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[t]) > 0 || len(b.allHandlers) > 0
}

// Clear removes every subscription
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[Type][]subscription)
	b.allHandlers = make([]subscription, 0)
}

// Publish delivers a typed event synchronously
func (b *Bus) Publish(e Eventer) {
	b.PublishRaw(e.ToEvent())
}

// PublishRaw delivers an event synchronously
func (b *Bus) PublishRaw(e Event) {
	for _, fn := range b.snapshot(e.Type) {
		b.invoke(fn, e)
	}
}

// PublishAsync delivers a typed event on background goroutines
func (b *Bus) PublishAsync(e Eventer) {
	b.PublishRawAsync(e.ToEvent())
}

// PublishRawAsync delivers an event on background goroutines. At most
// maxAsyncPublishes deliveries run at once. Events published after Shutdown
// are dropped.
func (b *Bus) PublishRawAsync(e Event) {
	if b.ctx.Err() != nil {
		log.Debug("event dropped after shutdown", "type", string(e.Type))
		return
	}
	handlers := b.snapshot(e.Type)
	if len(handlers) == 0 {
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := b.sem.Acquire(b.ctx, 1); err != nil {
			return
		}
		defer b.sem.Release(1)
		for _, fn := range handlers {
			b.invoke(fn, e)
		}
	}()
}

// Shutdown waits for every pending async delivery, then stops accepting new
// ones. It is safe to call more than once.
func (b *Bus) Shutdown() {
	b.wg.Wait()
	b.cancel()
}

func (b *Bus) snapshot(t Type) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Handler, 0, len(b.handlers[t])+len(b.allHandlers))
	for _, s := range b.handlers[t] {
		out = append(out, s.fn)
	}
	for _, s := range b.allHandlers {
		out = append(out, s.fn)
	}
	return out
}

func (b *Bus) invoke(fn Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("event handler panicked", "type", string(e.Type), "panic", r)
		}
	}()
	fn(e)
}
