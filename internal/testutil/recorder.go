package testutil

import (
	"sync"

	"github.com/valksor/go-phaseflow/internal/events"
)

// EventRecorder captures published events. It satisfies the publisher
// interfaces of the workflow store and the briefing aggregator.
type EventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

// NewEventRecorder creates an empty recorder.
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

// Publish records a typed event.
func (r *EventRecorder) Publish(e events.Eventer) {
	r.PublishRaw(e.ToEvent())
}

// PublishAsync records a typed event. Recording is synchronous so tests can
// assert right after the call returns.
func (r *EventRecorder) PublishAsync(e events.Eventer) {
	r.Publish(e)
}

// PublishRaw records an event.
func (r *EventRecorder) PublishRaw(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far.
func (r *EventRecorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]events.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in publish order.
func (r *EventRecorder) Types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]events.Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// CountByType returns how many events of type t were recorded.
func (r *EventRecorder) CountByType(t events.Type) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// Last returns the most recent event of type t.
func (r *EventRecorder) Last(t events.Type) (events.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == t {
			return r.events[i], true
		}
	}
	return events.Event{}, false
}

// Clear drops all recorded events.
func (r *EventRecorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = nil
}
