// pkg/event/event.go
package event

import (
	"sync"
)

// Type represents the type of event
type Type string

// Simulation lifecycle event types
const (
	InstanceStarted     Type = "instance_started"
	InstanceFinished    Type = "instance_finished"
	InstanceDiverged    Type = "instance_diverged"
	InstanceSkipped     Type = "instance_skipped"
	GenerationFinished  Type = "generation_finished"
	BreakerStateChanged Type = "breaker_state_changed"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// SubscriptionID identifies a registered handler.
type SubscriptionID uint64

// Subscription is a handle to a registered handler
type Subscription struct {
	ID        SubscriptionID
	EventType Type
	bus       *Bus
}

// Cancel removes the handler from its bus
func (s *Subscription) Cancel() {
	s.bus.Unsubscribe(s.ID)
}

type registration struct {
	id      SubscriptionID
	handler Handler
}

// Bus manages event subscriptions and dispatching. Handlers run
// synchronously on the publishing goroutine.
type Bus struct {
	handlers map[Type][]registration
	nextID   SubscriptionID
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]registration),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], registration{id: id, handler: handler})

	return &Subscription{ID: id, EventType: eventType, bus: b}
}

// Unsubscribe removes the handler registered under id. It reports whether
// a handler was removed.
func (b *Bus) Unsubscribe(id SubscriptionID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, regs := range b.handlers {
		for i, r := range regs {
			if r.id != id {
				continue
			}
			// Copy so a Publish iterating the old slice is unaffected.
			remaining := make([]registration, 0, len(regs)-1)
			remaining = append(remaining, regs[:i]...)
			remaining = append(remaining, regs[i+1:]...)
			if len(remaining) == 0 {
				delete(b.handlers, eventType)
			} else {
				b.handlers[eventType] = remaining
			}
			return true
		}
	}
	return false
}

// Publish sends an event to all subscribed handlers
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	regs := b.handlers[event.GetType()]
	b.mu.RUnlock()

	for _, r := range regs {
		r.handler(event)
	}
}

// Specific event implementations

// InstanceEvent describes one challenge instance of a population run
type InstanceEvent struct {
	BaseEvent
	RunID      string
	Generation int
	Index      int
	Steps      int
	Fitness    float64
	Err        error
}

// NewInstanceEvent creates a new instance event
func NewInstanceEvent(eventType Type, source interface{}, runID string, generation, index int) *InstanceEvent {
	return &InstanceEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		RunID:      runID,
		Generation: generation,
		Index:      index,
	}
}

// GenerationEvent summarizes a fully evaluated generation
type GenerationEvent struct {
	BaseEvent
	Generation  int
	BestFitness float64
	BestIndex   int
	Evaluated   int
	Failed      int
}

// NewGenerationEvent creates a new generation event
func NewGenerationEvent(source interface{}, generation int) *GenerationEvent {
	return &GenerationEvent{
		BaseEvent: BaseEvent{
			EventType: GenerationFinished,
			Source:    source,
		},
		Generation: generation,
	}
}

// BreakerEvent reports a circuit breaker state transition
type BreakerEvent struct {
	BaseEvent
	Name string
	From string
	To   string
}

// NewBreakerEvent creates a new breaker event
func NewBreakerEvent(source interface{}, name, from, to string) *BreakerEvent {
	return &BreakerEvent{
		BaseEvent: BaseEvent{
			EventType: BreakerStateChanged,
			Source:    source,
		},
		Name: name,
		From: from,
		To:   to,
	}
}
