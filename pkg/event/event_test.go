// pkg/event/event_test.go
package event

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventBus_Creation_ReturnsInitializedBus(t *testing.T) {
	bus := NewEventBus()
	require.NotNil(t, bus)
	assert.NotNil(t, bus.handlers)
	assert.Equal(t, SubscriptionID(1), bus.nextID)
}

func TestBaseEvent_GetType_ReturnsCorrectType(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		source    interface{}
	}{
		{"InstanceStarted event", InstanceStarted, "runner"},
		{"GenerationFinished event", GenerationFinished, 7},
		{"Empty source", BreakerStateChanged, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := &BaseEvent{EventType: tt.eventType, Source: tt.source}
			assert.Equal(t, tt.eventType, event.GetType())
			assert.Equal(t, tt.source, event.GetSource())
		})
	}
}

func TestBusSubscribe_ReturnsDistinctIDs(t *testing.T) {
	bus := NewEventBus()
	first := bus.Subscribe(InstanceStarted, func(Event) {})
	second := bus.Subscribe(InstanceFinished, func(Event) {})

	assert.Equal(t, SubscriptionID(1), first.ID)
	assert.Equal(t, SubscriptionID(2), second.ID)
	assert.Equal(t, InstanceFinished, second.EventType)
}

func TestBusPublish_WithSubscribers_CallsAllHandlers(t *testing.T) {
	bus := NewEventBus()
	var calls []string

	bus.Subscribe(InstanceFinished, func(Event) { calls = append(calls, "first") })
	bus.Subscribe(InstanceFinished, func(Event) { calls = append(calls, "second") })
	bus.Subscribe(InstanceDiverged, func(Event) { calls = append(calls, "other") })

	bus.Publish(NewInstanceEvent(InstanceFinished, "test", "run", 0, 1))

	assert.Equal(t, []string{"first", "second"}, calls, "handlers run in subscription order")
}

func TestBusPublish_NoSubscribers_NoError(t *testing.T) {
	bus := NewEventBus()
	assert.NotPanics(t, func() {
		bus.Publish(&BaseEvent{EventType: InstanceStarted})
	})
}

func TestSubscriptionCancel_ValidSubscription_RemovesHandler(t *testing.T) {
	bus := NewEventBus()
	handlerCalled := false

	sub := bus.Subscribe(InstanceStarted, func(Event) { handlerCalled = true })
	sub.Cancel()

	bus.mu.RLock()
	assert.Empty(t, bus.handlers[InstanceStarted])
	bus.mu.RUnlock()

	bus.Publish(&BaseEvent{EventType: InstanceStarted})
	assert.False(t, handlerCalled, "handler should not be called after cancellation")
}

func TestUnsubscribe_OnlyTargetRemoved(t *testing.T) {
	bus := NewEventBus()
	var started, finished, breaker int

	startSub := bus.Subscribe(InstanceStarted, func(Event) { started++ })
	bus.Subscribe(InstanceStarted, func(Event) { started += 10 })
	bus.Subscribe(InstanceFinished, func(Event) { finished++ })
	breakerSub := bus.Subscribe(BreakerStateChanged, func(Event) { breaker++ })

	assert.True(t, bus.Unsubscribe(startSub.ID))
	assert.True(t, bus.Unsubscribe(breakerSub.ID))
	assert.False(t, bus.Unsubscribe(breakerSub.ID), "already removed")
	assert.False(t, bus.Unsubscribe(SubscriptionID(999)))

	bus.Publish(&BaseEvent{EventType: InstanceStarted})
	bus.Publish(&BaseEvent{EventType: InstanceFinished})
	bus.Publish(NewBreakerEvent("test", "population", "closed", "open"))

	assert.Equal(t, 10, started)
	assert.Equal(t, 1, finished)
	assert.Equal(t, 0, breaker)
}

func TestUnsubscribe_DuringPublish(t *testing.T) {
	bus := NewEventBus()
	calls := 0

	var sub *Subscription
	sub = bus.Subscribe(InstanceFinished, func(Event) {
		calls++
		sub.Cancel()
	})
	bus.Subscribe(InstanceFinished, func(Event) { calls++ })

	bus.Publish(&BaseEvent{EventType: InstanceFinished})
	assert.Equal(t, 2, calls, "the in-flight publish still reaches every handler")

	bus.Publish(&BaseEvent{EventType: InstanceFinished})
	assert.Equal(t, 3, calls)
}

func TestBus_ConcurrentAccess_ThreadSafe(t *testing.T) {
	bus := NewEventBus()
	var wg sync.WaitGroup
	var handlerCount atomic.Int64

	const subscribers = 10
	wg.Add(subscribers)
	for i := 0; i < subscribers; i++ {
		go func() {
			defer wg.Done()
			bus.Subscribe(InstanceFinished, func(Event) { handlerCount.Add(1) })
		}()
	}
	wg.Wait()

	const publishers = 3
	wg.Add(publishers)
	for i := 0; i < publishers; i++ {
		go func(i int) {
			defer wg.Done()
			bus.Publish(NewInstanceEvent(InstanceFinished, "test", "run", 0, i))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(subscribers*publishers), handlerCount.Load())
}

func TestNewInstanceEvent(t *testing.T) {
	event := NewInstanceEvent(InstanceDiverged, "runner", "run-1", 2, 5)
	event.Steps = 120
	event.Err = errors.New("diverged")

	assert.Equal(t, InstanceDiverged, event.GetType())
	assert.Equal(t, "runner", event.GetSource())
	assert.Equal(t, "run-1", event.RunID)
	assert.Equal(t, 2, event.Generation)
	assert.Equal(t, 5, event.Index)
}

func TestNewGenerationEvent(t *testing.T) {
	event := NewGenerationEvent("runner", 3)
	assert.Equal(t, GenerationFinished, event.GetType())
	assert.Equal(t, 3, event.Generation)
}

func TestNewBreakerEvent(t *testing.T) {
	event := NewBreakerEvent("runner", "population", "closed", "open")
	assert.Equal(t, BreakerStateChanged, event.GetType())
	assert.Equal(t, "population", event.Name)
	assert.Equal(t, "closed", event.From)
	assert.Equal(t, "open", event.To)
}

func TestEventTypes_Constants_AllDefined(t *testing.T) {
	types := []Type{
		InstanceStarted, InstanceFinished, InstanceDiverged,
		InstanceSkipped, GenerationFinished, BreakerStateChanged,
	}
	seen := make(map[Type]bool)
	for _, eventType := range types {
		assert.NotEmpty(t, eventType)
		assert.False(t, seen[eventType], "duplicate event type %q", eventType)
		seen[eventType] = true
	}
}
