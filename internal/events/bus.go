package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// Publisher is the publishing half of Bus. Graphs and pumps depend on it so
// tests can record events synchronously.
type Publisher interface {
	Publish(ev Event)
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(GraphStateChangedEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event is generic; dispatch on the concrete type
	switch e := ev.(type) {
	case GraphStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case EndpointBoundEvent:
		event.Publish(b.dispatcher, e)
	case BackpressureProbeEvent:
		event.Publish(b.dispatcher, e)
	case EndpointEOFEvent:
		event.Publish(b.dispatcher, e)
	case EndpointErrorEvent:
		event.Publish(b.dispatcher, e)
	case PumpProgressEvent:
		event.Publish(b.dispatcher, e)
	case PumpFinishedEvent:
		event.Publish(b.dispatcher, e)
	case FlushCompletedEvent:
		event.Publish(b.dispatcher, e)
	case JobReloadedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function
// The handler type determines which events it receives.
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e PumpFinishedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(GraphStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(EndpointBoundEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(BackpressureProbeEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(EndpointEOFEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(EndpointErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PumpProgressEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PumpFinishedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FlushCompletedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(JobReloadedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}

// SubscribeToChannel bridges a callback subscription to a channel.
// Events are dropped when the channel is full.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}

// Recorder is a Publisher that keeps events in memory.
type Recorder struct {
	Events []Event
}

// Publish appends ev.
func (r *Recorder) Publish(ev Event) {
	r.Events = append(r.Events, ev)
}
