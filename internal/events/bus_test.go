package events

import (
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan GraphStateChangedEvent, 1)

	unsub := bus.Subscribe(func(e GraphStateChangedEvent) {
		received <- e
	})
	defer unsub()

	event := GraphStateChangedEvent{
		GraphID: "g1",
		From:    "configuring",
		To:      "configured",
	}
	bus.Publish(event)

	got := <-received
	if got.GraphID != event.GraphID || got.To != event.To {
		t.Errorf("Expected %+v, got %+v", event, got)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan PumpFinishedEvent, 1)
	received2 := make(chan PumpFinishedEvent, 1)

	unsub1 := bus.Subscribe(func(e PumpFinishedEvent) {
		received1 <- e
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(e PumpFinishedEvent) {
		received2 <- e
	})
	defer unsub2()

	bus.Publish(PumpFinishedEvent{GraphID: "g1", Reason: "output_eof"})

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan EndpointErrorEvent, 1)

	unsub := bus.Subscribe(func(e EndpointErrorEvent) {
		received <- e
	})

	bus.Publish(EndpointErrorEvent{Endpoint: "in1", Op: "feed"})
	<-received

	unsub()

	bus.Publish(EndpointErrorEvent{Endpoint: "in2", Op: "feed"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected - no event
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	boundReceived := make(chan bool, 1)
	eofReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ EndpointBoundEvent) {
		boundReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ EndpointEOFEvent) {
		eofReceived <- true
	})
	defer unsub2()

	bus.Publish(EndpointBoundEvent{Endpoint: "in1"})
	<-boundReceived

	select {
	case <-eofReceived:
		t.Fatal("EOF subscriber should NOT have received EndpointBoundEvent")
	case <-time.After(10 * time.Millisecond):
		// Expected
	}

	bus.Publish(EndpointEOFEvent{Endpoint: "out1"})
	<-eofReceived

	select {
	case <-boundReceived:
		t.Fatal("Bound subscriber should NOT have received EndpointEOFEvent")
	case <-time.After(10 * time.Millisecond):
		// Expected
	}
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)

	unsub := bus.Subscribe(func(_ BackpressureProbeEvent) {
		receivedCh <- true
	})
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range eventsPerGoroutine {
				bus.Publish(BackpressureProbeEvent{Endpoint: "in1", FrameIndex: i})
			}
		}()
	}

	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestBus_AllEventTypes(t *testing.T) {
	bus := New()

	tests := []struct {
		name  string
		event Event
	}{
		{"GraphStateChanged", GraphStateChangedEvent{GraphID: "g"}},
		{"EndpointBound", EndpointBoundEvent{Endpoint: "in1"}},
		{"BackpressureProbe", BackpressureProbeEvent{Endpoint: "in1"}},
		{"EndpointEOF", EndpointEOFEvent{Endpoint: "out1"}},
		{"EndpointError", EndpointErrorEvent{Endpoint: "out1"}},
		{"PumpProgress", PumpProgressEvent{GraphID: "g"}},
		{"PumpFinished", PumpFinishedEvent{GraphID: "g"}},
		{"FlushCompleted", FlushCompletedEvent{GraphID: "g"}},
		{"JobReloaded", JobReloadedEvent{JobID: "demo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(_ *testing.T) {
			received := make(chan Event, 1)

			var unsub func()
			switch tt.event.(type) {
			case GraphStateChangedEvent:
				unsub = bus.Subscribe(func(e GraphStateChangedEvent) { received <- e })
			case EndpointBoundEvent:
				unsub = bus.Subscribe(func(e EndpointBoundEvent) { received <- e })
			case BackpressureProbeEvent:
				unsub = bus.Subscribe(func(e BackpressureProbeEvent) { received <- e })
			case EndpointEOFEvent:
				unsub = bus.Subscribe(func(e EndpointEOFEvent) { received <- e })
			case EndpointErrorEvent:
				unsub = bus.Subscribe(func(e EndpointErrorEvent) { received <- e })
			case PumpProgressEvent:
				unsub = bus.Subscribe(func(e PumpProgressEvent) { received <- e })
			case PumpFinishedEvent:
				unsub = bus.Subscribe(func(e PumpFinishedEvent) { received <- e })
			case FlushCompletedEvent:
				unsub = bus.Subscribe(func(e FlushCompletedEvent) { received <- e })
			case JobReloadedEvent:
				unsub = bus.Subscribe(func(e JobReloadedEvent) { received <- e })
			}
			defer unsub()

			bus.Publish(tt.event)
			<-received
		})
	}
}

func TestBus_UnknownHandler(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	if unsub == nil {
		t.Fatal("expected a no-op unsubscribe function")
	}
	unsub()
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 10)

	unsub := SubscribeToChannel[FlushCompletedEvent](bus, ch)
	defer unsub()

	bus.Publish(FlushCompletedEvent{GraphID: "g1", FramesDrained: 3})

	received := <-ch
	flushed, ok := received.(FlushCompletedEvent)
	if !ok {
		t.Fatalf("Expected FlushCompletedEvent, got %T", received)
	}
	if flushed.FramesDrained != 3 {
		t.Errorf("Expected 3 frames drained, got %d", flushed.FramesDrained)
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	var p Publisher = &r
	p.Publish(JobReloadedEvent{JobID: "a"})
	p.Publish(JobReloadedEvent{JobID: "b"})
	if len(r.Events) != 2 || r.Events[1].(JobReloadedEvent).JobID != "b" {
		t.Fatalf("recorded %v", r.Events)
	}
}
