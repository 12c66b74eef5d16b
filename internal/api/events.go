package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/framegraph/internal/api/models"
	"github.com/smazurov/framegraph/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Live graph lifecycle, endpoint, pump and job reload events",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"connected":           models.StreamConnectedData{},
		"graph-state-changed": events.GraphStateChangedEvent{},
		"endpoint-bound":      events.EndpointBoundEvent{},
		"backpressure-probe":  events.BackpressureProbeEvent{},
		"endpoint-eof":        events.EndpointEOFEvent{},
		"endpoint-error":      events.EndpointErrorEvent{},
		"pump-progress":       events.PumpProgressEvent{},
		"pump-finished":       events.PumpFinishedEvent{},
		"flush-completed":     events.FlushCompletedEvent{},
		"job-reloaded":        events.JobReloadedEvent{},
	}, func(ctx context.Context, input *models.EventStreamInput, send sse.Sender) {
		eventCh := make(chan any, 64)
		unsubscribers := []func(){
			events.SubscribeToChannel[events.GraphStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.EndpointBoundEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.BackpressureProbeEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.EndpointEOFEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.EndpointErrorEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.PumpProgressEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.PumpFinishedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.FlushCompletedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.JobReloadedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		if err := send.Data(models.StreamConnectedData{
			Message:   "event stream connected",
			Timestamp: time.Now().Format(time.RFC3339),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-eventCh:
				if input.GraphID != "" && graphIDOf(ev) != input.GraphID {
					continue
				}
				if err := send.Data(ev); err != nil {
					return
				}
			}
		}
	})
}

// graphIDOf returns the graph an event belongs to, or "" for job events.
func graphIDOf(ev any) string {
	switch e := ev.(type) {
	case events.GraphStateChangedEvent:
		return e.GraphID
	case events.EndpointBoundEvent:
		return e.GraphID
	case events.BackpressureProbeEvent:
		return e.GraphID
	case events.EndpointEOFEvent:
		return e.GraphID
	case events.EndpointErrorEvent:
		return e.GraphID
	case events.PumpProgressEvent:
		return e.GraphID
	case events.PumpFinishedEvent:
		return e.GraphID
	case events.FlushCompletedEvent:
		return e.GraphID
	}
	return ""
}
