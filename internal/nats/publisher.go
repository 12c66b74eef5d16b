package nats

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/smazurov/framegraph/internal/events"
)

// EventPublisher forwards event bus traffic to NATS subjects.
type EventPublisher struct {
	url      string
	eventBus *events.Bus
	conn     *nats.Conn
	unsubs   []func()
	logger   *slog.Logger
	mu       sync.RWMutex
}

// NewEventPublisher creates a publisher for the events on eventBus.
func NewEventPublisher(url string, eventBus *events.Bus, logger *slog.Logger) *EventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventPublisher{
		url:      url,
		eventBus: eventBus,
		logger:   logger.With("component", "nats-events"),
	}
}

// Start connects to NATS and begins forwarding events.
func (p *EventPublisher) Start() error {
	conn, err := nats.Connect(p.url,
		nats.Name("framegraph-events"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				p.logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			p.logger.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.conn = conn
	p.unsubs = []func(){
		p.eventBus.Subscribe(func(e events.GraphStateChangedEvent) {
			p.publish(SubjectGraphEvent(e.GraphID, "state_changed"), e)
		}),
		p.eventBus.Subscribe(func(e events.EndpointBoundEvent) {
			p.publish(SubjectGraphEvent(e.GraphID, "endpoint_bound"), e)
		}),
		p.eventBus.Subscribe(func(e events.BackpressureProbeEvent) {
			p.publish(SubjectGraphEvent(e.GraphID, "backpressure_probe"), e)
		}),
		p.eventBus.Subscribe(func(e events.EndpointEOFEvent) {
			p.publish(SubjectGraphEvent(e.GraphID, "endpoint_eof"), e)
		}),
		p.eventBus.Subscribe(func(e events.EndpointErrorEvent) {
			p.publish(SubjectGraphEvent(e.GraphID, "endpoint_error"), e)
		}),
		p.eventBus.Subscribe(func(e events.PumpProgressEvent) {
			p.publish(SubjectGraphEvent(e.GraphID, "pump_progress"), e)
		}),
		p.eventBus.Subscribe(func(e events.PumpFinishedEvent) {
			p.publish(SubjectGraphEvent(e.GraphID, "pump_finished"), e)
		}),
		p.eventBus.Subscribe(func(e events.FlushCompletedEvent) {
			p.publish(SubjectGraphEvent(e.GraphID, "flush_completed"), e)
		}),
		p.eventBus.Subscribe(func(e events.JobReloadedEvent) {
			p.publish(SubjectJobReloaded(e.JobID), e)
		}),
	}
	p.mu.Unlock()

	p.logger.Info("Publishing events to NATS", "url", p.url)
	return nil
}

// publish is a no-op while disconnected.
func (p *EventPublisher) publish(subject string, ev any) {
	p.mu.RLock()
	conn := p.conn
	p.mu.RUnlock()
	if conn == nil || !conn.IsConnected() {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("Failed to marshal event", "subject", subject, "error", err)
		return
	}
	if err := conn.Publish(subject, data); err != nil {
		p.logger.Warn("Failed to publish event", "subject", subject, "error", err)
	}
}

// IsConnected returns true if connected to NATS.
func (p *EventPublisher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conn != nil && p.conn.IsConnected()
}

// Stop unsubscribes from the bus and drains the connection.
func (p *EventPublisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, unsub := range p.unsubs {
		unsub()
	}
	p.unsubs = nil

	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			p.conn.Close()
		}
		p.conn = nil
	}
	p.logger.Debug("NATS event publisher stopped")
}
