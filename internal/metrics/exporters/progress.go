package exporters

import (
	"context"
	"sync"
	"time"

	"github.com/smazurov/framegraph/internal/events"
	"github.com/smazurov/framegraph/internal/metrics"
)

// ProgressExporter periodically publishes pump counters as PumpProgressEvents.
type ProgressExporter struct {
	eventBus events.Publisher
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewProgressExporter creates an exporter publishing every interval.
func NewProgressExporter(eventBus events.Publisher, interval time.Duration) *ProgressExporter {
	if interval <= 0 {
		interval = time.Second
	}
	return &ProgressExporter{
		eventBus: eventBus,
		interval: interval,
	}
}

// Start begins the export loop.
func (p *ProgressExporter) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go p.run()
}

// Stop stops the exporter and waits for the goroutine to finish.
func (p *ProgressExporter) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *ProgressExporter) run() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.publish()
		}
	}
}

func (p *ProgressExporter) publish() {
	for graphID, m := range metrics.GetAllPumpMetrics() {
		p.eventBus.Publish(events.PumpProgressEvent{
			GraphID:       graphID,
			Cycles:        m.Cycles,
			FramesFed:     m.FramesFed,
			FramesDrained: m.FramesDrained,
			Probes:        m.Probes,
		})
	}
}
