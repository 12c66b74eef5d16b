package runner

import (
	"log/slog"

	"github.com/smazurov/framegraph/internal/events"
)

// LogEvents writes bus events to logger. The returned function unsubscribes.
func LogEvents(bus *events.Bus, logger *slog.Logger) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.GraphStateChangedEvent) {
			logger.Debug("Graph state changed", "graph_id", e.GraphID, "from", e.From, "to", e.To, "error", e.Error)
		}),
		bus.Subscribe(func(e events.EndpointBoundEvent) {
			logger.Debug("Endpoint bound", "graph_id", e.GraphID, "endpoint", e.Endpoint,
				"direction", e.Direction, "media_type", e.MediaType, "params", e.Params)
		}),
		bus.Subscribe(func(e events.EndpointErrorEvent) {
			logger.Warn("Endpoint error", "graph_id", e.GraphID, "endpoint", e.Endpoint,
				"op", e.Op, "frame_index", e.FrameIndex, "error", e.Error)
		}),
		bus.Subscribe(func(e events.PumpProgressEvent) {
			logger.Info("Progress", "graph_id", e.GraphID, "cycles", e.Cycles,
				"frames_fed", e.FramesFed, "frames_drained", e.FramesDrained, "probes", e.Probes)
		}),
		bus.Subscribe(func(e events.JobReloadedEvent) {
			logger.Info("Job reloaded", "job_id", e.JobID, "path", e.Path)
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
