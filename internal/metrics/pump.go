// Package metrics provides Prometheus metrics for filter graphs and their pump loops.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pumpCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "framegraph",
		Subsystem: "pump",
		Name:      "cycles_total",
		Help:      "Drain/feed cycles executed",
	}, []string{"graph_id"})

	framesFed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "framegraph",
		Subsystem: "pump",
		Name:      "frames_fed_total",
		Help:      "Frames pushed into graph inputs",
	}, []string{"graph_id", "endpoint"})

	framesDrained = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "framegraph",
		Subsystem: "pump",
		Name:      "frames_drained_total",
		Help:      "Frames pulled from graph outputs and handed to sinks",
	}, []string{"graph_id", "endpoint"})

	backpressureProbes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "framegraph",
		Subsystem: "pump",
		Name:      "backpressure_probes_total",
		Help:      "Probe frames requested because an input reported backpressure",
	}, []string{"graph_id", "endpoint"})

	endpointErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "framegraph",
		Subsystem: "pump",
		Name:      "endpoint_errors_total",
		Help:      "Feed and drain failures per endpoint",
	}, []string{"graph_id", "endpoint", "op"})

	graphState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "framegraph",
		Subsystem: "graph",
		Name:      "state",
		Help:      "Current lifecycle state of a graph (1 for the active state)",
	}, []string{"graph_id", "state"})

	// Local cache for the progress exporter.
	pumpCache   = make(map[string]*PumpMetrics)
	pumpCacheMu sync.RWMutex
)

// GraphStates lists every state label the graph gauge uses.
var GraphStates = []string{"unconfigured", "configuring", "configured", "failed"}

// PumpMetrics holds current counter values for one graph.
type PumpMetrics struct {
	Cycles        float64
	FramesFed     float64
	FramesDrained float64
	Probes        float64
	Errors        float64
}

// IncCycles counts one pump cycle.
func IncCycles(graphID string) {
	pumpCycles.WithLabelValues(graphID).Inc()
	updateCache(graphID, func(m *PumpMetrics) { m.Cycles++ })
}

// IncFramesFed counts one frame pushed into an input.
func IncFramesFed(graphID, endpoint string) {
	framesFed.WithLabelValues(graphID, endpoint).Inc()
	updateCache(graphID, func(m *PumpMetrics) { m.FramesFed++ })
}

// IncFramesDrained counts one frame handed to an output's sink.
func IncFramesDrained(graphID, endpoint string) {
	framesDrained.WithLabelValues(graphID, endpoint).Inc()
	updateCache(graphID, func(m *PumpMetrics) { m.FramesDrained++ })
}

// IncBackpressureProbes counts one probe issued for an input.
func IncBackpressureProbes(graphID, endpoint string) {
	backpressureProbes.WithLabelValues(graphID, endpoint).Inc()
	updateCache(graphID, func(m *PumpMetrics) { m.Probes++ })
}

// IncEndpointErrors counts a feed or drain failure.
func IncEndpointErrors(graphID, endpoint, op string) {
	endpointErrors.WithLabelValues(graphID, endpoint, op).Inc()
	updateCache(graphID, func(m *PumpMetrics) { m.Errors++ })
}

// SetGraphState marks state as the active state of a graph.
func SetGraphState(graphID, state string) {
	for _, s := range GraphStates {
		v := 0.0
		if s == state {
			v = 1
		}
		graphState.WithLabelValues(graphID, s).Set(v)
	}
}

// DeleteGraphMetrics removes every series of a graph.
func DeleteGraphMetrics(graphID string) {
	labels := prometheus.Labels{"graph_id": graphID}
	pumpCycles.DeletePartialMatch(labels)
	framesFed.DeletePartialMatch(labels)
	framesDrained.DeletePartialMatch(labels)
	backpressureProbes.DeletePartialMatch(labels)
	endpointErrors.DeletePartialMatch(labels)
	graphState.DeletePartialMatch(labels)

	pumpCacheMu.Lock()
	delete(pumpCache, graphID)
	pumpCacheMu.Unlock()
}

// GetPumpMetrics returns current values for a graph.
func GetPumpMetrics(graphID string) *PumpMetrics {
	pumpCacheMu.RLock()
	defer pumpCacheMu.RUnlock()
	if m, ok := pumpCache[graphID]; ok {
		dup := *m
		return &dup
	}
	return nil
}

// GetAllPumpMetrics returns values for every graph with recorded activity.
func GetAllPumpMetrics() map[string]*PumpMetrics {
	pumpCacheMu.RLock()
	defer pumpCacheMu.RUnlock()
	result := make(map[string]*PumpMetrics, len(pumpCache))
	for id, m := range pumpCache {
		dup := *m
		result[id] = &dup
	}
	return result
}

func updateCache(graphID string, update func(*PumpMetrics)) {
	pumpCacheMu.Lock()
	defer pumpCacheMu.Unlock()
	m, ok := pumpCache[graphID]
	if !ok {
		m = &PumpMetrics{}
		pumpCache[graphID] = m
	}
	update(m)
}
