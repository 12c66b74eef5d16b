package events

// Event type constants for kelindar/event.
const (
	TypeGraphStateChanged uint32 = iota + 1
	TypeEndpointBound
	TypeBackpressureProbe
	TypeEndpointEOF
	TypeEndpointError
	TypePumpProgress
	TypePumpFinished
	TypeFlushCompleted
	TypeJobReloaded
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// GraphStateChangedEvent is published on every graph lifecycle transition.
type GraphStateChangedEvent struct {
	GraphID   string `json:"graph_id"`
	From      string `json:"from" example:"configuring"`
	To        string `json:"to" example:"configured"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z"`
}

// Type returns the event type identifier for GraphStateChangedEvent.
func (e GraphStateChangedEvent) Type() uint32 { return TypeGraphStateChanged }

// EndpointBoundEvent is published when the binder attaches an endpoint to an open pad.
type EndpointBoundEvent struct {
	GraphID   string `json:"graph_id"`
	Endpoint  string `json:"endpoint" example:"in1"`
	Direction string `json:"direction" example:"input"`
	MediaType string `json:"media_type" example:"video"`
	Params    string `json:"params,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for EndpointBoundEvent.
func (e EndpointBoundEvent) Type() uint32 { return TypeEndpointBound }

// BackpressureProbeEvent is published when a feed pass re-primes an input.
type BackpressureProbeEvent struct {
	GraphID    string `json:"graph_id"`
	Endpoint   string `json:"endpoint"`
	Pending    int    `json:"pending"`
	FrameIndex int    `json:"frame_index"`
}

// Type returns the event type identifier for BackpressureProbeEvent.
func (e BackpressureProbeEvent) Type() uint32 { return TypeBackpressureProbe }

// EndpointEOFEvent is published once per endpoint when it reaches end of stream.
type EndpointEOFEvent struct {
	GraphID    string `json:"graph_id"`
	Endpoint   string `json:"endpoint"`
	Direction  string `json:"direction"`
	FrameIndex int    `json:"frame_index"`
}

// Type returns the event type identifier for EndpointEOFEvent.
func (e EndpointEOFEvent) Type() uint32 { return TypeEndpointEOF }

// EndpointErrorEvent is published for every feed or drain failure.
type EndpointErrorEvent struct {
	GraphID    string `json:"graph_id"`
	Endpoint   string `json:"endpoint"`
	Op         string `json:"op" example:"feed"`
	Error      string `json:"error"`
	FrameIndex int    `json:"frame_index"`
}

// Type returns the event type identifier for EndpointErrorEvent.
func (e EndpointErrorEvent) Type() uint32 { return TypeEndpointError }

// PumpProgressEvent carries a periodic snapshot of pump counters.
type PumpProgressEvent struct {
	GraphID       string  `json:"graph_id"`
	Cycles        float64 `json:"cycles"`
	FramesFed     float64 `json:"frames_fed"`
	FramesDrained float64 `json:"frames_drained"`
	Probes        float64 `json:"probes"`
}

// Type returns the event type identifier for PumpProgressEvent.
func (e PumpProgressEvent) Type() uint32 { return TypePumpProgress }

// PumpFinishedEvent is published when the pump loop exits.
type PumpFinishedEvent struct {
	GraphID       string `json:"graph_id"`
	Reason        string `json:"reason" example:"output_eof"`
	Cycles        int    `json:"cycles"`
	FramesFed     int    `json:"frames_fed"`
	FramesDrained int    `json:"frames_drained"`
	Failed        bool   `json:"failed"`
	Timestamp     string `json:"timestamp"`
}

// Type returns the event type identifier for PumpFinishedEvent.
func (e PumpFinishedEvent) Type() uint32 { return TypePumpFinished }

// FlushCompletedEvent is published after the terminal flush pass.
type FlushCompletedEvent struct {
	GraphID       string `json:"graph_id"`
	FramesDrained int    `json:"frames_drained"`
	Timestamp     string `json:"timestamp"`
}

// Type returns the event type identifier for FlushCompletedEvent.
func (e FlushCompletedEvent) Type() uint32 { return TypeFlushCompleted }

// JobReloadedEvent is published when a watched job file changes.
type JobReloadedEvent struct {
	JobID     string `json:"job_id"`
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for JobReloadedEvent.
func (e JobReloadedEvent) Type() uint32 { return TypeJobReloaded }
