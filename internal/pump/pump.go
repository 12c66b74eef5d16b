// Package pump drives a configured graph: each cycle drains every output,
// then feeds every input, until the graph reaches end of stream.
package pump

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/smazurov/framegraph/internal/events"
	"github.com/smazurov/framegraph/internal/frame"
	"github.com/smazurov/framegraph/internal/graph"
	"github.com/smazurov/framegraph/internal/logging"
	"github.com/smazurov/framegraph/internal/metrics"
	"github.com/smazurov/framegraph/internal/sink"
	"github.com/smazurov/framegraph/internal/source"
)

// Reason explains why the loop stopped.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonOutputEOF       Reason = "output_eof"
	ReasonAllFailed       Reason = "all_endpoints_failed"
	ReasonInputsExhausted Reason = "inputs_exhausted"
	ReasonSinkError       Reason = "sink_error"
	ReasonCanceled        Reason = "canceled"
)

// State holds the loop's transient counters.
type State struct {
	FrameIndex   int
	EOFRequested bool
	Failed       bool
}

// Config tunes the loop.
type Config struct {
	// BackpressureThreshold is the number of pending requests that triggers
	// a probe before the next push. Defaults to 1.
	BackpressureThreshold int
	// MaxFrames requests end of stream once FrameIndex reaches it. 0 disables.
	MaxFrames int
	Logger    *slog.Logger
}

// Stats summarizes a run.
type Stats struct {
	Cycles        int
	FramesFed     int
	FramesDrained int
	Probes        int
	FeedErrors    int
	DrainErrors   int
	FlushDrained  int
	Reason        Reason
}

// Pump owns the feed/drain loop of one configured graph.
type Pump struct {
	g       *graph.Graph
	src     source.Source
	sinks   []sink.Sink
	cfg     Config
	logger  *slog.Logger
	events  events.Publisher
	state   State
	stats   Stats
	stop    atomic.Bool
	eofSeen map[string]bool
	done    bool
}

// New returns a pump for a configured graph. sinks[i] consumes the frames of
// g.Outputs()[i].
func New(g *graph.Graph, src source.Source, sinks []sink.Sink, cfg Config) (*Pump, error) {
	if g.State() != graph.StateConfigured {
		return nil, &graph.Error{Code: graph.CodeInvalidState, Op: "pump", Message: "graph is " + g.State().String()}
	}
	if len(sinks) != len(g.Outputs()) {
		return nil, &graph.Error{
			Code:    graph.CodeSink,
			Op:      "pump",
			Message: "need one sink per output",
		}
	}
	if cfg.BackpressureThreshold <= 0 {
		cfg.BackpressureThreshold = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetLogger("pump")
	}
	return &Pump{
		g:       g,
		src:     src,
		sinks:   sinks,
		cfg:     cfg,
		logger:  logger.With("graph_id", g.ID()),
		events:  g.Events(),
		eofSeen: make(map[string]bool),
	}, nil
}

// State returns a copy of the loop state.
func (p *Pump) State() State { return p.state }

// Stats returns counters collected so far.
func (p *Pump) Stats() Stats { return p.stats }

// RequestStop asks the loop to push end of stream into every input on its
// next cycle. Safe to call from any goroutine.
func (p *Pump) RequestStop() {
	p.stop.Store(true)
}

type cycleResult struct {
	ready  int
	eof    int
	failed int
}

// Cycle runs one drain pass followed by one feed pass and reports whether
// the loop should stop. A non-nil error is always fatal.
func (p *Pump) Cycle() (bool, error) {
	if p.done {
		return true, nil
	}
	if p.stop.Load() {
		p.state.EOFRequested = true
	}
	if p.cfg.MaxFrames > 0 && p.state.FrameIndex >= p.cfg.MaxFrames {
		p.state.EOFRequested = true
	}

	inputsDone := p.inputsDone()
	drained, err := p.drain()
	if err != nil {
		p.state.Failed = true
		p.finish(ReasonSinkError)
		return true, err
	}
	fed := p.feed()

	p.state.FrameIndex++
	p.stats.Cycles++
	metrics.IncCycles(p.g.ID())

	outputs, inputs := len(p.g.Outputs()), len(p.g.Inputs())
	switch {
	case drained.eof > 0:
		p.finish(ReasonOutputEOF)
	case outputs > 0 && drained.failed == outputs && fed.failed == inputs:
		p.finish(ReasonAllFailed)
	case inputsDone && drained.ready == 0:
		p.finish(ReasonInputsExhausted)
	}
	return p.done, nil
}

// Run cycles until the loop stops, then flushes. Canceling ctx aborts
// between cycles without flushing.
func (p *Pump) Run(ctx context.Context) (Stats, error) {
	p.logger.Info("Pump started",
		"inputs", len(p.g.Inputs()), "outputs", len(p.g.Outputs()),
		"backpressure_threshold", p.cfg.BackpressureThreshold, "max_frames", p.cfg.MaxFrames)

	for !p.done {
		if err := ctx.Err(); err != nil {
			p.state.Failed = true
			p.finish(ReasonCanceled)
			return p.stats, err
		}
		if _, err := p.Cycle(); err != nil {
			return p.stats, err
		}
	}
	if p.state.Failed {
		return p.stats, nil
	}
	if _, err := p.Flush(); err != nil {
		return p.stats, err
	}
	return p.stats, nil
}

func (p *Pump) inputsDone() bool {
	for _, in := range p.g.Inputs() {
		if !in.EOF() {
			return false
		}
	}
	return true
}

func (p *Pump) drain() (cycleResult, error) {
	var res cycleResult
	for i, out := range p.g.Outputs() {
		f, status, err := out.Pull()
		if err != nil {
			res.failed++
			p.stats.DrainErrors++
			p.endpointError(out.Name(), "drain", err)
			continue
		}
		switch status {
		case graph.StatusReady:
			if err := p.consume(i, out, f); err != nil {
				return res, err
			}
			res.ready++
		case graph.StatusEOF:
			res.eof++
			p.endpointEOF(out.Name(), "output")
		case graph.StatusWouldBlock:
		}
	}
	return res, nil
}

// consume hands f to the output's sink. Sink failures abort the pump.
func (p *Pump) consume(i int, out *graph.SinkAdapter, f *frame.Frame) error {
	if err := p.sinks[i].Consume(f); err != nil {
		p.logger.Error("Sink failed", "endpoint", out.Name(), "error", err)
		return &graph.Error{Code: graph.CodeSink, Op: "consume", Endpoint: out.Name(), Cause: err}
	}
	p.stats.FramesDrained++
	metrics.IncFramesDrained(p.g.ID(), out.Name())
	return nil
}

func (p *Pump) feed() cycleResult {
	var res cycleResult
	for _, in := range p.g.Inputs() {
		if in.EOF() {
			continue
		}
		if err := p.feedInput(in); err != nil {
			res.failed++
			p.stats.FeedErrors++
			p.endpointError(in.Name(), "feed", err)
		}
		if in.EOF() {
			p.endpointEOF(in.Name(), "input")
		}
	}
	return res
}

// feedInput probes the source when the input has enough pending requests,
// then pushes the next frame or the end of stream sentinel. A failed probe
// is reported but never skips the push.
func (p *Pump) feedInput(in *graph.SourceAdapter) error {
	var probeErr error
	if pending := in.PendingBackpressureRequests(); pending >= p.cfg.BackpressureThreshold {
		probeErr = p.probe(in, pending)
	}
	return errors.Join(probeErr, p.push(in))
}

func (p *Pump) probe(in *graph.SourceAdapter, pending int) error {
	p.stats.Probes++
	metrics.IncBackpressureProbes(p.g.ID(), in.Name())
	p.publish(events.BackpressureProbeEvent{
		GraphID:    p.g.ID(),
		Endpoint:   in.Name(),
		Pending:    pending,
		FrameIndex: p.state.FrameIndex,
	})
	f := p.src.Next(0, in.Ordinal())
	if f == nil {
		return &graph.Error{Code: graph.CodeFeed, Op: "probe", Endpoint: in.Name(), Message: "backpressure probe returned no frame"}
	}
	return in.CheckFrame(f)
}

func (p *Pump) push(in *graph.SourceAdapter) error {
	if p.state.EOFRequested {
		return in.Push(nil)
	}
	f := p.src.Next(p.state.FrameIndex, in.Ordinal())
	if f == nil {
		return in.Push(nil)
	}
	if err := in.Push(f); err != nil {
		return err
	}
	p.stats.FramesFed++
	metrics.IncFramesFed(p.g.ID(), in.Name())
	return nil
}

func (p *Pump) finish(reason Reason) {
	if p.done {
		return
	}
	p.done = true
	p.stats.Reason = reason
	p.logger.Info("Pump finished",
		"reason", string(reason), "cycles", p.stats.Cycles,
		"frames_fed", p.stats.FramesFed, "frames_drained", p.stats.FramesDrained,
		"failed", p.state.Failed)
	p.publish(events.PumpFinishedEvent{
		GraphID:       p.g.ID(),
		Reason:        string(reason),
		Cycles:        p.stats.Cycles,
		FramesFed:     p.stats.FramesFed,
		FramesDrained: p.stats.FramesDrained,
		Failed:        p.state.Failed,
		Timestamp:     time.Now().Format(time.RFC3339),
	})
}

func (p *Pump) endpointError(name, op string, err error) {
	p.logger.Warn("Endpoint "+op+" failed", "endpoint", name, "frame_index", p.state.FrameIndex, "error", err)
	metrics.IncEndpointErrors(p.g.ID(), name, op)
	p.publish(events.EndpointErrorEvent{
		GraphID:    p.g.ID(),
		Endpoint:   name,
		Op:         op,
		Error:      err.Error(),
		FrameIndex: p.state.FrameIndex,
	})
}

func (p *Pump) endpointEOF(name, direction string) {
	key := direction + ":" + name
	if p.eofSeen[key] {
		return
	}
	p.eofSeen[key] = true
	p.logger.Debug("Endpoint reached end of stream", "endpoint", name, "direction", direction)
	p.publish(events.EndpointEOFEvent{
		GraphID:    p.g.ID(),
		Endpoint:   name,
		Direction:  direction,
		FrameIndex: p.state.FrameIndex,
	})
}

func (p *Pump) publish(ev events.Event) {
	if p.events != nil {
		p.events.Publish(ev)
	}
}
