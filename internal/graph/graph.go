// Package graph owns a compiled filter topology together with the source and
// sink endpoints bound to its open pads, and drives its configure lifecycle.
//
// A Graph is single-owner: it must only be used from the goroutine running
// its pump.
package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/smazurov/framegraph/internal/compiler"
	"github.com/smazurov/framegraph/internal/events"
	"github.com/smazurov/framegraph/internal/filters"
	"github.com/smazurov/framegraph/internal/frame"
	"github.com/smazurov/framegraph/internal/logging"
	"github.com/smazurov/framegraph/internal/metrics"
	"github.com/smazurov/framegraph/internal/source"
	"github.com/smazurov/framegraph/internal/topology"
)

// Options configures a Graph.
type Options struct {
	// ID identifies the graph in logs, events and metrics. Generated when empty.
	ID string
	// Registry resolves filter names; filters.Default() when nil.
	Registry *filters.Registry
	// BindOrder controls which pads Configure binds first.
	BindOrder BindOrder
	// PixelFormats and SampleFormats restrict what outputs accept. Empty accepts all.
	PixelFormats  []frame.PixelFormat
	SampleFormats []frame.SampleFormat
	// Events receives lifecycle events; nil disables publishing.
	Events events.Publisher
	Logger *slog.Logger
}

// Graph is a compiled topology plus its bound endpoints.
type Graph struct {
	id      string
	desc    string
	opts    Options
	logger  *slog.Logger
	topo    *topology.Topology
	pads    []compiler.PadDescriptor
	inputs  []*SourceAdapter
	outputs []*SinkAdapter
	bound   map[padKey]bool
	state   State
	err     error
	closed  bool
}

type padKey struct {
	node  string
	index int
	dir   compiler.Direction
}

func keyOf(d compiler.PadDescriptor) padKey {
	return padKey{node: d.Node, index: d.Index, dir: d.Direction}
}

// New compiles desc. A malformed description yields a GRAPH_PARSE error and
// no graph.
func New(desc string, opts Options) (*Graph, error) {
	if opts.Registry == nil {
		opts.Registry = filters.Default()
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger("graph")
	}
	logger = logger.With("graph_id", opts.ID)

	topo, pads, err := compiler.Compile(desc, opts.Registry)
	if err != nil {
		var pe *compiler.ParseError
		if errors.As(err, &pe) {
			return nil, newError(CodeGraphParse, "parse", "", pe, "invalid graph description")
		}
		return nil, newError(CodeGraphParse, "parse", "", err, "invalid graph description")
	}

	g := &Graph{
		id:     opts.ID,
		desc:   desc,
		opts:   opts,
		logger: logger,
		topo:   topo,
		pads:   pads,
		bound:  make(map[padKey]bool),
		state:  StateUnconfigured,
	}
	metrics.SetGraphState(g.id, g.state.String())
	logger.Debug("Graph compiled", "pads", len(pads), "nodes", len(topo.Nodes()))
	return g, nil
}

// ID returns the graph identifier.
func (g *Graph) ID() string { return g.id }

// Description returns the source description.
func (g *Graph) Description() string { return g.desc }

// State returns the lifecycle state.
func (g *Graph) State() State { return g.state }

// Err returns the error that moved the graph to Failed.
func (g *Graph) Err() error { return g.err }

// Pads returns the open pads discovered at compile time.
func (g *Graph) Pads() []compiler.PadDescriptor {
	out := make([]compiler.PadDescriptor, len(g.pads))
	copy(out, g.pads)
	return out
}

// Inputs returns bound input endpoints in bind order.
func (g *Graph) Inputs() []*SourceAdapter {
	out := make([]*SourceAdapter, len(g.inputs))
	copy(out, g.inputs)
	return out
}

// Outputs returns bound output endpoints in bind order.
func (g *Graph) Outputs() []*SinkAdapter {
	out := make([]*SinkAdapter, len(g.outputs))
	copy(out, g.outputs)
	return out
}

// Logger returns the graph-scoped logger.
func (g *Graph) Logger() *slog.Logger { return g.logger }

// Events returns the configured publisher, or nil.
func (g *Graph) Events() events.Publisher { return g.opts.Events }

func (g *Graph) isBound(d compiler.PadDescriptor) bool {
	return g.bound[keyOf(d)]
}

func (g *Graph) known(d compiler.PadDescriptor) bool {
	for _, p := range g.pads {
		if keyOf(p) == keyOf(d) {
			return true
		}
	}
	return false
}

// inputOrdinal is the position of d among the graph's open inputs.
func (g *Graph) inputOrdinal(d compiler.PadDescriptor) int {
	for i, p := range compiler.Inputs(g.pads) {
		if keyOf(p) == keyOf(d) {
			return i
		}
	}
	return -1
}

func (g *Graph) checkBindable(d compiler.PadDescriptor, dir compiler.Direction) error {
	if g.state != StateUnconfigured && g.state != StateConfiguring {
		return newError(CodeInvalidState, "bind", d.Name, nil, "graph is %s", g.state)
	}
	if d.Direction != dir || !g.known(d) {
		return newError(CodeEndpointBind, "bind", d.Name, nil, "no open %s pad %s on %s", dir, d.Name, d.Node)
	}
	if g.isBound(d) {
		return newError(CodeEndpointBind, "bind", d.Name, nil, "pad is already bound")
	}
	switch d.MediaType {
	case frame.MediaTypeVideo, frame.MediaTypeAudio:
		return nil
	default:
		return g.fail(newError(CodeUnsupportedMediaType, "bind", d.Name, nil,
			"%s pads cannot be bound", d.MediaType))
	}
}

// BindOutput attaches a sink adapter to an open output pad.
func (g *Graph) BindOutput(d compiler.PadDescriptor) (*SinkAdapter, error) {
	if err := g.checkBindable(d, compiler.Output); err != nil {
		return nil, err
	}

	adapter := newSinkAdapter(d, g.opts.PixelFormats, g.opts.SampleFormats)
	node, err := g.topo.AddNode("buffersink:"+d.Name, adapter)
	if err != nil {
		return nil, g.fail(newError(CodeEndpointBind, "bind", d.Name, err, "create sink endpoint"))
	}
	adapter.node = node
	if err := g.topo.Link(g.topo.Node(d.Node), d.Index, node, 0); err != nil {
		return nil, g.fail(newError(CodeEndpointBind, "bind", d.Name, err, "link sink endpoint"))
	}

	g.bound[keyOf(d)] = true
	g.outputs = append(g.outputs, adapter)
	g.publishBound(d, "")
	return adapter, nil
}

// BindInput probes src for the pad's format and attaches a source adapter.
func (g *Graph) BindInput(d compiler.PadDescriptor, src source.Source) (*SourceAdapter, error) {
	if err := g.checkBindable(d, compiler.Input); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, g.fail(newError(CodeEndpointBind, "bind", d.Name, nil, "no frame source"))
	}

	ordinal := g.inputOrdinal(d)
	probe := src.Next(0, ordinal)
	params, err := probeParams(d, probe)
	if err != nil {
		return nil, g.fail(newError(CodeEndpointBind, "bind", d.Name, err, "probe input %d", ordinal))
	}

	adapter := newSourceAdapter(d, ordinal, params)
	node, err := g.topo.AddNode("buffer:"+d.Name, adapter)
	if err != nil {
		return nil, g.fail(newError(CodeEndpointBind, "bind", d.Name, err, "create source endpoint"))
	}
	adapter.node = node
	if err := g.topo.Link(node, 0, g.topo.Node(d.Node), d.Index); err != nil {
		return nil, g.fail(newError(CodeEndpointBind, "bind", d.Name, err, "link source endpoint"))
	}

	g.bound[keyOf(d)] = true
	g.inputs = append(g.inputs, adapter)
	g.publishBound(d, params.String())
	return adapter, nil
}

// probeParams derives buffer parameters from a probe frame.
func probeParams(d compiler.PadDescriptor, probe *frame.Frame) (frame.Params, error) {
	if probe == nil {
		return frame.Params{}, fmt.Errorf("source returned no probe frame")
	}
	if probe.Type != d.MediaType {
		return frame.Params{}, fmt.Errorf("probe frame is %s, pad expects %s", probe.Type, d.MediaType)
	}
	if !probe.Complete() {
		return frame.Params{}, fmt.Errorf("probe frame %v is incomplete", probe)
	}

	p := frame.ParamsOf(probe)
	switch d.MediaType {
	case frame.MediaTypeVideo:
		p.FrameRate = source.DefaultFrameRate
		p.TimeBase = frame.TimeBaseMicro
		if p.SampleAspect.Num == 0 || p.SampleAspect.Den == 0 {
			p.SampleAspect = frame.Rational{Num: 1, Den: 1}
		}
	case frame.MediaTypeAudio:
		if probe.SampleFormat != frame.SampleFormatS16 {
			return frame.Params{}, fmt.Errorf("audio inputs take s16 samples, probe is %s", probe.SampleFormat)
		}
		p.TimeBase = frame.Rational{Num: 1, Den: probe.SampleRate}
	}
	return p, nil
}

// Configure binds every open pad, validates the topology and negotiates
// formats. Any failure is terminal.
func (g *Graph) Configure(src source.Source) error {
	if g.state != StateUnconfigured {
		return newError(CodeInvalidState, "configure", "", nil, "graph is %s", g.state)
	}
	g.setState(StateConfiguring, nil)

	if err := NewBinder(g, src, g.opts.BindOrder).BindAll(); err != nil {
		if g.state != StateFailed {
			return g.fail(err)
		}
		return err
	}

	for _, d := range g.pads {
		if !g.isBound(d) {
			return g.fail(newError(CodeEndpointBind, "configure", d.Name, nil, "pad is not bound"))
		}
	}

	if err := g.topo.Configure(); err != nil {
		for _, out := range g.outputs {
			if out.negotiateErr != nil {
				return g.fail(newError(CodeEndpointBind, "configure", out.Name(), out.negotiateErr, "output format rejected"))
			}
		}
		return g.fail(newError(CodeTopologyValidation, "configure", "", err, "invalid topology"))
	}

	g.setState(StateConfigured, nil)
	g.logger.Info("Graph configured", "inputs", len(g.inputs), "outputs", len(g.outputs))
	return nil
}

// fail moves the graph to Failed and releases every endpoint.
func (g *Graph) fail(err error) error {
	if g.state == StateFailed {
		return err
	}
	g.err = err
	g.release()
	g.setState(StateFailed, err)
	g.logger.Error("Graph failed", "error", err)
	return err
}

func (g *Graph) release() {
	for _, in := range g.inputs {
		_ = in.Close()
	}
	for _, out := range g.outputs {
		_ = out.Close()
	}
	g.inputs = nil
	g.outputs = nil
}

// Close releases endpoints. Safe to call more than once.
func (g *Graph) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true
	g.release()
	g.logger.Debug("Graph closed", "state", g.state.String())
	return nil
}

func (g *Graph) setState(to State, err error) {
	from := g.state
	g.state = to
	metrics.SetGraphState(g.id, to.String())
	if g.opts.Events == nil {
		return
	}
	ev := events.GraphStateChangedEvent{
		GraphID:   g.id,
		From:      from.String(),
		To:        to.String(),
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	g.opts.Events.Publish(ev)
}

func (g *Graph) publishBound(d compiler.PadDescriptor, params string) {
	g.logger.Debug("Endpoint bound", "pad", d.Name, "direction", d.Direction.String(), "media_type", d.MediaType.String())
	if g.opts.Events == nil {
		return
	}
	g.opts.Events.Publish(events.EndpointBoundEvent{
		GraphID:   g.id,
		Endpoint:  d.Name,
		Direction: d.Direction.String(),
		MediaType: d.MediaType.String(),
		Params:    params,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
