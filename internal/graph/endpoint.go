package graph

import (
	"fmt"

	"github.com/smazurov/framegraph/internal/compiler"
	"github.com/smazurov/framegraph/internal/frame"
	"github.com/smazurov/framegraph/internal/topology"
)

// Status is the outcome of a non-blocking pull.
type Status int

const (
	StatusReady Status = iota
	StatusWouldBlock
	StatusEOF
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusWouldBlock:
		return "would_block"
	case StatusEOF:
		return "eof"
	default:
		return "unknown"
	}
}

// Endpoint is an adapter bound to one open pad of the topology.
type Endpoint interface {
	Name() string
	Descriptor() compiler.PadDescriptor
	MediaType() frame.MediaType
	Params() frame.Params
	EOF() bool
	Close() error
}

// SourceAdapter feeds frames into an open input pad.
type SourceAdapter struct {
	desc    compiler.PadDescriptor
	ordinal int
	params  frame.Params
	node    *topology.Node
	pending int
	eof     bool
	closed  bool
}

var (
	_ Endpoint                 = (*SourceAdapter)(nil)
	_ topology.Filter          = (*SourceAdapter)(nil)
	_ topology.RequestListener = (*SourceAdapter)(nil)
)

func newSourceAdapter(desc compiler.PadDescriptor, ordinal int, params frame.Params) *SourceAdapter {
	return &SourceAdapter{desc: desc, ordinal: ordinal, params: params}
}

// Name returns the pad name the adapter is bound to.
func (s *SourceAdapter) Name() string { return s.desc.Name }

// Descriptor returns the bound pad.
func (s *SourceAdapter) Descriptor() compiler.PadDescriptor { return s.desc }

// MediaType returns the pad's media type.
func (s *SourceAdapter) MediaType() frame.MediaType { return s.desc.MediaType }

// Params returns the format learned from the probe frame.
func (s *SourceAdapter) Params() frame.Params { return s.params }

// Ordinal is the pad index passed to the frame source.
func (s *SourceAdapter) Ordinal() int { return s.ordinal }

// EOF reports whether the end of stream sentinel was pushed.
func (s *SourceAdapter) EOF() bool { return s.eof }

// PendingBackpressureRequests returns how many times downstream asked for a
// frame since the last successful push.
func (s *SourceAdapter) PendingBackpressureRequests() int { return s.pending }

// Push transfers f into the graph. A nil frame is the end of stream sentinel;
// pushing it more than once is a no-op.
func (s *SourceAdapter) Push(f *frame.Frame) error {
	if s.closed {
		return newError(CodeFeed, "feed", s.Name(), nil, "endpoint is closed")
	}
	if f == nil {
		if s.eof {
			return nil
		}
		s.eof = true
		s.pending = 0
		if err := s.node.EndOfStream(0); err != nil {
			return newError(CodeFeed, "feed", s.Name(), err, "end of stream")
		}
		return nil
	}
	if s.eof {
		return newError(CodeFeed, "feed", s.Name(), nil, "frame pushed after end of stream")
	}
	if err := s.CheckFrame(f); err != nil {
		return err
	}
	s.pending = 0
	if err := s.node.Emit(0, f); err != nil {
		return newError(CodeFeed, "feed", s.Name(), err, "push frame %d", f.PTS)
	}
	return nil
}

// CheckFrame verifies that f is complete and matches the negotiated format.
func (s *SourceAdapter) CheckFrame(f *frame.Frame) error {
	if !f.Complete() {
		return newError(CodeFeed, "feed", s.Name(), nil, "incomplete frame %v", f)
	}
	if !s.params.Matches(f) {
		return newError(CodeFeed, "feed", s.Name(), nil, "frame %v does not match negotiated %v", f, s.params)
	}
	return nil
}

// Close detaches the adapter; further pushes fail.
func (s *SourceAdapter) Close() error {
	s.closed = true
	return nil
}

func (s *SourceAdapter) InputPads() []topology.Pad { return nil }

func (s *SourceAdapter) OutputPads() []topology.Pad {
	return []topology.Pad{{Name: "default", Type: s.desc.MediaType}}
}

func (s *SourceAdapter) Negotiate([]frame.Params) ([]frame.Params, error) {
	return []frame.Params{s.params}, nil
}

func (s *SourceAdapter) FilterFrame(int, *frame.Frame, topology.Emitter) error {
	return fmt.Errorf("source endpoint has no inputs")
}

func (s *SourceAdapter) EndOfStream(int, topology.Emitter) error { return nil }

// FrameRequested records a backpressure request from downstream.
func (s *SourceAdapter) FrameRequested() {
	if !s.eof && !s.closed {
		s.pending++
	}
}

// SinkAdapter buffers frames arriving on an open output pad until pulled.
type SinkAdapter struct {
	desc          compiler.PadDescriptor
	pixelFormats  []frame.PixelFormat
	sampleFormats []frame.SampleFormat
	params        frame.Params
	node          *topology.Node
	queue         []*frame.Frame
	eof           bool
	upstreamErr   error
	negotiateErr  error
	closed        bool
}

var (
	_ Endpoint                 = (*SinkAdapter)(nil)
	_ topology.Filter          = (*SinkAdapter)(nil)
	_ topology.FailureListener = (*SinkAdapter)(nil)
)

func newSinkAdapter(desc compiler.PadDescriptor, pix []frame.PixelFormat, smp []frame.SampleFormat) *SinkAdapter {
	return &SinkAdapter{desc: desc, pixelFormats: pix, sampleFormats: smp}
}

// Name returns the pad name the adapter is bound to.
func (s *SinkAdapter) Name() string { return s.desc.Name }

// Descriptor returns the bound pad.
func (s *SinkAdapter) Descriptor() compiler.PadDescriptor { return s.desc }

// MediaType returns the pad's media type.
func (s *SinkAdapter) MediaType() frame.MediaType { return s.desc.MediaType }

// Params returns the format negotiated for this output.
func (s *SinkAdapter) Params() frame.Params { return s.params }

// EOF reports whether the output reached end of stream and its queue is empty.
func (s *SinkAdapter) EOF() bool { return s.eof && len(s.queue) == 0 }

// Buffered returns the number of frames waiting to be pulled.
func (s *SinkAdapter) Buffered() int { return len(s.queue) }

// Pull returns the next frame without blocking. When nothing is buffered
// the adapter asks upstream for data and reports StatusWouldBlock.
func (s *SinkAdapter) Pull() (*frame.Frame, Status, error) {
	if s.closed {
		return nil, StatusWouldBlock, newError(CodeDrain, "drain", s.Name(), nil, "endpoint is closed")
	}
	if s.upstreamErr != nil {
		err := s.upstreamErr
		s.upstreamErr = nil
		return nil, StatusWouldBlock, newError(CodeDrain, "drain", s.Name(), err, "upstream filter failed")
	}
	if len(s.queue) > 0 {
		f := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		return f, StatusReady, nil
	}
	if s.eof {
		return nil, StatusEOF, nil
	}
	s.node.Request()
	return nil, StatusWouldBlock, nil
}

// Close drops buffered frames; further pulls fail.
func (s *SinkAdapter) Close() error {
	s.closed = true
	s.queue = nil
	return nil
}

func (s *SinkAdapter) InputPads() []topology.Pad {
	return []topology.Pad{{Name: "default", Type: s.desc.MediaType}}
}

func (s *SinkAdapter) OutputPads() []topology.Pad { return nil }

// Negotiate checks the upstream format against the accepted formats.
func (s *SinkAdapter) Negotiate(in []frame.Params) ([]frame.Params, error) {
	p := in[0]
	switch {
	case p.Type == frame.MediaTypeVideo && len(s.pixelFormats) > 0 && !containsFormat(s.pixelFormats, p.PixelFormat):
		s.negotiateErr = fmt.Errorf("output format %s not in accepted formats %v", p.PixelFormat, s.pixelFormats)
	case p.Type == frame.MediaTypeAudio && len(s.sampleFormats) > 0 && !containsFormat(s.sampleFormats, p.SampleFormat):
		s.negotiateErr = fmt.Errorf("output format %s not in accepted formats %v", p.SampleFormat, s.sampleFormats)
	}
	if s.negotiateErr != nil {
		return nil, s.negotiateErr
	}
	s.params = p
	return nil, nil
}

func (s *SinkAdapter) FilterFrame(_ int, f *frame.Frame, _ topology.Emitter) error {
	if !f.Complete() {
		return fmt.Errorf("incomplete frame %v reached output", f)
	}
	s.queue = append(s.queue, f)
	return nil
}

func (s *SinkAdapter) EndOfStream(int, topology.Emitter) error {
	s.eof = true
	return nil
}

// UpstreamFailed records a filter failure to report on the next pull.
func (s *SinkAdapter) UpstreamFailed(err error) {
	s.upstreamErr = err
}

func containsFormat[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
