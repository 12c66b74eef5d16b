package topology

import "github.com/smazurov/framegraph/internal/frame"

// Pad is a typed connection point on a filter.
type Pad struct {
	Name string
	Type frame.MediaType
}

// Filter is the processing contract every node of a topology satisfies.
// Concrete filters, source endpoints and sink endpoints all implement it.
//
// Frames are delivered synchronously: FilterFrame may call out.Emit any
// number of times before returning, and emitted frames reach downstream
// nodes before Emit returns.
type Filter interface {
	InputPads() []Pad
	OutputPads() []Pad

	// Negotiate receives the params of every input link, in pad order, and
	// returns the params of every output pad.
	Negotiate(inputs []frame.Params) ([]frame.Params, error)

	// FilterFrame takes ownership of f arriving on input pad in.
	FilterFrame(in int, f *frame.Frame, out Emitter) error

	// EndOfStream is called once when input pad in will receive no more frames.
	EndOfStream(in int, out Emitter) error
}

// Emitter is the node-side view a filter uses to produce output.
type Emitter interface {
	Emit(pad int, f *frame.Frame) error
	EndOfStream(pad int) error
	OutputParams(pad int) frame.Params
	InputParams(pad int) frame.Params
}

// Starver is implemented by filters that can tell which inputs they are
// currently blocked on. Requests only travel up those inputs.
type Starver interface {
	Starving() []int
}

// RequestListener is notified when a downstream consumer asked for a frame
// that had to come from this node.
type RequestListener interface {
	FrameRequested()
}

// FailureListener is notified when a node upstream of it failed while
// processing a frame.
type FailureListener interface {
	UpstreamFailed(err error)
}
