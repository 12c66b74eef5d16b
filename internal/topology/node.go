package topology

import (
	"errors"
	"fmt"

	"github.com/smazurov/framegraph/internal/frame"
)

// Node is one filter instance inside a topology. It implements Emitter on
// behalf of its filter.
type Node struct {
	name    string
	filter  Filter
	topo    *Topology
	inputs  []*link
	outputs []*link
	inEOF   []bool
	outEOF  []bool
}

// Name returns the instance name.
func (n *Node) Name() string { return n.name }

// Filter returns the filter backing this node.
func (n *Node) Filter() Filter { return n.filter }

// Linked reports whether the given pad is part of a link.
func (n *Node) Linked(input bool, pad int) bool {
	if input {
		return pad >= 0 && pad < len(n.inputs) && n.inputs[pad] != nil
	}
	return pad >= 0 && pad < len(n.outputs) && n.outputs[pad] != nil
}

// InputParams returns the negotiated params of input pad.
func (n *Node) InputParams(pad int) frame.Params {
	if pad < 0 || pad >= len(n.inputs) || n.inputs[pad] == nil {
		return frame.Params{}
	}
	return n.inputs[pad].params
}

// OutputParams returns the negotiated params of output pad.
func (n *Node) OutputParams(pad int) frame.Params {
	if pad < 0 || pad >= len(n.outputs) || n.outputs[pad] == nil {
		return frame.Params{}
	}
	return n.outputs[pad].params
}

// InputEOF reports whether input pad already received end of stream.
func (n *Node) InputEOF(pad int) bool {
	return pad >= 0 && pad < len(n.inEOF) && n.inEOF[pad]
}

// OutputEOF reports whether output pad already signaled end of stream.
func (n *Node) OutputEOF(pad int) bool {
	return pad >= 0 && pad < len(n.outEOF) && n.outEOF[pad]
}

// Emit delivers f on output pad to the downstream node.
func (n *Node) Emit(pad int, f *frame.Frame) error {
	if !n.topo.configured {
		return ErrNotConfigured
	}
	if pad < 0 || pad >= len(n.outputs) {
		return fmt.Errorf("%s: output pad %d out of range", n.name, pad)
	}
	if n.outEOF[pad] {
		return fmt.Errorf("%s: %w", n.name, ErrPadClosed)
	}
	l := n.outputs[pad]
	if !l.params.Matches(f) {
		return fmt.Errorf("%s: frame %v does not match negotiated %v", n.name, f, l.params)
	}
	return l.dst.receive(l.dstPad, f)
}

// EndOfStream closes output pad and propagates the signal downstream.
// Closing an already closed pad is a no-op.
func (n *Node) EndOfStream(pad int) error {
	if !n.topo.configured {
		return ErrNotConfigured
	}
	if pad < 0 || pad >= len(n.outputs) {
		return fmt.Errorf("%s: output pad %d out of range", n.name, pad)
	}
	if n.outEOF[pad] {
		return nil
	}
	n.outEOF[pad] = true
	l := n.outputs[pad]
	return l.dst.receiveEOF(l.dstPad)
}

// Request asks upstream nodes for more data on behalf of n.
func (n *Node) Request() {
	n.topo.Request(n)
}

func (n *Node) receive(pad int, f *frame.Frame) error {
	if n.inEOF[pad] {
		// late frame after end of stream, dropped
		return nil
	}
	if err := n.filter.FilterFrame(pad, f, n); err != nil {
		return n.wrap(err)
	}
	return nil
}

func (n *Node) receiveEOF(pad int) error {
	if n.inEOF[pad] {
		return nil
	}
	n.inEOF[pad] = true
	if err := n.filter.EndOfStream(pad, n); err != nil {
		return n.wrap(err)
	}
	return nil
}

// wrap attributes err to this node unless a downstream node already claimed it.
func (n *Node) wrap(err error) error {
	var ne *NodeError
	if errors.As(err, &ne) {
		return err
	}
	ne = &NodeError{Node: n.name, Err: err}
	n.topo.notifyFailure(n, ne)
	return ne
}
