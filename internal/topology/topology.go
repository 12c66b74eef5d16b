// Package topology holds a compiled filter graph: named nodes, the links
// between their pads, format negotiation and synchronous frame delivery.
//
// A Topology is built in two phases. While unconfigured, nodes and links may
// be added freely. Configure validates the structure, negotiates a format on
// every link in dependency order and freezes the topology; from then on only
// frame traffic is allowed.
//
// A Topology is not safe for concurrent use.
package topology

import (
	"errors"

	"github.com/smazurov/framegraph/internal/frame"
)

type link struct {
	src    *Node
	srcPad int
	dst    *Node
	dstPad int
	params frame.Params
}

// Topology is the compiled node graph.
type Topology struct {
	nodes      []*Node
	byName     map[string]*Node
	configured bool
}

// New returns an empty topology.
func New() *Topology {
	return &Topology{byName: make(map[string]*Node)}
}

// AddNode registers a filter under a unique instance name.
func (t *Topology) AddNode(name string, f Filter) (*Node, error) {
	if t.configured {
		return nil, ErrConfigured
	}
	if name == "" {
		return nil, validationf("", "node name must not be empty")
	}
	if _, exists := t.byName[name]; exists {
		return nil, validationf(name, "node already exists")
	}

	n := &Node{
		name:    name,
		filter:  f,
		topo:    t,
		inputs:  make([]*link, len(f.InputPads())),
		outputs: make([]*link, len(f.OutputPads())),
		inEOF:   make([]bool, len(f.InputPads())),
		outEOF:  make([]bool, len(f.OutputPads())),
	}
	t.nodes = append(t.nodes, n)
	t.byName[name] = n
	return n, nil
}

// Node returns the node registered under name, or nil.
func (t *Topology) Node(name string) *Node {
	return t.byName[name]
}

// Nodes returns all nodes in insertion order.
func (t *Topology) Nodes() []*Node {
	out := make([]*Node, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// Configured reports whether Configure succeeded.
func (t *Topology) Configured() bool {
	return t.configured
}

// Link connects output pad srcPad of src to input pad dstPad of dst.
// Each pad may take part in exactly one link and both pads must carry the
// same media type.
func (t *Topology) Link(src *Node, srcPad int, dst *Node, dstPad int) error {
	if t.configured {
		return ErrConfigured
	}
	if src == nil || dst == nil || src.topo != t || dst.topo != t {
		return validationf("", "link endpoints must belong to this topology")
	}
	outPads := src.filter.OutputPads()
	inPads := dst.filter.InputPads()
	if srcPad < 0 || srcPad >= len(outPads) {
		return validationf(src.name, "output pad %d out of range (%d pads)", srcPad, len(outPads))
	}
	if dstPad < 0 || dstPad >= len(inPads) {
		return validationf(dst.name, "input pad %d out of range (%d pads)", dstPad, len(inPads))
	}
	if src.outputs[srcPad] != nil {
		return validationf(src.name, "output pad %q is already linked", outPads[srcPad].Name)
	}
	if dst.inputs[dstPad] != nil {
		return validationf(dst.name, "input pad %q is already linked", inPads[dstPad].Name)
	}
	if outPads[srcPad].Type != inPads[dstPad].Type {
		return validationf(dst.name, "cannot link %s output %s:%s to %s input %s",
			outPads[srcPad].Type, src.name, outPads[srcPad].Name, inPads[dstPad].Type, inPads[dstPad].Name)
	}

	l := &link{src: src, srcPad: srcPad, dst: dst, dstPad: dstPad}
	src.outputs[srcPad] = l
	dst.inputs[dstPad] = l
	return nil
}

// Validate checks that every pad is linked and that the graph is acyclic.
func (t *Topology) Validate() error {
	for _, n := range t.nodes {
		for i, l := range n.inputs {
			if l == nil {
				return validationf(n.name, "input pad %q is not connected", n.filter.InputPads()[i].Name)
			}
		}
		for i, l := range n.outputs {
			if l == nil {
				return validationf(n.name, "output pad %q is not connected", n.filter.OutputPads()[i].Name)
			}
		}
	}
	_, err := t.order()
	return err
}

// order returns the nodes sorted so that every node follows all of its
// upstream nodes.
func (t *Topology) order() ([]*Node, error) {
	indegree := make(map[*Node]int, len(t.nodes))
	for _, n := range t.nodes {
		for _, l := range n.inputs {
			if l != nil {
				indegree[n]++
			}
		}
	}

	queue := make([]*Node, 0, len(t.nodes))
	for _, n := range t.nodes {
		if indegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	sorted := make([]*Node, 0, len(t.nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		sorted = append(sorted, n)
		for _, l := range n.outputs {
			if l == nil {
				continue
			}
			indegree[l.dst]--
			if indegree[l.dst] == 0 {
				queue = append(queue, l.dst)
			}
		}
	}

	if len(sorted) != len(t.nodes) {
		for _, n := range t.nodes {
			if indegree[n] > 0 {
				return nil, validationf(n.name, "node is part of a cycle")
			}
		}
	}
	return sorted, nil
}

// Configure validates the topology, negotiates formats on every link and
// freezes the structure.
func (t *Topology) Configure() error {
	if t.configured {
		return ErrConfigured
	}
	if err := t.Validate(); err != nil {
		return err
	}
	sorted, err := t.order()
	if err != nil {
		return err
	}

	for _, n := range sorted {
		ins := make([]frame.Params, len(n.inputs))
		for i, l := range n.inputs {
			ins[i] = l.params
		}

		outs, negErr := n.filter.Negotiate(ins)
		if negErr != nil {
			var ve *ValidationError
			if errors.As(negErr, &ve) {
				return negErr
			}
			return validationf(n.name, "format negotiation failed: %v", negErr)
		}

		pads := n.filter.OutputPads()
		if len(outs) != len(pads) {
			return validationf(n.name, "negotiated %d outputs for %d pads", len(outs), len(pads))
		}
		for i, p := range outs {
			if p.Type != pads[i].Type {
				return validationf(n.name, "output %q negotiated %s, pad is %s", pads[i].Name, p.Type, pads[i].Type)
			}
			n.outputs[i].params = p
		}
	}

	t.configured = true
	return nil
}

// Request signals that n wants a frame it does not have. The request walks
// upstream along the inputs n (and each node on the way) is starving on, and
// every RequestListener reached is notified once.
func (t *Topology) Request(n *Node) {
	visited := make(map[*Node]bool)
	t.request(n, visited)
}

func (t *Topology) request(n *Node, visited map[*Node]bool) {
	if visited[n] {
		return
	}
	visited[n] = true

	var pads []int
	if s, ok := n.filter.(Starver); ok {
		pads = s.Starving()
	} else {
		for i := range n.inputs {
			if !n.inEOF[i] {
				pads = append(pads, i)
			}
		}
	}

	for _, pad := range pads {
		if pad < 0 || pad >= len(n.inputs) || n.inputs[pad] == nil {
			continue
		}
		up := n.inputs[pad].src
		if visited[up] {
			continue
		}
		if rl, ok := up.filter.(RequestListener); ok {
			rl.FrameRequested()
		}
		t.request(up, visited)
	}
}

// notifyFailure tells every FailureListener downstream of n about err.
func (t *Topology) notifyFailure(n *Node, err error) {
	visited := make(map[*Node]bool)
	var walk func(*Node)
	walk = func(cur *Node) {
		for _, l := range cur.outputs {
			if l == nil || visited[l.dst] {
				continue
			}
			visited[l.dst] = true
			if fl, ok := l.dst.filter.(FailureListener); ok {
				fl.UpstreamFailed(err)
			}
			walk(l.dst)
		}
	}
	walk(n)
}
