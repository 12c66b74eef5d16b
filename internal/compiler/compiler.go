// Package compiler turns an ffmpeg-style filtergraph description into a
// topology of filter nodes and reports every pad left unconnected.
package compiler

import (
	"errors"
	"fmt"
	"sort"

	"github.com/smazurov/framegraph/internal/filters"
	"github.com/smazurov/framegraph/internal/frame"
	"github.com/smazurov/framegraph/internal/logging"
	"github.com/smazurov/framegraph/internal/topology"
)

// Direction tells whether an open pad consumes or produces frames.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// PadDescriptor describes one unconnected pad of a compiled topology.
type PadDescriptor struct {
	// Name is the label from the description, or "<node>:<pad>" for unlabeled pads.
	Name      string
	Index     int
	Node      string
	Filter    string
	MediaType frame.MediaType
	Direction Direction
}

func (d PadDescriptor) String() string {
	return fmt.Sprintf("%s %s [%s] on %s pad %d", d.MediaType, d.Direction, d.Name, d.Node, d.Index)
}

type padRef struct {
	node   *topology.Node
	filter string
	pad    int
	typ    frame.MediaType
	pos    int
}

type openPad struct {
	padRef
	name string
}

// Compile parses desc and instantiates its filters from reg. Open inputs and
// outputs are returned in order of appearance.
func Compile(desc string, reg *filters.Registry) (*topology.Topology, []PadDescriptor, error) {
	chains, err := parse(desc)
	if err != nil {
		return nil, nil, err
	}

	b := &builder{
		topo:     topology.New(),
		reg:      reg,
		labelOut: make(map[string]padRef),
		labelIn:  make(map[string]padRef),
	}
	for _, chain := range chains {
		if err := b.addChain(chain); err != nil {
			return nil, nil, err
		}
	}
	if err := b.resolveLabels(); err != nil {
		return nil, nil, err
	}

	pads := b.descriptors()
	logging.GetLogger("compiler").Debug("Compiled graph",
		"nodes", len(b.topo.Nodes()), "open_pads", len(pads))
	return b.topo, pads, nil
}

type builder struct {
	topo  *topology.Topology
	reg   *filters.Registry
	count int

	labelOut  map[string]padRef
	labelIn   map[string]padRef
	labelIns  []string // input labels in order of appearance
	labelOuts []string

	openIn  []openPad
	openOut []openPad
}

func (b *builder) addChain(chain chainSpec) error {
	var prev []padRef
	for _, spec := range chain.filters {
		f, err := b.reg.Create(spec.name, spec.args)
		if err != nil {
			return &ParseError{Message: err.Error(), Position: spec.pos}
		}
		nodeName := fmt.Sprintf("Parsed_%s_%d", spec.name, b.count)
		b.count++
		node, err := b.topo.AddNode(nodeName, f)
		if err != nil {
			return &ParseError{Message: err.Error(), Position: spec.pos}
		}

		inPads := f.InputPads()
		if len(spec.inputs) > len(inPads) {
			return parseErrorf(spec.inputs[len(inPads)].pos,
				"too many input labels for filter %s (%d pads)", spec.name, len(inPads))
		}
		for i, l := range spec.inputs {
			if _, dup := b.labelIn[l.name]; dup {
				return parseErrorf(l.pos, "input label [%s] used more than once", l.name)
			}
			b.labelIn[l.name] = padRef{node: node, filter: spec.name, pad: i, typ: inPads[i].Type, pos: l.pos}
			b.labelIns = append(b.labelIns, l.name)
		}
		for i := len(spec.inputs); i < len(inPads); i++ {
			dst := padRef{node: node, filter: spec.name, pad: i, typ: inPads[i].Type, pos: spec.pos}
			if len(prev) > 0 {
				src := prev[0]
				prev = prev[1:]
				if err := b.link(src, dst, spec.pos); err != nil {
					return err
				}
				continue
			}
			b.openIn = append(b.openIn, openPad{padRef: dst})
		}
		// Outputs of the previous filter nobody consumed stay open.
		for _, src := range prev {
			b.openOut = append(b.openOut, openPad{padRef: src})
		}

		outPads := f.OutputPads()
		if len(spec.outputs) > len(outPads) {
			return parseErrorf(spec.outputs[len(outPads)].pos,
				"too many output labels for filter %s (%d pads)", spec.name, len(outPads))
		}
		prev = nil
		for i, pad := range outPads {
			ref := padRef{node: node, filter: spec.name, pad: i, typ: pad.Type, pos: spec.pos}
			if i < len(spec.outputs) {
				l := spec.outputs[i]
				if _, dup := b.labelOut[l.name]; dup {
					return parseErrorf(l.pos, "output label [%s] used more than once", l.name)
				}
				ref.pos = l.pos
				b.labelOut[l.name] = ref
				b.labelOuts = append(b.labelOuts, l.name)
				continue
			}
			prev = append(prev, ref)
		}
	}
	for _, src := range prev {
		b.openOut = append(b.openOut, openPad{padRef: src})
	}
	return nil
}

func (b *builder) resolveLabels() error {
	for _, name := range b.labelIns {
		dst := b.labelIn[name]
		src, ok := b.labelOut[name]
		if !ok {
			b.openIn = append(b.openIn, openPad{padRef: dst, name: name})
			continue
		}
		if err := b.link(src, dst, dst.pos); err != nil {
			return err
		}
	}
	for _, name := range b.labelOuts {
		if _, ok := b.labelIn[name]; !ok {
			b.openOut = append(b.openOut, openPad{padRef: b.labelOut[name], name: name})
		}
	}
	return nil
}

func (b *builder) link(src, dst padRef, pos int) error {
	if err := b.topo.Link(src.node, src.pad, dst.node, dst.pad); err != nil {
		var ve *topology.ValidationError
		if errors.As(err, &ve) {
			return &ParseError{Message: ve.Error(), Position: pos}
		}
		return err
	}
	return nil
}

func (b *builder) descriptors() []PadDescriptor {
	sort.SliceStable(b.openIn, func(i, j int) bool { return b.openIn[i].pos < b.openIn[j].pos })
	sort.SliceStable(b.openOut, func(i, j int) bool { return b.openOut[i].pos < b.openOut[j].pos })

	pads := make([]PadDescriptor, 0, len(b.openIn)+len(b.openOut))
	for _, p := range b.openIn {
		pads = append(pads, p.descriptor(Input))
	}
	for _, p := range b.openOut {
		pads = append(pads, p.descriptor(Output))
	}
	return pads
}

func (p openPad) descriptor(dir Direction) PadDescriptor {
	name := p.name
	if name == "" {
		name = fmt.Sprintf("%s:%d", p.node.Name(), p.pad)
	}
	return PadDescriptor{
		Name:      name,
		Index:     p.pad,
		Node:      p.node.Name(),
		Filter:    p.filter,
		MediaType: p.typ,
		Direction: dir,
	}
}

// Inputs filters pads down to open inputs.
func Inputs(pads []PadDescriptor) []PadDescriptor {
	return byDirection(pads, Input)
}

// Outputs filters pads down to open outputs.
func Outputs(pads []PadDescriptor) []PadDescriptor {
	return byDirection(pads, Output)
}

func byDirection(pads []PadDescriptor, dir Direction) []PadDescriptor {
	var out []PadDescriptor
	for _, p := range pads {
		if p.Direction == dir {
			out = append(out, p)
		}
	}
	return out
}
