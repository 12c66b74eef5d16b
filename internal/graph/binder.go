package graph

import (
	"github.com/smazurov/framegraph/internal/compiler"
	"github.com/smazurov/framegraph/internal/source"
)

// BindOrder selects which open pads the binder attaches first.
type BindOrder int

const (
	// BindOutputsFirst attaches sinks before any input is linked.
	BindOutputsFirst BindOrder = iota
	BindInputsFirst
)

func (o BindOrder) String() string {
	if o == BindInputsFirst {
		return "inputs-first"
	}
	return "outputs-first"
}

// ParseBindOrder maps a config value to a BindOrder. Empty selects the default.
func ParseBindOrder(s string) (BindOrder, bool) {
	switch s {
	case "", "outputs-first":
		return BindOutputsFirst, true
	case "inputs-first":
		return BindInputsFirst, true
	default:
		return BindOutputsFirst, false
	}
}

// Binder attaches endpoints to every open pad of a graph that is not bound yet.
type Binder struct {
	graph *Graph
	src   source.Source
	order BindOrder
}

// NewBinder returns a binder probing src for input formats.
func NewBinder(g *Graph, src source.Source, order BindOrder) *Binder {
	return &Binder{graph: g, src: src, order: order}
}

// BindAll binds every unbound descriptor. The first failure leaves the graph
// Failed with all endpoints released.
func (b *Binder) BindAll() error {
	passes := []compiler.Direction{compiler.Output, compiler.Input}
	if b.order == BindInputsFirst {
		passes = []compiler.Direction{compiler.Input, compiler.Output}
	}

	for _, dir := range passes {
		for _, desc := range b.graph.pads {
			if desc.Direction != dir || b.graph.isBound(desc) {
				continue
			}
			var err error
			if dir == compiler.Output {
				_, err = b.graph.BindOutput(desc)
			} else {
				_, err = b.graph.BindInput(desc, b.src)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}
