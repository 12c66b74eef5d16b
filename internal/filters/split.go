package filters

import (
	"fmt"

	"github.com/smazurov/framegraph/internal/frame"
	"github.com/smazurov/framegraph/internal/topology"
)

// split duplicates its input onto N outputs. The first output receives the
// original frame, the rest receive clones.
type split struct {
	pad     topology.Pad
	outputs int
}

func newSplit(pad topology.Pad, o Options) (topology.Filter, error) {
	n, err := o.Int("outputs", 2)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("outputs must be at least 1, got %d", n)
	}
	return &split{pad: pad, outputs: n}, nil
}

func (s *split) InputPads() []topology.Pad { return []topology.Pad{s.pad} }

func (s *split) OutputPads() []topology.Pad {
	pads := make([]topology.Pad, s.outputs)
	for i := range pads {
		pads[i] = topology.Pad{Name: fmt.Sprintf("output%d", i), Type: s.pad.Type}
	}
	return pads
}

func (s *split) Negotiate(in []frame.Params) ([]frame.Params, error) {
	if err := expect(in, 0, s.pad.Type); err != nil {
		return nil, err
	}
	out := make([]frame.Params, s.outputs)
	for i := range out {
		out[i] = in[0]
	}
	return out, nil
}

func (s *split) FilterFrame(_ int, f *frame.Frame, out topology.Emitter) error {
	// Clone before handing off the original; downstream may mutate it.
	copies := make([]*frame.Frame, s.outputs)
	copies[0] = f
	for i := 1; i < s.outputs; i++ {
		copies[i] = f.Clone()
	}
	for i, c := range copies {
		if err := out.Emit(i, c); err != nil {
			return err
		}
	}
	return nil
}

func (s *split) EndOfStream(_ int, out topology.Emitter) error {
	for i := 0; i < s.outputs; i++ {
		if err := out.EndOfStream(i); err != nil {
			return err
		}
	}
	return nil
}
