package filters

import (
	"fmt"

	"github.com/smazurov/framegraph/internal/frame"
	"github.com/smazurov/framegraph/internal/topology"
)

var (
	videoPad = topology.Pad{Name: "default", Type: frame.MediaTypeVideo}
	audioPad = topology.Pad{Name: "default", Type: frame.MediaTypeAudio}
)

// expect checks that negotiated input params carry the given media type.
func expect(in []frame.Params, idx int, t frame.MediaType) error {
	if idx >= len(in) || in[idx].Type != t {
		return fmt.Errorf("input %d: expected %s input", idx, t)
	}
	return nil
}

type passthrough struct {
	pad topology.Pad
}

func newPassthrough(pad topology.Pad) *passthrough {
	return &passthrough{pad: pad}
}

func (p *passthrough) InputPads() []topology.Pad  { return []topology.Pad{p.pad} }
func (p *passthrough) OutputPads() []topology.Pad { return []topology.Pad{p.pad} }

func (p *passthrough) Negotiate(in []frame.Params) ([]frame.Params, error) {
	if err := expect(in, 0, p.pad.Type); err != nil {
		return nil, err
	}
	return []frame.Params{in[0]}, nil
}

func (p *passthrough) FilterFrame(_ int, f *frame.Frame, out topology.Emitter) error {
	return out.Emit(0, f)
}

func (p *passthrough) EndOfStream(_ int, out topology.Emitter) error {
	return out.EndOfStream(0)
}
