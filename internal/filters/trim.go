package filters

import (
	"fmt"

	"github.com/smazurov/framegraph/internal/frame"
	"github.com/smazurov/framegraph/internal/topology"
)

// trim keeps frames with index in [start, end). An end of -1 keeps everything
// after start. Output ends as soon as the end index is reached.
type trim struct {
	start, end int
	seen       int
	done       bool
}

func newTrim(o Options) (topology.Filter, error) {
	start, err := o.Int("start_frame", 0)
	if err != nil {
		return nil, err
	}
	end, err := o.Int("end_frame", -1)
	if err != nil {
		return nil, err
	}
	if start < 0 {
		return nil, fmt.Errorf("start_frame must not be negative")
	}
	if end >= 0 && end <= start {
		return nil, fmt.Errorf("end_frame %d must be greater than start_frame %d", end, start)
	}
	return &trim{start: start, end: end}, nil
}

func (t *trim) InputPads() []topology.Pad  { return []topology.Pad{videoPad} }
func (t *trim) OutputPads() []topology.Pad { return []topology.Pad{videoPad} }

func (t *trim) Negotiate(in []frame.Params) ([]frame.Params, error) {
	if err := expect(in, 0, frame.MediaTypeVideo); err != nil {
		return nil, err
	}
	return []frame.Params{in[0]}, nil
}

func (t *trim) FilterFrame(_ int, f *frame.Frame, out topology.Emitter) error {
	if t.done {
		return nil
	}
	idx := t.seen
	t.seen++
	if idx < t.start {
		return nil
	}
	if err := out.Emit(0, f); err != nil {
		return err
	}
	if t.end >= 0 && t.seen >= t.end {
		t.done = true
		return out.EndOfStream(0)
	}
	return nil
}

func (t *trim) EndOfStream(_ int, out topology.Emitter) error {
	t.done = true
	return out.EndOfStream(0)
}
