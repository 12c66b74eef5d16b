package filters

import (
	"fmt"
	"strings"

	"github.com/smazurov/framegraph/internal/frame"
	"github.com/smazurov/framegraph/internal/topology"
)

// format converts video to the first listed pixel format, or keeps the input
// format when it is already listed.
type format struct {
	accepted []frame.PixelFormat
	out      frame.Params
}

func newFormat(o Options) (topology.Filter, error) {
	list := o.String("pix_fmts", "")
	if list == "" {
		return nil, fmt.Errorf("pix_fmts is required")
	}
	f := &format{}
	for _, name := range strings.Split(list, "|") {
		pf, err := frame.ParsePixelFormat(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		f.accepted = append(f.accepted, pf)
	}
	return f, nil
}

func (f *format) InputPads() []topology.Pad  { return []topology.Pad{videoPad} }
func (f *format) OutputPads() []topology.Pad { return []topology.Pad{videoPad} }

func (f *format) Negotiate(in []frame.Params) ([]frame.Params, error) {
	if err := expect(in, 0, frame.MediaTypeVideo); err != nil {
		return nil, err
	}
	f.out = in[0]
	f.out.PixelFormat = f.accepted[0]
	for _, pf := range f.accepted {
		if pf == in[0].PixelFormat {
			f.out.PixelFormat = pf
			break
		}
	}
	return []frame.Params{f.out}, nil
}

func (f *format) FilterFrame(_ int, src *frame.Frame, out topology.Emitter) error {
	if src.PixelFormat == f.out.PixelFormat {
		return out.Emit(0, src)
	}

	dst := frame.NewVideo(f.out.PixelFormat, src.Width, src.Height)
	dst.SampleAspect = src.SampleAspect
	dst.PTS = src.PTS
	dst.TimeBase = src.TimeBase

	// Luma is shared by both formats.
	w, h := src.PlaneSize(0)
	for y := 0; y < h; y++ {
		copy(dst.Planes[0][y*dst.Linesize[0]:y*dst.Linesize[0]+w], src.Planes[0][y*src.Linesize[0]:])
	}
	for i := 1; i < len(dst.Planes); i++ {
		for j := range dst.Planes[i] {
			dst.Planes[i][j] = 128
		}
	}
	return out.Emit(0, dst)
}

func (f *format) EndOfStream(_ int, out topology.Emitter) error {
	return out.EndOfStream(0)
}
