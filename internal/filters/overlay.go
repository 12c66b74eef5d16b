package filters

import (
	"fmt"

	"github.com/smazurov/framegraph/internal/frame"
	"github.com/smazurov/framegraph/internal/topology"
)

const (
	overlayMain = iota
	overlayTop
)

// eofAction selects what overlay does once the top input ends.
type eofAction string

const (
	eofRepeat eofAction = "repeat" // keep compositing the last top frame
	eofEndAll eofAction = "endall" // end the output stream
	eofPass   eofAction = "pass"   // pass main frames through untouched
)

// overlay composites the second input onto the first. Frames are paired in
// arrival order: every main frame consumes at most one top frame.
type overlay struct {
	xExpr, yExpr string
	action       eofAction
	x, y         int

	queues  [2][]*frame.Frame
	eof     [2]bool
	last    *frame.Frame
	outDone bool
}

func newOverlay(o Options) (topology.Filter, error) {
	action := eofAction(o.String("eof_action", string(eofRepeat)))
	switch action {
	case eofRepeat, eofEndAll, eofPass:
	default:
		return nil, fmt.Errorf("invalid eof_action %q", action)
	}
	shortest, err := o.Bool("shortest", false)
	if err != nil {
		return nil, err
	}
	if shortest {
		action = eofEndAll
	}
	return &overlay{
		xExpr:  o.String("x", "0"),
		yExpr:  o.String("y", "0"),
		action: action,
	}, nil
}

func (o *overlay) InputPads() []topology.Pad {
	return []topology.Pad{
		{Name: "main", Type: frame.MediaTypeVideo},
		{Name: "overlay", Type: frame.MediaTypeVideo},
	}
}

func (o *overlay) OutputPads() []topology.Pad { return []topology.Pad{videoPad} }

func (o *overlay) Negotiate(in []frame.Params) ([]frame.Params, error) {
	if err := expect(in, overlayMain, frame.MediaTypeVideo); err != nil {
		return nil, err
	}
	if err := expect(in, overlayTop, frame.MediaTypeVideo); err != nil {
		return nil, err
	}
	main, top := in[overlayMain], in[overlayTop]
	if main.PixelFormat != top.PixelFormat {
		return nil, fmt.Errorf("pixel format mismatch: main %s, overlay %s", main.PixelFormat, top.PixelFormat)
	}

	vars := map[string]float64{
		"main_w": float64(main.Width), "main_h": float64(main.Height),
		"W": float64(main.Width), "H": float64(main.Height),
		"overlay_w": float64(top.Width), "overlay_h": float64(top.Height),
		"w": float64(top.Width), "h": float64(top.Height),
	}
	x, err := evalInt(o.xExpr, vars)
	if err != nil {
		return nil, fmt.Errorf("x: %w", err)
	}
	y, err := evalInt(o.yExpr, vars)
	if err != nil {
		return nil, fmt.Errorf("y: %w", err)
	}
	o.x, o.y = x, y

	return []frame.Params{main}, nil
}

func (o *overlay) FilterFrame(in int, f *frame.Frame, out topology.Emitter) error {
	if o.outDone {
		return nil
	}
	o.queues[in] = append(o.queues[in], f)
	return o.process(out)
}

func (o *overlay) EndOfStream(in int, out topology.Emitter) error {
	o.eof[in] = true
	if err := o.process(out); err != nil {
		return err
	}
	if o.eof[overlayMain] && len(o.queues[overlayMain]) == 0 {
		return o.finish(out)
	}
	return nil
}

// Starving reports the inputs that block output right now.
func (o *overlay) Starving() []int {
	var pads []int
	if len(o.queues[overlayMain]) == 0 && !o.eof[overlayMain] {
		pads = append(pads, overlayMain)
	}
	if len(o.queues[overlayTop]) == 0 && !o.eof[overlayTop] {
		pads = append(pads, overlayTop)
	}
	return pads
}

func (o *overlay) process(out topology.Emitter) error {
	for !o.outDone && len(o.queues[overlayMain]) > 0 {
		var top *frame.Frame
		switch {
		case len(o.queues[overlayTop]) > 0:
			top = o.queues[overlayTop][0]
			o.queues[overlayTop] = o.queues[overlayTop][1:]
			o.last = top
		case !o.eof[overlayTop]:
			return nil
		case o.action == eofEndAll:
			return o.finish(out)
		case o.action == eofRepeat:
			top = o.last
		}

		main := o.queues[overlayMain][0]
		o.queues[overlayMain] = o.queues[overlayMain][1:]
		if top != nil {
			blend(main, top, o.x, o.y)
		}
		if err := out.Emit(0, main); err != nil {
			return err
		}
	}
	return nil
}

func (o *overlay) finish(out topology.Emitter) error {
	if o.outDone {
		return nil
	}
	o.outDone = true
	o.queues = [2][]*frame.Frame{}
	return out.EndOfStream(0)
}

// blend copies top onto dst at (x, y), clipping at the edges. Chroma planes
// are placed at half resolution.
func blend(dst, top *frame.Frame, x, y int) {
	for i := range dst.Planes {
		if i >= len(top.Planes) {
			break
		}
		px, py := x, y
		if i > 0 && dst.PixelFormat == frame.PixelFormatYUV420P {
			px, py = x>>1, y>>1
		}
		dw, dh := dst.PlaneSize(i)
		tw, th := top.PlaneSize(i)
		for row := 0; row < th; row++ {
			dy := py + row
			if dy < 0 || dy >= dh {
				continue
			}
			startX, endX := 0, tw
			if px < 0 {
				startX = -px
			}
			if px+endX > dw {
				endX = dw - px
			}
			if startX >= endX {
				continue
			}
			srcOff := row*top.Linesize[i] + startX
			dstOff := dy*dst.Linesize[i] + px + startX
			copy(dst.Planes[i][dstOff:dstOff+endX-startX], top.Planes[i][srcOff:srcOff+endX-startX])
		}
	}
}
