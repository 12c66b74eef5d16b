package filters

import (
	"fmt"
	"math"

	"github.com/smazurov/framegraph/internal/frame"
	"github.com/smazurov/framegraph/internal/topology"
)

// scale resizes planar video with bilinear interpolation.
type scale struct {
	wExpr, hExpr string
	out          frame.Params
}

func newScale(o Options) (topology.Filter, error) {
	return &scale{
		wExpr: o.String("w", "iw"),
		hExpr: o.String("h", "ih"),
	}, nil
}

func (s *scale) InputPads() []topology.Pad  { return []topology.Pad{videoPad} }
func (s *scale) OutputPads() []topology.Pad { return []topology.Pad{videoPad} }

func (s *scale) Negotiate(in []frame.Params) ([]frame.Params, error) {
	if err := expect(in, 0, frame.MediaTypeVideo); err != nil {
		return nil, err
	}
	src := in[0]
	vars := map[string]float64{
		"iw": float64(src.Width), "ih": float64(src.Height),
		"in_w": float64(src.Width), "in_h": float64(src.Height),
	}
	width, err := evalInt(s.wExpr, vars)
	if err != nil {
		return nil, fmt.Errorf("width: %w", err)
	}
	height, err := evalInt(s.hExpr, vars)
	if err != nil {
		return nil, fmt.Errorf("height: %w", err)
	}

	width, height = keepAspect(width, height, src.Width, src.Height)
	if err := frame.CheckImageSize(width, height); err != nil {
		return nil, err
	}

	s.out = src
	s.out.Width = width
	s.out.Height = height
	return []frame.Params{s.out}, nil
}

// keepAspect resolves -1 (keep aspect) and -2 (keep aspect, even) sizes.
func keepAspect(w, h, iw, ih int) (int, int) {
	resolve := func(other, num, den, mode int) int {
		r := int(math.Round(float64(other) * float64(num) / float64(den)))
		if mode == -2 {
			r += r & 1
		}
		return r
	}
	switch {
	case (w == -1 || w == -2) && h > 0:
		w = resolve(h, iw, ih, w)
	case (h == -1 || h == -2) && w > 0:
		h = resolve(w, ih, iw, h)
	case w < 0 && h < 0:
		w, h = iw, ih
	}
	return w, h
}

func (s *scale) FilterFrame(_ int, f *frame.Frame, out topology.Emitter) error {
	if f.Width == s.out.Width && f.Height == s.out.Height {
		return out.Emit(0, f)
	}

	dst := frame.NewVideo(f.PixelFormat, s.out.Width, s.out.Height)
	dst.SampleAspect = f.SampleAspect
	dst.PTS = f.PTS
	dst.TimeBase = f.TimeBase
	for i := range dst.Planes {
		sw, sh := f.PlaneSize(i)
		dw, dh := dst.PlaneSize(i)
		scalePlane(f.Planes[i], f.Linesize[i], sw, sh, dst.Planes[i], dst.Linesize[i], dw, dh)
	}
	return out.Emit(0, dst)
}

func (s *scale) EndOfStream(_ int, out topology.Emitter) error {
	return out.EndOfStream(0)
}

// scalePlane scales a single plane using 16.16 fixed-point bilinear interpolation.
func scalePlane(src []byte, srcStride, srcW, srcH int, dst []byte, dstStride, dstW, dstH int) {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return
	}

	xRatio := (srcW << 16) / dstW
	yRatio := (srcH << 16) / dstH

	for y := 0; y < dstH; y++ {
		syFP := y * yRatio
		y0 := syFP >> 16
		yFrac := syFP & 0xFFFF
		y1 := y0 + 1
		if y1 >= srcH {
			y1 = y0
		}

		for x := 0; x < dstW; x++ {
			sxFP := x * xRatio
			x0 := sxFP >> 16
			xFrac := sxFP & 0xFFFF
			x1 := x0 + 1
			if x1 >= srcW {
				x1 = x0
			}

			p00 := int(src[y0*srcStride+x0])
			p10 := int(src[y0*srcStride+x1])
			p01 := int(src[y1*srcStride+x0])
			p11 := int(src[y1*srcStride+x1])

			top := (p00*(0x10000-xFrac) + p10*xFrac) >> 16
			bottom := (p01*(0x10000-xFrac) + p11*xFrac) >> 16
			dst[y*dstStride+x] = byte((top*(0x10000-yFrac) + bottom*yFrac) >> 16)
		}
	}
}
