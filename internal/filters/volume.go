package filters

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/smazurov/framegraph/internal/frame"
	"github.com/smazurov/framegraph/internal/topology"
)

// volume scales interleaved audio samples by a constant factor.
type volume struct {
	factor float64
}

func newVolume(o Options) (topology.Filter, error) {
	factor, err := o.Float("volume", 1.0)
	if err != nil {
		return nil, err
	}
	if factor < 0 {
		return nil, fmt.Errorf("volume must not be negative")
	}
	return &volume{factor: factor}, nil
}

func (v *volume) InputPads() []topology.Pad  { return []topology.Pad{audioPad} }
func (v *volume) OutputPads() []topology.Pad { return []topology.Pad{audioPad} }

func (v *volume) Negotiate(in []frame.Params) ([]frame.Params, error) {
	if err := expect(in, 0, frame.MediaTypeAudio); err != nil {
		return nil, err
	}
	switch in[0].SampleFormat {
	case frame.SampleFormatS16, frame.SampleFormatFLT:
	default:
		return nil, fmt.Errorf("unsupported sample format %s", in[0].SampleFormat)
	}
	return []frame.Params{in[0]}, nil
}

func (v *volume) FilterFrame(_ int, f *frame.Frame, out topology.Emitter) error {
	if v.factor != 1.0 {
		n := f.Samples * f.Channels
		data := f.Planes[0]
		switch f.SampleFormat {
		case frame.SampleFormatS16:
			for i := 0; i < n; i++ {
				s := int16(binary.LittleEndian.Uint16(data[i*2:]))
				scaled := math.Round(float64(s) * v.factor)
				scaled = math.Max(math.MinInt16, math.Min(math.MaxInt16, scaled))
				binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(scaled)))
			}
		case frame.SampleFormatFLT:
			for i := 0; i < n; i++ {
				s := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
				binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(s*float32(v.factor)))
			}
		}
	}
	return out.Emit(0, f)
}

func (v *volume) EndOfStream(_ int, out topology.Emitter) error {
	return out.EndOfStream(0)
}
