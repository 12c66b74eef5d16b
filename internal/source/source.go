// Package source provides the frame producers that feed graph inputs.
package source

import (
	"encoding/binary"
	"math"

	"github.com/smazurov/framegraph/internal/frame"
)

// Source produces frames for graph inputs. padIndex is the ordinal of the
// input endpoint being fed. A nil frame means the source is exhausted for
// that pad.
type Source interface {
	Next(frameIndex, padIndex int) *frame.Frame
}

// Func adapts a plain function to Source.
type Func func(frameIndex, padIndex int) *frame.Frame

// Next calls f.
func (f Func) Next(frameIndex, padIndex int) *frame.Frame {
	return f(frameIndex, padIndex)
}

const (
	DefaultWidth  = 1280
	DefaultHeight = 720
	DefaultFrames = 100
)

// DefaultFrameRate is the rate video inputs are advertised at.
var DefaultFrameRate = frame.Rational{Num: 25, Den: 1}

// TestPattern generates moving YUV gradients. The chroma intensity depends on
// the pad index, so every input of a graph gets a distinguishable picture.
type TestPattern struct {
	Width  int
	Height int
	Format frame.PixelFormat
	// Frames is the number of frames per pad; 0 means DefaultFrames.
	Frames int
}

// NewTestPattern returns a 1280x720 yuv420p pattern of 100 frames.
func NewTestPattern() *TestPattern {
	return &TestPattern{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		Format: frame.PixelFormatYUV420P,
		Frames: DefaultFrames,
	}
}

// Next renders frame frameIndex for input padIndex.
func (p *TestPattern) Next(frameIndex, padIndex int) *frame.Frame {
	limit := p.Frames
	if limit == 0 {
		limit = DefaultFrames
	}
	if frameIndex >= limit {
		return nil
	}
	format := p.Format
	if format == frame.PixelFormatNone {
		format = frame.PixelFormatYUV420P
	}

	f := frame.NewVideo(format, p.Width, p.Height)
	f.TimeBase = frame.TimeBaseMicro
	f.PTS = int64(frameIndex) * 1000000 * int64(DefaultFrameRate.Den) / int64(DefaultFrameRate.Num)

	luma := f.Planes[0]
	for y := 0; y < p.Height; y++ {
		row := luma[y*f.Linesize[0]:]
		for x := 0; x < p.Width; x++ {
			row[x] = byte(x + y + frameIndex*3)
		}
	}
	if format != frame.PixelFormatYUV420P {
		return f
	}

	cw, ch := f.PlaneSize(1)
	value := padIndex
	for y := 0; y < ch; y++ {
		u := f.Planes[1][y*f.Linesize[1]:]
		v := f.Planes[2][y*f.Linesize[2]:]
		for x := 0; x < cw; x++ {
			u[x] = byte((128 + y + frameIndex) * value * 2)
			v[x] = byte((64 + x + frameIndex) * value * 5)
		}
	}
	return f
}

// Tone generates a sine wave as interleaved s16 samples.
type Tone struct {
	SampleRate int
	Channels   int
	// Samples per frame and channel.
	Samples   int
	Frequency float64
	Frames    int
}

// NewTone returns a 440Hz stereo tone at 48kHz in 20ms frames.
func NewTone() *Tone {
	return &Tone{SampleRate: 48000, Channels: 2, Samples: 960, Frequency: 440, Frames: DefaultFrames}
}

// Next renders frame frameIndex. Each pad is shifted up an octave.
func (t *Tone) Next(frameIndex, padIndex int) *frame.Frame {
	limit := t.Frames
	if limit == 0 {
		limit = DefaultFrames
	}
	if frameIndex >= limit {
		return nil
	}

	f := frame.NewAudio(frame.SampleFormatS16, t.SampleRate, t.Channels, t.Samples)
	f.TimeBase = frame.TimeBaseMicro
	start := int64(frameIndex) * int64(t.Samples)
	f.PTS = start * 1000000 / int64(t.SampleRate)

	freq := t.Frequency * math.Pow(2, float64(padIndex))
	data := f.Planes[0]
	for i := 0; i < t.Samples; i++ {
		phase := 2 * math.Pi * freq * float64(start+int64(i)) / float64(t.SampleRate)
		s := uint16(int16(math.Sin(phase) * 0.5 * math.MaxInt16))
		for c := 0; c < t.Channels; c++ {
			binary.LittleEndian.PutUint16(data[(i*t.Channels+c)*2:], s)
		}
	}
	return f
}

// Mux routes each input ordinal to its own source.
type Mux []Source

// Next forwards to the source registered for padIndex.
func (m Mux) Next(frameIndex, padIndex int) *frame.Frame {
	if padIndex < 0 || padIndex >= len(m) || m[padIndex] == nil {
		return nil
	}
	return m[padIndex].Next(frameIndex, padIndex)
}
