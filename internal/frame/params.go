package frame

import "fmt"

// TimeBaseMicro is the time base source endpoints stamp on their links.
var TimeBaseMicro = Rational{Num: 1, Den: 1000000}

// Params describes the format negotiated on one link of a configured graph.
type Params struct {
	Type MediaType

	PixelFormat  PixelFormat
	Width        int
	Height       int
	SampleAspect Rational
	FrameRate    Rational

	SampleFormat SampleFormat
	SampleRate   int
	Channels     int

	TimeBase Rational
}

// ParamsOf derives link parameters from a frame.
func ParamsOf(f *Frame) Params {
	return Params{
		Type:         f.Type,
		PixelFormat:  f.PixelFormat,
		Width:        f.Width,
		Height:       f.Height,
		SampleAspect: f.SampleAspect,
		SampleFormat: f.SampleFormat,
		SampleRate:   f.SampleRate,
		Channels:     f.Channels,
		TimeBase:     f.TimeBase,
	}
}

// Matches reports whether a frame can travel over a link with these params.
// Rates and time bases are not compared; only the buffer layout matters.
func (p Params) Matches(f *Frame) bool {
	if f == nil || f.Type != p.Type {
		return false
	}
	switch p.Type {
	case MediaTypeVideo:
		return f.PixelFormat == p.PixelFormat && f.Width == p.Width && f.Height == p.Height
	case MediaTypeAudio:
		return f.SampleFormat == p.SampleFormat && f.SampleRate == p.SampleRate && f.Channels == p.Channels
	default:
		return false
	}
}

func (p Params) String() string {
	switch p.Type {
	case MediaTypeVideo:
		return fmt.Sprintf("video %s %dx%d sar=%s rate=%s tb=%s",
			p.PixelFormat, p.Width, p.Height, p.SampleAspect, p.FrameRate, p.TimeBase)
	case MediaTypeAudio:
		return fmt.Sprintf("audio %s %dHz %dch tb=%s", p.SampleFormat, p.SampleRate, p.Channels, p.TimeBase)
	default:
		return p.Type.String()
	}
}
