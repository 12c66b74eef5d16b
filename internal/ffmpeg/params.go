// Package ffmpeg builds ffplay/ffmpeg command lines for raw files written by
// graph outputs.
package ffmpeg

import (
	"github.com/smazurov/framegraph/internal/frame"
)

// Params describes a headerless raw media file.
type Params struct {
	Path string
	Type frame.MediaType

	// Video
	PixelFormat string // yuv420p, gray
	Width       int
	Height      int
	FrameRate   frame.Rational

	// Audio
	SampleFormat string // s16le, f32le
	SampleRate   int
	Channels     int
}

// ParamsFor derives file parameters from the format negotiated on an output.
func ParamsFor(path string, p frame.Params) Params {
	out := Params{Path: path, Type: p.Type}
	switch p.Type {
	case frame.MediaTypeVideo:
		out.PixelFormat = p.PixelFormat.String()
		out.Width = p.Width
		out.Height = p.Height
		out.FrameRate = p.FrameRate
	case frame.MediaTypeAudio:
		out.SampleFormat = demuxerFormat(p.SampleFormat)
		out.SampleRate = p.SampleRate
		out.Channels = p.Channels
	}
	return out
}

// demuxerFormat maps an interleaved sample format to the ffmpeg raw demuxer
// of the same layout.
func demuxerFormat(s frame.SampleFormat) string {
	switch s {
	case frame.SampleFormatS16:
		return "s16le"
	case frame.SampleFormatFLT:
		return "f32le"
	default:
		return s.String()
	}
}
