// Package frame defines the raw media buffers that flow through a filter graph
// and the negotiated link parameters that describe them.
package frame

import (
	"fmt"
	"math"
)

// MediaType identifies the kind of data carried by a pad or frame.
type MediaType int

const (
	MediaTypeUnknown MediaType = iota
	MediaTypeVideo
	MediaTypeAudio
	MediaTypeSubtitle
	MediaTypeData
)

func (m MediaType) String() string {
	switch m {
	case MediaTypeVideo:
		return "video"
	case MediaTypeAudio:
		return "audio"
	case MediaTypeSubtitle:
		return "subtitle"
	case MediaTypeData:
		return "data"
	default:
		return "unknown"
	}
}

// PixelFormat represents planar video pixel formats.
type PixelFormat int

const (
	PixelFormatNone    PixelFormat = iota
	PixelFormatYUV420P             // Y + U + V, chroma subsampled 2x2
	PixelFormatGray8               // single luma plane
)

func (p PixelFormat) String() string {
	switch p {
	case PixelFormatYUV420P:
		return "yuv420p"
	case PixelFormatGray8:
		return "gray"
	default:
		return "none"
	}
}

// PlaneCount returns the number of planes for this pixel format.
func (p PixelFormat) PlaneCount() int {
	switch p {
	case PixelFormatYUV420P:
		return 3
	case PixelFormatGray8:
		return 1
	default:
		return 0
	}
}

// ParsePixelFormat maps an ffmpeg-style pixel format name.
func ParsePixelFormat(name string) (PixelFormat, error) {
	switch name {
	case "yuv420p", "i420":
		return PixelFormatYUV420P, nil
	case "gray", "gray8":
		return PixelFormatGray8, nil
	default:
		return PixelFormatNone, fmt.Errorf("unknown pixel format %q", name)
	}
}

// SampleFormat represents interleaved audio sample formats.
type SampleFormat int

const (
	SampleFormatNone SampleFormat = iota
	SampleFormatS16                // signed 16-bit PCM
	SampleFormatFLT                // 32-bit float
)

func (s SampleFormat) String() string {
	switch s {
	case SampleFormatS16:
		return "s16"
	case SampleFormatFLT:
		return "flt"
	default:
		return "none"
	}
}

// BytesPerSample returns the size of one sample of one channel.
func (s SampleFormat) BytesPerSample() int {
	switch s {
	case SampleFormatS16:
		return 2
	case SampleFormatFLT:
		return 4
	default:
		return 0
	}
}

// Rational is a fraction used for time bases, rates and aspect ratios.
type Rational struct {
	Num int
	Den int
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// Frame is a raw video picture or a block of interleaved audio samples.
//
// A frame has exactly one owner at a time. Pushing it into an endpoint or
// handing it to a sink transfers ownership; the previous holder must not
// touch it afterwards.
type Frame struct {
	Type MediaType

	// Video
	PixelFormat  PixelFormat
	Width        int
	Height       int
	SampleAspect Rational

	// Audio
	SampleFormat SampleFormat
	SampleRate   int
	Channels     int
	Samples      int // per channel

	Planes   [][]byte
	Linesize []int

	PTS      int64
	TimeBase Rational
}

// CheckImageSize rejects dimensions whose planes could not be addressed, the
// same bound ffmpeg applies in av_image_check_size.
func CheckImageSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", width, height)
	}
	if width >= math.MaxInt32/8 || height >= math.MaxInt32/8 ||
		int64(width+128)*int64(height+128) >= math.MaxInt32/8 {
		return fmt.Errorf("image size %dx%d is too large", width, height)
	}
	return nil
}

// NewVideo allocates a video frame with fully sized, tightly packed planes.
func NewVideo(format PixelFormat, width, height int) *Frame {
	f := &Frame{
		Type:         MediaTypeVideo,
		PixelFormat:  format,
		Width:        width,
		Height:       height,
		SampleAspect: Rational{Num: 1, Den: 1},
	}
	for i := 0; i < format.PlaneCount(); i++ {
		w, h := f.planeSize(i)
		f.Planes = append(f.Planes, make([]byte, w*h))
		f.Linesize = append(f.Linesize, w)
	}
	return f
}

// NewAudio allocates an audio frame holding samples*channels interleaved samples.
func NewAudio(format SampleFormat, sampleRate, channels, samples int) *Frame {
	size := samples * channels * format.BytesPerSample()
	return &Frame{
		Type:         MediaTypeAudio,
		SampleFormat: format,
		SampleRate:   sampleRate,
		Channels:     channels,
		Samples:      samples,
		Planes:       [][]byte{make([]byte, size)},
		Linesize:     []int{size},
	}
}

// planeSize returns the visible width (bytes) and height of plane i.
func (f *Frame) planeSize(i int) (int, int) {
	if f.PixelFormat == PixelFormatYUV420P && i > 0 {
		return (f.Width + 1) / 2, (f.Height + 1) / 2
	}
	return f.Width, f.Height
}

// PlaneSize returns the visible byte width and row count of plane i.
func (f *Frame) PlaneSize(i int) (width, height int) {
	if f.Type == MediaTypeAudio {
		return f.Samples * f.Channels * f.SampleFormat.BytesPerSample(), 1
	}
	return f.planeSize(i)
}

// Complete reports whether every plane required by the frame's format is
// present and large enough for its declared dimensions.
func (f *Frame) Complete() bool {
	if f == nil {
		return false
	}
	var planes int
	switch f.Type {
	case MediaTypeVideo:
		planes = f.PixelFormat.PlaneCount()
		if f.Width <= 0 || f.Height <= 0 {
			return false
		}
	case MediaTypeAudio:
		planes = 1
		if f.SampleRate <= 0 || f.Channels <= 0 || f.SampleFormat.BytesPerSample() == 0 {
			return false
		}
	default:
		return false
	}
	if planes == 0 || len(f.Planes) < planes || len(f.Linesize) < planes {
		return false
	}
	for i := 0; i < planes; i++ {
		w, h := f.PlaneSize(i)
		if f.Linesize[i] < w {
			return false
		}
		if h > 0 && len(f.Planes[i]) < f.Linesize[i]*(h-1)+w {
			return false
		}
	}
	return true
}

// Clone creates a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	clone := *f
	clone.Planes = make([][]byte, len(f.Planes))
	clone.Linesize = make([]int, len(f.Linesize))
	copy(clone.Linesize, f.Linesize)
	for i, plane := range f.Planes {
		if plane != nil {
			clone.Planes[i] = make([]byte, len(plane))
			copy(clone.Planes[i], plane)
		}
	}
	return &clone
}

func (f *Frame) String() string {
	switch f.Type {
	case MediaTypeVideo:
		return fmt.Sprintf("video %s %dx%d pts=%d", f.PixelFormat, f.Width, f.Height, f.PTS)
	case MediaTypeAudio:
		return fmt.Sprintf("audio %s %dHz %dch %d samples pts=%d",
			f.SampleFormat, f.SampleRate, f.Channels, f.Samples, f.PTS)
	default:
		return fmt.Sprintf("%s frame pts=%d", f.Type, f.PTS)
	}
}
