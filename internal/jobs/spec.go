// Package jobs defines named graph runs stored in TOML: the graph
// description plus the settings of the frame sources and sinks around it.
package jobs

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/smazurov/framegraph/internal/frame"
	"github.com/smazurov/framegraph/internal/graph"
	"github.com/smazurov/framegraph/internal/source"
)

// DefaultGraph scales the first input down and overlays it in the bottom
// right corner of the second.
const DefaultGraph = "[in1] scale=iw/4:ih/4 [mid1]; [in2] [mid1] overlay=main_w-overlay_w-10:main_h-overlay_h-10:shortest=1 [out1]"

// JobSpec is the persistent definition of one graph run.
type JobSpec struct {
	// ID is the unique key of the job in its file.
	ID string `toml:"id" json:"id"`

	// Name defaults to the ID.
	Name string `toml:"name,omitempty" json:"name,omitempty"`

	// Graph is the filter graph description.
	Graph string `toml:"graph" json:"graph"`

	// Frames is the number of frames each input source produces.
	Frames int `toml:"frames,omitempty" json:"frames,omitempty"`

	// MaxFrames stops the pump after that many cycles. 0 runs to end of stream.
	MaxFrames int `toml:"max_frames,omitempty" json:"max_frames,omitempty"`

	Video VideoSource `toml:"video" json:"video"`
	Audio AudioSource `toml:"audio" json:"audio"`

	// Output is the raw file written per graph output. "%s" is replaced by
	// the output pad name; without it, graphs with several outputs get the
	// pad name appended before the extension.
	Output string `toml:"output,omitempty" json:"output,omitempty"`

	// Encode, when set, is a container extension such as "mp4" or "mkv".
	// Every raw output is converted with ffmpeg after a successful run.
	Encode string `toml:"encode,omitempty" json:"encode,omitempty"`

	// PixelFormats restricts what video outputs may deliver.
	PixelFormats []string `toml:"pixel_formats,omitempty" json:"pixel_formats,omitempty"`

	BindOrder             string `toml:"bind_order,omitempty" json:"bind_order,omitempty"`
	BackpressureThreshold int    `toml:"backpressure_threshold,omitempty" json:"backpressure_threshold,omitempty"`

	CreatedAt time.Time `toml:"created_at" json:"created_at"`
	UpdatedAt time.Time `toml:"updated_at" json:"updated_at"`
}

// VideoSource configures the test pattern fed to video inputs.
type VideoSource struct {
	Width       int    `toml:"width,omitempty" json:"width,omitempty"`
	Height      int    `toml:"height,omitempty" json:"height,omitempty"`
	PixelFormat string `toml:"pixel_format,omitempty" json:"pixel_format,omitempty"`
}

// AudioSource configures the tone fed to audio inputs.
type AudioSource struct {
	SampleRate int     `toml:"sample_rate,omitempty" json:"sample_rate,omitempty"`
	Channels   int     `toml:"channels,omitempty" json:"channels,omitempty"`
	Frequency  float64 `toml:"frequency,omitempty" json:"frequency,omitempty"`
}

// WithDefaults returns a copy with every unset field filled in.
func (j JobSpec) WithDefaults() JobSpec {
	if j.Name == "" {
		j.Name = j.ID
	}
	if j.Graph == "" {
		j.Graph = DefaultGraph
	}
	if j.Frames == 0 {
		j.Frames = source.DefaultFrames
	}
	if j.Video.Width == 0 {
		j.Video.Width = source.DefaultWidth
	}
	if j.Video.Height == 0 {
		j.Video.Height = source.DefaultHeight
	}
	if j.Video.PixelFormat == "" {
		j.Video.PixelFormat = frame.PixelFormatYUV420P.String()
	}
	tone := source.NewTone()
	if j.Audio.SampleRate == 0 {
		j.Audio.SampleRate = tone.SampleRate
	}
	if j.Audio.Channels == 0 {
		j.Audio.Channels = tone.Channels
	}
	if j.Audio.Frequency == 0 {
		j.Audio.Frequency = tone.Frequency
	}
	if j.Output == "" {
		j.Output = "out.yuv"
	}
	if j.BackpressureThreshold == 0 {
		j.BackpressureThreshold = 1
	}
	return j
}

// Validate checks the settings that do not need the graph compiled.
func (j JobSpec) Validate() error {
	if j.ID == "" {
		return NewJobError(ErrCodeInvalidJob, "job id is required", nil)
	}
	invalid := func(format string, args ...any) error {
		return NewJobError(ErrCodeInvalidJob, fmt.Sprintf("job %s: ", j.ID)+fmt.Sprintf(format, args...), nil)
	}
	switch {
	case j.Frames < 0:
		return invalid("frames must not be negative")
	case j.MaxFrames < 0:
		return invalid("max_frames must not be negative")
	case j.Video.Width < 0 || j.Video.Height < 0:
		return invalid("video size %dx%d is invalid", j.Video.Width, j.Video.Height)
	case j.Audio.SampleRate < 0 || j.Audio.Channels < 0:
		return invalid("audio %dHz/%dch is invalid", j.Audio.SampleRate, j.Audio.Channels)
	case j.BackpressureThreshold < 0:
		return invalid("backpressure_threshold must not be negative")
	}
	if j.Video.Width > 0 && j.Video.Height > 0 {
		if err := frame.CheckImageSize(j.Video.Width, j.Video.Height); err != nil {
			return NewJobError(ErrCodeInvalidJob, "job "+j.ID+": video", err)
		}
	}
	if j.Video.PixelFormat != "" {
		if _, err := frame.ParsePixelFormat(j.Video.PixelFormat); err != nil {
			return NewJobError(ErrCodeInvalidJob, "job "+j.ID+": video", err)
		}
	}
	if _, err := j.PixelFormatList(); err != nil {
		return NewJobError(ErrCodeInvalidJob, "job "+j.ID+": pixel_formats", err)
	}
	if j.Encode != "" && !validExtension(j.Encode) {
		return invalid("encode %q is not a file extension", j.Encode)
	}
	if _, ok := graph.ParseBindOrder(j.BindOrder); !ok {
		return invalid("unknown bind_order %q", j.BindOrder)
	}
	return nil
}

func validExtension(ext string) bool {
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// EncodedPath returns the container file for the raw output at raw.
func (j JobSpec) EncodedPath(raw string) string {
	return strings.TrimSuffix(raw, filepath.Ext(raw)) + "." + j.Encode
}

// PixelFormatList parses PixelFormats.
func (j JobSpec) PixelFormatList() ([]frame.PixelFormat, error) {
	out := make([]frame.PixelFormat, 0, len(j.PixelFormats))
	for _, name := range j.PixelFormats {
		pf, err := frame.ParsePixelFormat(name)
		if err != nil {
			return nil, err
		}
		out = append(out, pf)
	}
	return out, nil
}

// OutputPath returns the file for the output pad named pad, given the total
// number of outputs of the graph.
func (j JobSpec) OutputPath(pad string, outputs int) string {
	safe := strings.NewReplacer(":", "_", "/", "_").Replace(pad)
	if strings.Contains(j.Output, "%s") {
		return strings.ReplaceAll(j.Output, "%s", safe)
	}
	if outputs <= 1 {
		return j.Output
	}
	ext := filepath.Ext(j.Output)
	return strings.TrimSuffix(j.Output, ext) + "_" + safe + ext
}
