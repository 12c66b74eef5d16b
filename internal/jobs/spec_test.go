package jobs

import (
	"errors"
	"testing"

	"github.com/smazurov/framegraph/internal/frame"
)

func TestWithDefaults(t *testing.T) {
	j := JobSpec{ID: "overlay"}.WithDefaults()

	if j.Name != "overlay" || j.Graph != DefaultGraph || j.Output != "out.yuv" {
		t.Errorf("got %+v", j)
	}
	if j.Frames != 100 || j.Video.Width != 1280 || j.Video.Height != 720 || j.Video.PixelFormat != "yuv420p" {
		t.Errorf("video defaults: frames=%d %+v", j.Frames, j.Video)
	}
	if j.Audio.SampleRate != 48000 || j.Audio.Channels != 2 || j.Audio.Frequency != 440 {
		t.Errorf("audio defaults: %+v", j.Audio)
	}
	if j.BackpressureThreshold != 1 {
		t.Errorf("threshold = %d", j.BackpressureThreshold)
	}

	custom := JobSpec{ID: "x", Name: "named", Frames: 5, Video: VideoSource{Width: 64}}.WithDefaults()
	if custom.Name != "named" || custom.Frames != 5 || custom.Video.Width != 64 || custom.Video.Height != 720 {
		t.Errorf("explicit values overwritten: %+v", custom)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		job     JobSpec
		wantErr bool
	}{
		{"minimal", JobSpec{ID: "a"}, false},
		{"full", JobSpec{ID: "a", Frames: 10, PixelFormats: []string{"gray", "yuv420p"}, BindOrder: "inputs-first"}, false},
		{"missing id", JobSpec{}, true},
		{"negative frames", JobSpec{ID: "a", Frames: -1}, true},
		{"negative size", JobSpec{ID: "a", Video: VideoSource{Width: -4}}, true},
		{"oversized video", JobSpec{ID: "a", Video: VideoSource{Width: 200000, Height: 200000}}, true},
		{"unknown pixel format", JobSpec{ID: "a", Video: VideoSource{PixelFormat: "rgb24"}}, true},
		{"unknown sink format", JobSpec{ID: "a", PixelFormats: []string{"nv12"}}, true},
		{"unknown bind order", JobSpec{ID: "a", BindOrder: "random"}, true},
		{"negative threshold", JobSpec{ID: "a", BackpressureThreshold: -2}, true},
		{"encode", JobSpec{ID: "a", Encode: "mkv"}, false},
		{"encode with path", JobSpec{ID: "a", Encode: "../mp4"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !HasCode(err, ErrCodeInvalidJob) {
				t.Errorf("expected %s, got %v", ErrCodeInvalidJob, err)
			}
		})
	}
}

func TestPixelFormatList(t *testing.T) {
	got, err := JobSpec{PixelFormats: []string{"gray8", "i420"}}.PixelFormatList()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != frame.PixelFormatGray8 || got[1] != frame.PixelFormatYUV420P {
		t.Errorf("got %v", got)
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		output  string
		pad     string
		outputs int
		want    string
	}{
		{"out.yuv", "out1", 1, "out.yuv"},
		{"out.yuv", "out1", 2, "out_out1.yuv"},
		{"frames/%s.raw", "Parsed_scale_0:0", 1, "frames/Parsed_scale_0_0.raw"},
		{"capture", "b", 3, "capture_b"},
	}
	for _, tt := range tests {
		got := JobSpec{Output: tt.output}.OutputPath(tt.pad, tt.outputs)
		if got != tt.want {
			t.Errorf("OutputPath(%q, %q, %d) = %q, want %q", tt.output, tt.pad, tt.outputs, got, tt.want)
		}
	}
}

func TestEncodedPath(t *testing.T) {
	job := JobSpec{Encode: "mp4"}
	if got := job.EncodedPath("out/a_out1.yuv"); got != "out/a_out1.mp4" {
		t.Errorf("got %s", got)
	}
	if got := job.EncodedPath("capture"); got != "capture.mp4" {
		t.Errorf("got %s", got)
	}
}

func TestJobErrorUnwrap(t *testing.T) {
	cause := errors.New("permission denied")
	err := NewJobError(ErrCodeConfigError, "failed to write jobs file", cause)
	if !errors.Is(err, cause) {
		t.Error("cause lost")
	}
	if err.Error() != "CONFIG_ERROR: failed to write jobs file: permission denied" {
		t.Errorf("Error() = %q", err.Error())
	}
}
