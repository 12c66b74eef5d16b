package runner

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/framegraph/internal/compiler"
	"github.com/smazurov/framegraph/internal/events"
	"github.com/smazurov/framegraph/internal/filters"
	"github.com/smazurov/framegraph/internal/graph"
	"github.com/smazurov/framegraph/internal/jobs"
	"github.com/smazurov/framegraph/internal/jobs/store"
	"github.com/smazurov/framegraph/internal/pump"
	"github.com/smazurov/framegraph/internal/source"
)

func smallJob(t *testing.T, id string) jobs.JobSpec {
	t.Helper()
	return jobs.JobSpec{
		ID:     id,
		Graph:  jobs.DefaultGraph,
		Frames: 5,
		Video:  jobs.VideoSource{Width: 32, Height: 16, PixelFormat: "yuv420p"},
		Output: filepath.Join(t.TempDir(), "out.yuv"),
	}
}

func TestRunWritesRawVideo(t *testing.T) {
	job := smallJob(t, "overlay")

	res, err := New(Options{}).Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Stats.Reason != pump.ReasonOutputEOF {
		t.Errorf("expected reason %s, got %s", pump.ReasonOutputEOF, res.Stats.Reason)
	}
	if len(res.Outputs) != 1 {
		t.Fatalf("expected 1 output, got %d", len(res.Outputs))
	}

	out := res.Outputs[0]
	if out.Path != job.Output {
		t.Errorf("expected path %s, got %s", job.Output, out.Path)
	}
	if out.Frames != 5 {
		t.Errorf("expected 5 frames, got %d", out.Frames)
	}
	const frameSize = 32*16 + 2*16*8
	info, err := os.Stat(out.Path)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if info.Size() != 5*frameSize || out.Bytes != info.Size() {
		t.Errorf("expected %d bytes, got file %d, counted %d", 5*frameSize, info.Size(), out.Bytes)
	}
	if !strings.Contains(out.Play, "-video_size 32x16") || !strings.Contains(out.Play, "-pixel_format yuv420p") {
		t.Errorf("unexpected play command: %s", out.Play)
	}
}

func TestRunAudioJob(t *testing.T) {
	job := jobs.JobSpec{
		ID:     "tone",
		Graph:  "[in] volume=0.5 [out]",
		Frames: 3,
		Audio:  jobs.AudioSource{SampleRate: 8000, Channels: 2, Frequency: 440},
		Output: filepath.Join(t.TempDir(), "tone.pcm"),
	}

	res, err := New(Options{}).Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	out := res.Outputs[0]
	// 160 samples per frame, 2 channels, 2 bytes
	if out.Bytes != 3*160*2*2 {
		t.Errorf("expected %d bytes, got %d", 3*160*2*2, out.Bytes)
	}
	if !strings.Contains(out.Play, "-f s16le") {
		t.Errorf("unexpected play command: %s", out.Play)
	}
}

func TestRunNamesOutputsPerPad(t *testing.T) {
	job := smallJob(t, "split")
	job.Graph = "[in] split [a][b]"
	job.Frames = 2

	res, err := New(Options{}).Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Outputs) != 2 {
		t.Fatalf("expected 2 outputs, got %d", len(res.Outputs))
	}
	dir := filepath.Dir(job.Output)
	for _, name := range []string{"out_a.yuv", "out_b.yuv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
}

func TestRunMaxFrames(t *testing.T) {
	job := smallJob(t, "limited")
	job.Graph = "[in] null [out]"
	job.Frames = 10
	job.MaxFrames = 4

	res, err := New(Options{}).Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Outputs[0].Frames != 4 {
		t.Errorf("expected 4 frames, got %d", res.Outputs[0].Frames)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*jobs.JobSpec)
		check  func(error) bool
	}{
		{
			name:   "malformed graph",
			mutate: func(j *jobs.JobSpec) { j.Graph = "[in] null [out" },
			check:  func(err error) bool { return graph.IsCode(err, graph.CodeGraphParse) },
		},
		{
			name:   "unknown filter",
			mutate: func(j *jobs.JobSpec) { j.Graph = "[in] nosuch [out]" },
			check:  func(err error) bool { return graph.IsCode(err, graph.CodeGraphParse) },
		},
		{
			name:   "invalid job",
			mutate: func(j *jobs.JobSpec) { j.BindOrder = "sideways" },
			check:  func(err error) bool { return jobs.HasCode(err, jobs.ErrCodeInvalidJob) },
		},
		{
			name: "rejected output format",
			mutate: func(j *jobs.JobSpec) {
				j.Graph = "[in] null [out]"
				j.PixelFormats = []string{"gray"}
			},
			check: func(err error) bool { return graph.IsCode(err, graph.CodeEndpointBind) },
		},
		{
			name:   "unwritable output",
			mutate: func(j *jobs.JobSpec) { j.Output = filepath.Join(j.Output, "missing", "out.yuv") },
			check:  func(err error) bool { return graph.IsCode(err, graph.CodeSink) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := smallJob(t, "broken")
			tt.mutate(&job)
			_, err := New(Options{}).Run(context.Background(), job)
			if err == nil || !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(Options{}).Run(ctx, smallJob(t, "canceled"))
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res == nil || res.Stats.Reason != pump.ReasonCanceled {
		t.Errorf("expected canceled result, got %+v", res)
	}
}

func TestRunPublishesEvents(t *testing.T) {
	bus := events.New()
	finished := make(chan events.PumpFinishedEvent, 1)
	unsub := bus.Subscribe(func(e events.PumpFinishedEvent) { finished <- e })
	defer unsub()

	res, err := New(Options{Bus: bus}).Run(context.Background(), smallJob(t, "events"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	select {
	case e := <-finished:
		if e.GraphID != res.GraphID || e.Reason != string(pump.ReasonOutputEOF) {
			t.Errorf("unexpected event: %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no PumpFinishedEvent")
	}
}

func TestBuildSourceRoutesByMediaType(t *testing.T) {
	_, pads, err := compiler.Compile("[v] null [o1]; [a] anull [o2]", filters.Default())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	job := smallJob(t, "mixed").WithDefaults()

	mux, err := BuildSource(job, pads)
	if err != nil {
		t.Fatalf("BuildSource failed: %v", err)
	}
	if len(mux) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(mux))
	}
	if _, ok := mux[0].(*source.TestPattern); !ok {
		t.Errorf("expected test pattern for video input, got %T", mux[0])
	}
	tone, ok := mux[1].(*source.Tone)
	if !ok {
		t.Fatalf("expected tone for audio input, got %T", mux[1])
	}
	if tone.Samples != job.Audio.SampleRate/50 {
		t.Errorf("expected 20ms frames, got %d samples", tone.Samples)
	}
}

func TestWatchRerunsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.toml")
	job := smallJob(t, "watched")
	job.Graph = "[in] null [out]"
	job.Frames = 2

	st := store.NewTOML(path)
	if err := st.Add(job); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	results := make(chan *Result, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(Options{}).Watch(ctx, path, job.ID, WatchOptions{
			Debounce: 20 * time.Millisecond,
			OnResult: func(res *Result, _ error) { results <- res },
		})
	}()

	first := waitResult(t, results)
	if first.Outputs[0].Frames != 2 {
		t.Fatalf("expected 2 frames on first run, got %d", first.Outputs[0].Frames)
	}

	job.Frames = 3
	if err := st.Update(job.ID, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	second := waitResult(t, results)
	if second.Outputs[0].Frames != 3 {
		t.Errorf("expected 3 frames after reload, got %d", second.Outputs[0].Frames)
	}
	if second.GraphID == first.GraphID {
		t.Error("expected a fresh graph per run")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchMissingJob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.toml")
	err := New(Options{}).Watch(context.Background(), path, "nope", WatchOptions{})
	if !jobs.HasCode(err, jobs.ErrCodeJobNotFound) {
		t.Errorf("expected JOB_NOT_FOUND, got %v", err)
	}
}

func waitResult(t *testing.T, ch <-chan *Result) *Result {
	t.Helper()
	select {
	case res := <-ch:
		if res == nil {
			t.Fatal("run produced no result")
		}
		return res
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for run")
	}
	return nil
}

func TestRunEncodesOutputs(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	job := smallJob(t, "encoded")
	job.Graph = "[in] null [out]"
	job.Frames = 3
	job.Encode = "mkv"

	res, err := New(Options{}).Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := strings.TrimSuffix(job.Output, ".yuv") + ".mkv"
	if res.Outputs[0].Encoded != want {
		t.Errorf("expected %s, got %q", want, res.Outputs[0].Encoded)
	}
	if info, err := os.Stat(want); err != nil || info.Size() == 0 {
		t.Errorf("encoded file missing or empty: %v", err)
	}
}

func TestRunEncodeWithoutFFmpeg(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	job := smallJob(t, "noffmpeg")
	job.Graph = "[in] null [out]"
	job.Frames = 1
	job.Encode = "mp4"

	res, err := New(Options{}).Run(context.Background(), job)
	if err == nil || !strings.Contains(err.Error(), "encode out") {
		t.Fatalf("expected encode error, got %v", err)
	}
	if res == nil || res.Outputs[0].Frames != 1 || res.Outputs[0].Encoded != "" {
		t.Errorf("raw output should be kept without an encoded file: %+v", res)
	}
}
