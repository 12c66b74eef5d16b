// Package runner executes jobs: it compiles the job's graph, binds frame
// sources and raw file sinks to its pads, and pumps it to end of stream.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/smazurov/framegraph/internal/compiler"
	"github.com/smazurov/framegraph/internal/events"
	"github.com/smazurov/framegraph/internal/ffmpeg"
	"github.com/smazurov/framegraph/internal/filters"
	"github.com/smazurov/framegraph/internal/frame"
	"github.com/smazurov/framegraph/internal/graph"
	"github.com/smazurov/framegraph/internal/jobs"
	"github.com/smazurov/framegraph/internal/logging"
	"github.com/smazurov/framegraph/internal/pump"
	"github.com/smazurov/framegraph/internal/sink"
	"github.com/smazurov/framegraph/internal/source"
)

// Options configures a Runner.
type Options struct {
	// Registry resolves filter names; filters.Default() when nil.
	Registry *filters.Registry
	// Bus receives graph, pump and job events. Optional.
	Bus    *events.Bus
	Logger *slog.Logger
}

// Runner runs jobs one at a time.
type Runner struct {
	registry *filters.Registry
	bus      *events.Bus
	logger   *slog.Logger
}

// Output describes the file written for one graph output.
type Output struct {
	Name   string
	Path   string
	Params frame.Params
	Frames int
	Bytes  int64
	// Play is an ffplay command line that displays the file. Empty when the
	// format cannot be described to ffplay.
	Play string
	// Encoded is the container file written when the job sets Encode.
	Encoded string
}

// Result summarizes a finished run.
type Result struct {
	JobID   string
	GraphID string
	Stats   pump.Stats
	Outputs []Output
}

// New creates a runner.
func New(opts Options) *Runner {
	if opts.Registry == nil {
		opts.Registry = filters.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetLogger("runner")
	}
	return &Runner{
		registry: opts.Registry,
		bus:      opts.Bus,
		logger:   opts.Logger,
	}
}

// BuildSource returns a source feeding every open input of pads: a test
// pattern for video inputs and a tone for audio inputs, routed by ordinal.
func BuildSource(job jobs.JobSpec, pads []compiler.PadDescriptor) (source.Mux, error) {
	pf, err := frame.ParsePixelFormat(job.Video.PixelFormat)
	if err != nil {
		return nil, fmt.Errorf("video source: %w", err)
	}
	inputs := compiler.Inputs(pads)
	mux := make(source.Mux, len(inputs))
	for i, d := range inputs {
		switch d.MediaType {
		case frame.MediaTypeVideo:
			mux[i] = &source.TestPattern{
				Width:  job.Video.Width,
				Height: job.Video.Height,
				Format: pf,
				Frames: job.Frames,
			}
		case frame.MediaTypeAudio:
			mux[i] = &source.Tone{
				SampleRate: job.Audio.SampleRate,
				Channels:   job.Audio.Channels,
				Samples:    job.Audio.SampleRate / 50,
				Frequency:  job.Audio.Frequency,
				Frames:     job.Frames,
			}
		}
	}
	return mux, nil
}

// Run executes job once. Canceling ctx aborts the pump without flushing;
// files written so far are kept.
func (r *Runner) Run(ctx context.Context, job jobs.JobSpec) (*Result, error) {
	job = job.WithDefaults()
	if err := job.Validate(); err != nil {
		return nil, err
	}
	pixFmts, err := job.PixelFormatList()
	if err != nil {
		return nil, err
	}
	order, _ := graph.ParseBindOrder(job.BindOrder)

	logger := r.logger.With("job_id", job.ID)
	opts := graph.Options{
		Registry:     r.registry,
		BindOrder:    order,
		PixelFormats: pixFmts,
		Logger:       logging.GetLogger("graph").With("job_id", job.ID),
	}
	if r.bus != nil {
		opts.Events = r.bus
	}

	g, err := graph.New(job.Graph, opts)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	src, err := BuildSource(job, g.Pads())
	if err != nil {
		return nil, err
	}
	if err := g.Configure(src); err != nil {
		return nil, err
	}

	outputs := g.Outputs()
	files := make([]*sink.RawFile, 0, len(outputs))
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()
	sinks := make([]sink.Sink, 0, len(outputs))
	for _, out := range outputs {
		f, err := sink.NewRawFile(job.OutputPath(out.Name(), len(outputs)), false)
		if err != nil {
			return nil, &graph.Error{Code: graph.CodeSink, Op: "open", Endpoint: out.Name(), Message: "open output", Cause: err}
		}
		files = append(files, f)
		sinks = append(sinks, f)
	}

	p, err := pump.New(g, src, sinks, pump.Config{
		BackpressureThreshold: job.BackpressureThreshold,
		MaxFrames:             job.MaxFrames,
		Logger:                logging.GetLogger("pump").With("job_id", job.ID),
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Running job", "graph_id", g.ID(), "inputs", len(g.Inputs()), "outputs", len(outputs))
	stats, runErr := p.Run(ctx)

	res := &Result{JobID: job.ID, GraphID: g.ID(), Stats: stats}
	var closeErr error
	for i, f := range files {
		if err := f.Close(); err != nil {
			closeErr = errors.Join(closeErr, err)
		}
		o := Output{
			Name:   outputs[i].Name(),
			Path:   f.Path(),
			Params: outputs[i].Params(),
			Frames: f.Frames(),
			Bytes:  f.Bytes(),
		}
		if play, err := ffmpeg.BuildPlayCommand(ffmpeg.ParamsFor(o.Path, o.Params)); err == nil {
			o.Play = play
		}
		res.Outputs = append(res.Outputs, o)
	}
	files = nil

	if runErr != nil {
		return res, runErr
	}
	if closeErr != nil {
		return res, closeErr
	}
	if job.Encode != "" {
		if err := r.encode(ctx, job, res); err != nil {
			return res, err
		}
	}
	logger.Info("Job finished",
		"reason", stats.Reason, "cycles", stats.Cycles,
		"frames_fed", stats.FramesFed, "frames_drained", stats.FramesDrained)
	return res, nil
}
