package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/smazurov/framegraph/internal/events"
	"github.com/smazurov/framegraph/internal/jobs"
	"github.com/smazurov/framegraph/internal/logging"
	"github.com/smazurov/framegraph/internal/metrics/exporters"
	"github.com/smazurov/framegraph/internal/runner"
)

// Execute runs job until end of stream, or until ctx is canceled. With
// watchPath set, the job is re-read from that file and run again whenever
// the file changes. Results are printed to out.
func Execute(ctx context.Context, opts *Options, job jobs.JobSpec, watchPath string, out io.Writer) error {
	logger := logging.GetLogger("runner")

	bus := events.New()
	defer runner.LogEvents(bus, logger)()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if opts.MetricsAddr != "" {
		go serveMetrics(ctx, opts.MetricsAddr, logger)
	}
	if interval := opts.progressInterval(); interval > 0 {
		progress := exporters.NewProgressExporter(bus, interval)
		progress.Start(ctx)
		defer progress.Stop()
	}

	r := runner.New(runner.Options{Bus: bus, Logger: logger})
	if watchPath != "" {
		return r.Watch(ctx, watchPath, job.ID, runner.WatchOptions{
			OnResult: func(res *runner.Result, _ error) { printResult(out, res) },
		})
	}

	res, err := r.Run(ctx, job)
	printResult(out, res)
	return err
}

func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) {
	logger.Info("Serving metrics", "addr", addr)
	if err := exporters.Serve(ctx, addr); err != nil {
		logger.Error("Metrics server failed", "addr", addr, "error", err)
	}
}

func printResult(out io.Writer, res *runner.Result) {
	if res == nil {
		return
	}
	fmt.Fprintf(out, "job %s: %s after %d cycles, %d frames fed, %d drained\n",
		res.JobID, res.Stats.Reason, res.Stats.Cycles, res.Stats.FramesFed, res.Stats.FramesDrained)
	for _, o := range res.Outputs {
		fmt.Fprintf(out, "  %s: %d frames, %d bytes -> %s\n", o.Name, o.Frames, o.Bytes, o.Path)
		if o.Encoded != "" {
			fmt.Fprintf(out, "    encoded -> %s\n", o.Encoded)
		}
		if o.Play != "" {
			fmt.Fprintf(out, "    %s\n", o.Play)
		}
	}
}
