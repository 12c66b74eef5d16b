package runner

import (
	"context"
	"errors"
	"time"

	"github.com/smazurov/framegraph/internal/config"
	"github.com/smazurov/framegraph/internal/events"
	"github.com/smazurov/framegraph/internal/jobs"
	"github.com/smazurov/framegraph/internal/jobs/store"
	"github.com/smazurov/framegraph/internal/metrics"
)

// WatchOptions tunes Watch.
type WatchOptions struct {
	Debounce time.Duration
	// OnResult is called after every run, including aborted ones.
	OnResult func(*Result, error)
}

// Watch runs job id from the job file at path and runs it again every time
// the file changes. A run still in progress when the file changes is
// canceled first. Watch returns when ctx is canceled.
func (r *Runner) Watch(ctx context.Context, path, id string, opts WatchOptions) error {
	job, err := store.LoadJob(path, id)
	if err != nil {
		return err
	}

	reloads := make(chan jobs.JobSpec, 1)
	loader := func(p string) (jobs.JobSpec, error) { return store.LoadJob(p, id) }
	watchOpts := []config.WatcherOption[jobs.JobSpec]{}
	if opts.Debounce > 0 {
		watchOpts = append(watchOpts, config.WithDebounce[jobs.JobSpec](opts.Debounce))
	}
	w := config.NewConfigWatcher(path, loader, r.logger, watchOpts...)
	w.OnReload(func(next jobs.JobSpec) {
		if r.bus != nil {
			r.bus.Publish(events.JobReloadedEvent{
				JobID:     id,
				Path:      w.Path(),
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
		}
		// keep only the latest version
		select {
		case <-reloads:
		default:
		}
		reloads <- next
	})
	if err := w.Start(); err != nil {
		return err
	}
	defer func() {
		if err := w.Stop(); err != nil {
			r.logger.Warn("Failed to stop job watcher", "error", err)
		}
	}()

	var lastGraph string
	for {
		if lastGraph != "" {
			metrics.DeleteGraphMetrics(lastGraph)
		}

		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan *Result, 1)
		var runErr error
		go func(job jobs.JobSpec) {
			res, err := r.Run(runCtx, job)
			runErr = err
			done <- res
		}(job)

		var res *Result
		select {
		case <-ctx.Done():
			cancel()
			res = <-done
			r.report(opts, res, runErr)
			return nil
		case next := <-reloads:
			r.logger.Info("Job file changed, restarting", "job_id", id)
			cancel()
			res = <-done
			r.report(opts, res, runErr)
			job = next
		case res = <-done:
			cancel()
			r.report(opts, res, runErr)
			select {
			case <-ctx.Done():
				return nil
			case job = <-reloads:
				r.logger.Info("Job file changed, running again", "job_id", id)
			}
		}
		if res != nil {
			lastGraph = res.GraphID
		}
	}
}

func (r *Runner) report(opts WatchOptions, res *Result, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Error("Job run failed", "error", err)
	}
	if opts.OnResult != nil {
		opts.OnResult(res, err)
	}
}
