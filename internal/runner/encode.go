package runner

import (
	"context"
	"fmt"

	"github.com/smazurov/framegraph/internal/ffmpeg"
	"github.com/smazurov/framegraph/internal/jobs"
	"github.com/smazurov/framegraph/internal/logging"
	"github.com/smazurov/framegraph/internal/process"
)

// encode converts every raw output of res into job.Encode containers with
// ffmpeg, one process at a time.
func (r *Runner) encode(ctx context.Context, job jobs.JobSpec, res *Result) error {
	for i := range res.Outputs {
		o := &res.Outputs[i]
		dst := job.EncodedPath(o.Path)
		command, err := ffmpeg.BuildEncodeCommand(ffmpeg.ParamsFor(o.Path, o.Params), dst)
		if err != nil {
			return fmt.Errorf("encode %s: %w", o.Name, err)
		}

		p := process.NewProcess("encode:"+o.Name, command, r.logger.With("job_id", job.ID))
		p.SetLogParser(logging.GetLogger("ffmpeg"), ffmpeg.ParseLogLine)
		code, err := p.Run(ctx)
		if err != nil {
			return fmt.Errorf("encode %s: %w", o.Name, err)
		}
		if code != 0 {
			return fmt.Errorf("encode %s: ffmpeg exited with code %d", o.Name, code)
		}
		o.Encoded = dst
	}
	return nil
}
