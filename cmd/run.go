package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"

	"github.com/smazurov/framegraph/internal/jobs/store"
	"github.com/smazurov/framegraph/internal/logging"
)

// CreateRunCmd creates the run command.
func CreateRunCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "run [job-id]",
		Short: "Run a job from the jobs file",
		Long: `Loads the job from the jobs file, runs its graph to end of stream and writes every output ` +
			`to a raw file. With --watch the job runs again each time the jobs file changes.`,
		Args: cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			jobID := args[0]
			logger := logging.GetLogger("runner").With("job_id", jobID)

			job, err := store.LoadJob(opts.JobsFile, jobID)
			if err != nil {
				logger.Error("Failed to load job", "jobs_file", opts.JobsFile, "error", err)
				os.Exit(1)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			watchPath := ""
			if watch {
				watchPath = opts.JobsFile
			}
			if err := Execute(ctx, opts, job, watchPath, cmd.OutOrStdout()); err != nil && ctx.Err() == nil {
				logger.Error("Job failed", "error", err)
				stop()
				os.Exit(1)
			}
		}),
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Run the job again whenever the jobs file changes")
	return cmd
}
