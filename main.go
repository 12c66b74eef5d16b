package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/framegraph/cmd"
	"github.com/smazurov/framegraph/internal/config"
	"github.com/smazurov/framegraph/internal/logging"
	"github.com/smazurov/framegraph/internal/version"
)

func main() {
	var cli humacli.CLI

	cli = humacli.New(func(hooks humacli.Hooks, opts *cmd.Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// Initialize logging system
		logging.Initialize(opts.Logging())
		logger := logging.GetLogger("main")

		// Without a sub-command the graph given by the flags runs once.
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})

		hooks.OnStart(func() {
			defer close(done)
			logger.Info("Starting framegraph", "version", version.String())
			if err := cmd.Execute(ctx, opts, opts.Job(), "", os.Stdout); err != nil && ctx.Err() == nil {
				logger.Error("Graph run failed", "error", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Interrupted, stopping graph")
			cancel()
			<-done
		})
	})

	root := cli.Root()
	root.Use = "framegraph"
	root.Short = "Run media filter graphs over generated test sources"
	root.Version = version.String()

	root.AddCommand(cmd.CreateRunCmd())
	root.AddCommand(cmd.CreateServeCmd())
	root.AddCommand(cmd.CreateFiltersCmd())
	root.AddCommand(cmd.CreateVersionCmd())

	// Run the CLI
	cli.Run()
}
