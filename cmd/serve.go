package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"

	"github.com/smazurov/framegraph/internal/api"
	"github.com/smazurov/framegraph/internal/events"
	"github.com/smazurov/framegraph/internal/filters"
	"github.com/smazurov/framegraph/internal/jobs"
	"github.com/smazurov/framegraph/internal/jobs/store"
	"github.com/smazurov/framegraph/internal/logging"
	"github.com/smazurov/framegraph/internal/metrics/exporters"
	"github.com/smazurov/framegraph/internal/nats"
	"github.com/smazurov/framegraph/internal/runner"
)

const shutdownTimeout = 5 * time.Second

// CreateServeCmd creates the serve command.
func CreateServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the control API",
		Long: `Serves the HTTP API for managing the jobs file, starting and stopping background runs ` +
			`and following graph events. OpenAPI documentation is served at /docs.`,
		Args: cobra.NoArgs,
		Run: humacli.WithOptions(func(_ *cobra.Command, _ []string, opts *Options) {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := Serve(ctx, opts); err != nil {
				logging.GetLogger("api").Error("API server failed", "error", err)
				stop()
				os.Exit(1)
			}
		}),
	}
}

// Serve runs the control API until ctx is canceled, then stops every run.
func Serve(ctx context.Context, opts *Options) error {
	logger := logging.GetLogger("api")

	st := store.NewTOML(opts.JobsFile)
	if err := st.Load(); err != nil {
		return err
	}

	bus := events.New()
	defer runner.LogEvents(bus, logging.GetLogger("runner"))()

	if interval := opts.progressInterval(); interval > 0 {
		progress := exporters.NewProgressExporter(bus, interval)
		progress.Start(ctx)
		defer progress.Stop()
	}

	registry := filters.Default()
	manager := runner.NewManager(runner.New(runner.Options{
		Registry: registry,
		Bus:      bus,
		Logger:   logging.GetLogger("runner"),
	}))
	defer manager.StopAll()

	stopNats, err := startNats(opts, bus, jobControl{store: st, manager: manager})
	if err != nil {
		return err
	}
	defer stopNats()

	if opts.AuthUsername == "" || opts.AuthPassword == "" {
		logger.Warn("Basic auth disabled, the API is open to anyone who can reach it")
	}
	server := api.NewServer(&api.Options{
		AuthUsername:      opts.AuthUsername,
		AuthPassword:      opts.AuthPassword,
		Store:             st,
		Manager:           manager,
		EventBus:          bus,
		Registry:          registry,
		PrometheusHandler: exporters.HTTPHandler(),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(opts.Port) }()

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Debug("systemd notification failed", "error", err)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// startNats starts the optional embedded server, the event publisher and the
// control bridge. The returned function stops them in reverse order.
func startNats(opts *Options, bus *events.Bus, ctrl nats.Controller) (func(), error) {
	logger := logging.GetLogger("nats")
	var stops []func()
	stopAll := func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
	}

	url := opts.NatsURL
	if opts.NatsEmbedded {
		srvOpts := nats.DefaultServerOptions()
		srvOpts.Port = opts.NatsPort
		srvOpts.Logger = logger
		srv := nats.NewServer(srvOpts)
		if err := srv.Start(); err != nil {
			return nil, err
		}
		stops = append(stops, srv.Stop)
		url = srv.ClientURL()
	}
	if url == "" {
		return stopAll, nil
	}

	publisher := nats.NewEventPublisher(url, bus, logger)
	if err := publisher.Start(); err != nil {
		// events are best effort
		logger.Warn("NATS event publishing disabled", "url", url, "error", err)
	} else {
		stops = append(stops, publisher.Stop)
	}

	bridge := nats.NewControlBridge(url, ctrl, logger)
	if err := bridge.Start(); err != nil {
		logger.Warn("NATS control disabled", "url", url, "error", err)
	} else {
		stops = append(stops, bridge.Stop)
	}
	return stopAll, nil
}

// jobControl starts and stops stored jobs for the NATS control bridge.
type jobControl struct {
	store   jobs.Store
	manager *runner.Manager
}

func (c jobControl) StartJob(id string) (string, error) {
	job, ok := c.store.Get(id)
	if !ok {
		return "", jobs.NewJobError(jobs.ErrCodeJobNotFound, "job "+id+" not found", nil)
	}
	status, err := c.manager.Start(job)
	if err != nil {
		return "", err
	}
	return string(status.State), nil
}

func (c jobControl) StopJob(id string) (string, error) {
	status, err := c.manager.Stop(id)
	if err != nil {
		return "", err
	}
	return string(status.State), nil
}
