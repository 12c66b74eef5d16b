// Package cmd holds the framegraph command line: the shared options and the
// sub-commands attached to the root command.
package cmd

import (
	"strings"
	"time"

	"github.com/smazurov/framegraph/internal/jobs"
	"github.com/smazurov/framegraph/internal/logging"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"framegraph.toml"`

	// Graph settings
	Graph                 string `help:"Filter graph description (default: overlay of in1 onto in2)" short:"g" toml:"graph.description" env:"GRAPH"`
	BindOrder             string `help:"Endpoint bind order (outputs-first, inputs-first)" default:"outputs-first" toml:"graph.bind_order" env:"GRAPH_BIND_ORDER"`
	BackpressureThreshold int    `help:"Pending requests that trigger an input probe" default:"1" toml:"graph.backpressure_threshold" env:"GRAPH_BACKPRESSURE_THRESHOLD"`
	OutputPixelFormats    string `help:"Comma separated pixel formats outputs may deliver" toml:"graph.output_pixel_formats" env:"GRAPH_OUTPUT_PIXEL_FORMATS"`

	// Source settings
	Frames      int    `help:"Frames produced per input" short:"n" default:"100" toml:"source.frames" env:"SOURCE_FRAMES"`
	MaxFrames   int    `help:"Stop after this many pump cycles (0 runs to end of stream)" default:"0" toml:"source.max_frames" env:"SOURCE_MAX_FRAMES"`
	Width       int    `help:"Test pattern width" default:"1280" toml:"source.width" env:"SOURCE_WIDTH"`
	Height      int    `help:"Test pattern height" default:"720" toml:"source.height" env:"SOURCE_HEIGHT"`
	PixelFormat string `help:"Test pattern pixel format (yuv420p, gray)" default:"yuv420p" toml:"source.pixel_format" env:"SOURCE_PIXEL_FORMAT"`
	SampleRate  int    `help:"Tone sample rate" default:"48000" toml:"source.sample_rate" env:"SOURCE_SAMPLE_RATE"`
	Channels    int    `help:"Tone channel count" default:"2" toml:"source.channels" env:"SOURCE_CHANNELS"`
	Frequency   int    `help:"Tone frequency in Hz" default:"440" toml:"source.frequency" env:"SOURCE_FREQUENCY"`

	// Output settings
	Output string `help:"Raw output file; %s is replaced by the output pad name" short:"o" default:"out.yuv" toml:"output.path" env:"OUTPUT_PATH"`
	Encode string `help:"Also encode every output with ffmpeg into this container (mp4, mkv)" toml:"output.encode" env:"OUTPUT_ENCODE"`

	// Jobs settings
	JobsFile string `help:"Job definitions file" default:"jobs.toml" toml:"jobs.config_file" env:"JOBS_CONFIG_FILE"`

	// Server settings
	Port string `help:"Address the control API listens on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Auth settings
	AuthUsername string `help:"Basic auth username (empty disables auth)" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// NATS settings
	NatsEmbedded bool   `help:"Run an embedded NATS server for events and control" toml:"nats.embedded" env:"NATS_EMBEDDED"`
	NatsPort     int    `help:"Embedded NATS server port" default:"4222" toml:"nats.port" env:"NATS_PORT"`
	NatsURL      string `help:"External NATS server for events and control (ignored when embedded)" toml:"nats.url" env:"NATS_URL"`

	// Observability settings
	MetricsAddr      string `help:"Serve Prometheus /metrics on this address" toml:"metrics.addr" env:"METRICS_ADDR"`
	ProgressInterval string `help:"Log pump progress at this interval (0 disables)" default:"0s" toml:"metrics.progress_interval" env:"METRICS_PROGRESS_INTERVAL"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingGraph    string `help:"Graph logging level" default:"info" toml:"logging.graph" env:"LOGGING_GRAPH"`
	LoggingPump     string `help:"Pump logging level" default:"info" toml:"logging.pump" env:"LOGGING_PUMP"`
	LoggingCompiler string `help:"Compiler logging level" default:"info" toml:"logging.compiler" env:"LOGGING_COMPILER"`
	LoggingRunner   string `help:"Runner logging level" default:"info" toml:"logging.runner" env:"LOGGING_RUNNER"`
	LoggingConfig   string `help:"Config logging level" default:"info" toml:"logging.config" env:"LOGGING_CONFIG"`
	LoggingAPI      string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP     string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingFFmpeg   string `help:"FFmpeg output logging level" default:"info" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingNats     string `help:"NATS logging level" default:"info" toml:"logging.nats" env:"LOGGING_NATS"`
}

// Logging returns the logging settings.
func (o *Options) Logging() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"graph":    o.LoggingGraph,
			"pump":     o.LoggingPump,
			"compiler": o.LoggingCompiler,
			"runner":   o.LoggingRunner,
			"config":   o.LoggingConfig,
			"api":      o.LoggingAPI,
			"http":     o.LoggingHTTP,
			"ffmpeg":   o.LoggingFFmpeg,
			"nats":     o.LoggingNats,
		},
	}
}

// Job builds the ad-hoc job described by the command line flags.
func (o *Options) Job() jobs.JobSpec {
	job := jobs.JobSpec{
		ID:        "cli",
		Graph:     o.Graph,
		Frames:    o.Frames,
		MaxFrames: o.MaxFrames,
		Video: jobs.VideoSource{
			Width:       o.Width,
			Height:      o.Height,
			PixelFormat: o.PixelFormat,
		},
		Audio: jobs.AudioSource{
			SampleRate: o.SampleRate,
			Channels:   o.Channels,
			Frequency:  float64(o.Frequency),
		},
		Output:                o.Output,
		Encode:                o.Encode,
		BindOrder:             o.BindOrder,
		BackpressureThreshold: o.BackpressureThreshold,
	}
	for _, name := range strings.Split(o.OutputPixelFormats, ",") {
		if name = strings.TrimSpace(name); name != "" {
			job.PixelFormats = append(job.PixelFormats, name)
		}
	}
	return job.WithDefaults()
}

// progressInterval parses ProgressInterval; invalid values disable progress.
func (o *Options) progressInterval() time.Duration {
	d, err := time.ParseDuration(o.ProgressInterval)
	if err != nil || d < 0 {
		return 0
	}
	return d
}
