// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// Records are routed automatically:
//   - to stderr when a terminal, pipe, or file is attached
//   - to the systemd journal when journald is reachable
//   - to both when both are available
//
// Stdout is left to the command output (reports and playback hints).
//
// # Usage
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"pump":     "debug",
//			"compiler": "warn",
//		},
//	})
//
// Then fetch a logger per module and attach context with With:
//
//	logger := logging.GetLogger("pump").With("graph_id", id)
//	logger.Info("Pump started", "inputs", 2)
//
// Loggers fetched before Initialize are cached and pick up the configured
// levels once it runs. SetModuleLevel adjusts a single module at runtime.
//
// # Viewing Logs
//
//	journalctl -t framegraph -f
//	journalctl -t framegraph MODULE=pump GRAPH_ID=...
//
// # Configuration
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	pump = "debug"
//	compiler = "warn"
package logging
