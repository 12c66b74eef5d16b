package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// RandomPort asks the embedded server to pick a free port.
const RandomPort = server.RANDOM_PORT

const (
	defaultHost = "127.0.0.1"
	defaultPort = 4222
	defaultName = "framegraph"
	// Event payloads are small JSON documents.
	maxPayload   = 64 * 1024
	readyTimeout = 5 * time.Second
)

// ServerOptions configures the embedded NATS server.
type ServerOptions struct {
	// Port 0 selects 4222; RandomPort picks a free one.
	Port   int
	Host   string
	Name   string
	Logger *slog.Logger
}

// DefaultServerOptions listens on the loopback interface only.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{Port: defaultPort, Host: defaultHost, Name: defaultName}
}

// Server is an in-process NATS server for single-host deployments, so
// clients can follow graph events without an external broker.
type Server struct {
	opts   ServerOptions
	logger *slog.Logger

	mu sync.Mutex
	ns *server.Server
}

// NewServer creates an embedded server; nothing listens until Start.
func NewServer(opts ServerOptions) *Server {
	def := DefaultServerOptions()
	if opts.Port == 0 {
		opts.Port = def.Port
	}
	if opts.Host == "" {
		opts.Host = def.Host
	}
	if opts.Name == "" {
		opts.Name = def.Name
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{opts: opts, logger: logger.With("component", "nats-server")}
}

// Start listens and blocks until the server accepts connections.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ns != nil {
		return errors.New("nats server already started")
	}

	ns, err := server.NewServer(&server.Options{
		Host:       s.opts.Host,
		Port:       s.opts.Port,
		ServerName: s.opts.Name,
		NoSigs:     true,
		MaxPayload: maxPayload,
	})
	if err != nil {
		return fmt.Errorf("create nats server: %w", err)
	}
	ns.SetLoggerV2(serverLog{s.logger}, s.logger.Enabled(context.Background(), slog.LevelDebug), false, false)

	go ns.Start()
	if !ns.ReadyForConnections(readyTimeout) {
		ns.Shutdown()
		return fmt.Errorf("nats server not ready after %s", readyTimeout)
	}
	s.ns = ns
	s.logger.Info("NATS server started", "url", ns.ClientURL())
	return nil
}

// Stop shuts the server down and waits for client connections to close.
func (s *Server) Stop() {
	s.mu.Lock()
	ns := s.ns
	s.ns = nil
	s.mu.Unlock()
	if ns == nil {
		return
	}
	s.logger.Info("Stopping NATS server")
	ns.Shutdown()
	ns.WaitForShutdown()
}

// ClientURL is the URL clients connect to. Before Start it reflects the
// configured address.
func (s *Server) ClientURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ns != nil {
		return s.ns.ClientURL()
	}
	return "nats://" + net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
}

// IsRunning reports whether the server accepts connections.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ns != nil && s.ns.Running()
}

// serverLog routes the embedded server's log lines into slog.
type serverLog struct{ logger *slog.Logger }

func (l serverLog) Noticef(format string, v ...any) { l.logger.Debug(fmt.Sprintf(format, v...)) }
func (l serverLog) Warnf(format string, v ...any)   { l.logger.Warn(fmt.Sprintf(format, v...)) }
func (l serverLog) Errorf(format string, v ...any)  { l.logger.Error(fmt.Sprintf(format, v...)) }
func (l serverLog) Fatalf(format string, v ...any)  { l.logger.Error(fmt.Sprintf(format, v...)) }
func (l serverLog) Debugf(format string, v ...any)  { l.logger.Debug(fmt.Sprintf(format, v...)) }
func (l serverLog) Tracef(format string, v ...any)  { l.logger.Debug(fmt.Sprintf(format, v...)) }
