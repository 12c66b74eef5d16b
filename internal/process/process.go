package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// ExitKilled is returned when the process had to be force-killed.
const ExitKilled = 137

// LogParser maps an output line to a log level and message.
type LogParser func(line string) (slog.Level, string)

// OutputHandler receives every output line of the subprocess.
type OutputHandler interface {
	HandleLine(source, line string)
}

// Process runs one subprocess.
type Process struct {
	id      string
	command string
	logger  *slog.Logger

	outputLogger *slog.Logger // nil logs output through logger
	logParser    LogParser
	output       OutputHandler

	gracefulTimeout time.Duration
	killTimeout     time.Duration

	cmd *exec.Cmd
}

// NewProcess creates a process for command. Nothing runs until Run.
func NewProcess(id, command string, logger *slog.Logger) *Process {
	return &Process{
		id:              id,
		command:         command,
		logger:          logger.With("process", id),
		gracefulTimeout: 5 * time.Second,
		killTimeout:     5 * time.Second,
	}
}

// Command returns the command line.
func (p *Process) Command() string { return p.command }

// SetLogParser logs subprocess output through logger at the level parser
// extracts from each line.
func (p *Process) SetLogParser(logger *slog.Logger, parser LogParser) {
	p.outputLogger = logger
	p.logParser = parser
}

// SetOutputHandler registers a handler for raw output lines.
func (p *Process) SetOutputHandler(h OutputHandler) {
	p.output = h
}

// SetGracefulTimeout sets how long Run waits after SIGINT before SIGKILL.
func (p *Process) SetGracefulTimeout(d time.Duration) {
	p.gracefulTimeout = d
}

// Run starts the subprocess and blocks until it exits. Canceling ctx stops
// it. The returned error is non-nil only when the process could not start.
func (p *Process) Run(ctx context.Context) (int, error) {
	args, err := parseCommand(p.command)
	if err != nil {
		return 1, err
	}
	if len(args) == 0 {
		return 1, fmt.Errorf("empty command")
	}

	p.cmd = exec.Command(args[0], args[1:]...)
	p.cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return 1, err
	}
	stderr, err := p.cmd.StderrPipe()
	if err != nil {
		return 1, err
	}
	if err := p.cmd.Start(); err != nil {
		return 1, fmt.Errorf("start %s: %w", args[0], err)
	}
	p.logger.Info("Process started", "pid", p.cmd.Process.Pid, "command", p.command)

	var outputs sync.WaitGroup
	outputs.Add(2)
	go p.streamOutput(&outputs, stdout, "stdout")
	go p.streamOutput(&outputs, stderr, "stderr")

	processDone := make(chan error, 1)
	go func() {
		// Wait closes the pipes, so output must be read to the end first.
		outputs.Wait()
		processDone <- p.cmd.Wait()
	}()

	select {
	case err := <-processDone:
		code := exitCode(err)
		p.logger.Info("Process exited", "exit_code", code)
		return code, nil
	case <-ctx.Done():
		p.logger.Info("Context canceled, stopping process")
		p.sendStopSignal()
		return p.waitForExit(processDone), nil
	}
}

func (p *Process) sendStopSignal() {
	if p.cmd == nil || p.cmd.Process == nil {
		return
	}
	if err := p.cmd.Process.Signal(syscall.SIGINT); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Warn("Failed to send SIGINT", "error", err)
	}
}

func (p *Process) waitForExit(processDone <-chan error) int {
	select {
	case err := <-processDone:
		return exitCode(err)
	case <-time.After(p.gracefulTimeout):
	}

	p.logger.Warn("Graceful shutdown timeout, forcing kill", "timeout", p.gracefulTimeout)
	// the whole group, so children holding the pipes die too
	if err := syscall.Kill(-p.cmd.Process.Pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		p.logger.Error("Failed to kill process", "error", err)
	}
	select {
	case <-processDone:
	case <-time.After(p.killTimeout):
		p.logger.Error("Process did not exit after kill signal")
	}
	return ExitKilled
}

func (p *Process) streamOutput(wg *sync.WaitGroup, r io.Reader, source string) {
	defer wg.Done()

	logger := p.outputLogger
	if logger == nil {
		logger = p.logger
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if p.output != nil {
			p.output.HandleLine(source, line)
		}
		level, msg := slog.LevelInfo, line
		if p.logParser != nil {
			level, msg = p.logParser(line)
		}
		logger.Log(context.Background(), level, msg, "source", source)
	}
	if err := scanner.Err(); err != nil {
		p.logger.Warn("Error reading output", "source", source, "error", err)
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

// parseCommand splits command into arguments. Single and double quotes group
// words and a backslash escapes the next character.
func parseCommand(command string) ([]string, error) {
	var args []string
	var current strings.Builder
	var quote rune
	inWord := false

	runes := []rune(strings.TrimSpace(command))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && (r == '"' || r == '\''):
			quote = r
			inWord = true
		case quote == 0 && (r == ' ' || r == '\t'):
			if inWord {
				args = append(args, current.String())
				current.Reset()
				inWord = false
			}
		case r == '\\' && quote != '\'' && i+1 < len(runes):
			i++
			current.WriteRune(runes[i])
			inWord = true
		default:
			current.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unclosed quote in command")
	}
	if inWord {
		args = append(args, current.String())
	}
	return args, nil
}
