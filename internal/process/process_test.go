package process

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestProcess creates a Process with short timeouts for testing.
func newTestProcess(command string) *Process {
	p := NewProcess("test", command, testLogger())
	p.gracefulTimeout = 100 * time.Millisecond
	p.killTimeout = 100 * time.Millisecond
	return p
}

type result struct {
	code int
	err  error
}

// runAsync runs the process in a goroutine and returns the result channel.
func runAsync(ctx context.Context, p *Process) <-chan result {
	done := make(chan result, 1)
	go func() {
		code, err := p.Run(ctx)
		done <- result{code, err}
	}()
	return done
}

// waitForExit waits for the result with timeout, fails test on timeout.
func waitForExit(t *testing.T, done <-chan result, timeout time.Duration) result {
	t.Helper()
	select {
	case res := <-done:
		return res
	case <-time.After(timeout):
		t.Fatal("timeout waiting for process to exit")
		return result{}
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		command string
		want    int
	}{
		{"true", 0},
		{"false", 1},
		{`sh -c "exit 3"`, 3},
	}
	for _, tt := range tests {
		code, err := newTestProcess(tt.command).Run(context.Background())
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.command, err)
		}
		if code != tt.want {
			t.Errorf("%s: expected exit code %d, got %d", tt.command, tt.want, code)
		}
	}
}

func TestGracefulShutdown(t *testing.T) {
	p := newTestProcess(`sh -c "trap 'exit 0' INT TERM; while :; do sleep 0.1; done"`)
	p.gracefulTimeout = 500 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, p)
	time.Sleep(100 * time.Millisecond)
	cancel()

	if res := waitForExit(t, done, time.Second); res.code != 0 {
		t.Errorf("expected exit code 0, got %d", res.code)
	}
}

func TestForceKillOnTimeout(t *testing.T) {
	p := newTestProcess(`sh -c "trap '' INT; sleep 10"`)
	p.gracefulTimeout = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, p)
	time.Sleep(50 * time.Millisecond)
	cancel()

	if res := waitForExit(t, done, time.Second); res.code != ExitKilled {
		t.Errorf("expected exit code %d, got %d", ExitKilled, res.code)
	}
}

func TestStartErrors(t *testing.T) {
	tests := []string{"", "   ", "/nonexistent/binary", `echo "unclosed`}
	for _, command := range tests {
		code, err := newTestProcess(command).Run(context.Background())
		if err == nil || code != 1 {
			t.Errorf("%q: expected start error, got code %d err %v", command, code, err)
		}
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{`echo hello\ world`, []string{"echo", "hello world"}},
		{`ffplay -f rawvideo 'my file.yuv'`, []string{"ffplay", "-f", "rawvideo", "my file.yuv"}},
		{`cat 'it'\''s.yuv'`, []string{"cat", "it's.yuv"}},
		{`sh -c "echo 'a b'"`, []string{"sh", "-c", "echo 'a b'"}},
		{`printf ''`, []string{"printf", ""}},
		{"a\t b", []string{"a", "b"}},
	}
	for _, tt := range tests {
		got, err := parseCommand(tt.in)
		if err != nil {
			t.Errorf("%q: unexpected error %v", tt.in, err)
			continue
		}
		if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
			t.Errorf("%q: got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLogParserLevels(t *testing.T) {
	var buf bytes.Buffer
	out := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p := newTestProcess(`sh -c "echo 'E boom'; echo 'plain'"`)
	p.SetLogParser(out, func(line string) (slog.Level, string) {
		if strings.HasPrefix(line, "E ") {
			return slog.LevelError, line[2:]
		}
		return slog.LevelInfo, line
	})
	if code, err := p.Run(context.Background()); err != nil || code != 0 {
		t.Fatalf("unexpected result %d %v", code, err)
	}

	logs := buf.String()
	if !strings.Contains(logs, "level=ERROR msg=boom") {
		t.Errorf("expected parsed error line, got:\n%s", logs)
	}
	if !strings.Contains(logs, "level=INFO msg=plain") {
		t.Errorf("expected plain info line, got:\n%s", logs)
	}
}

type testOutputHandler struct {
	mu    sync.Mutex
	lines []string
}

func (h *testOutputHandler) HandleLine(_, line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = append(h.lines, line)
}

func TestOutputHandler(t *testing.T) {
	h := &testOutputHandler{}
	p := newTestProcess(`sh -c "echo line1; echo line2 >&2"`)
	p.SetOutputHandler(h)

	if code, _ := p.Run(context.Background()); code != 0 {
		t.Errorf("expected exit code 0, got %d", code)
	}
	if len(h.lines) != 2 {
		t.Errorf("expected 2 lines, got %v", h.lines)
	}
}
