// Package sink provides consumers for frames drained from graph outputs.
package sink

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/smazurov/framegraph/internal/frame"
)

// Sink consumes frames drained from one graph output. It takes ownership of f.
type Sink interface {
	Consume(f *frame.Frame) error
}

// Func adapts a plain function to Sink.
type Func func(f *frame.Frame) error

// Consume calls fn.
func (fn Func) Consume(f *frame.Frame) error {
	return fn(f)
}

// RawFile writes the visible bytes of every plane, one frame after another,
// the layout ffplay reads with -f rawvideo or -f s16le.
type RawFile struct {
	path   string
	file   *os.File
	w      *bufio.Writer
	frames int
	bytes  int64
}

// NewRawFile opens path for writing. With appendMode the file is extended,
// otherwise it is truncated.
func NewRawFile(path string, appendMode bool) (*RawFile, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output %s: %w", path, err)
	}
	return &RawFile{path: path, file: file, w: bufio.NewWriter(file)}, nil
}

// Consume appends f's planes, cropped to their visible width.
func (r *RawFile) Consume(f *frame.Frame) error {
	if r.file == nil {
		return fmt.Errorf("output %s is closed", r.path)
	}
	for i := range f.Planes {
		w, h := f.PlaneSize(i)
		for y := 0; y < h; y++ {
			off := y * f.Linesize[i]
			n, err := r.w.Write(f.Planes[i][off : off+w])
			r.bytes += int64(n)
			if err != nil {
				return fmt.Errorf("failed to write %s: %w", r.path, err)
			}
		}
	}
	r.frames++
	return nil
}

// Path returns the output file path.
func (r *RawFile) Path() string { return r.path }

// Frames returns the number of frames written.
func (r *RawFile) Frames() int { return r.frames }

// Bytes returns the number of bytes written.
func (r *RawFile) Bytes() int64 { return r.bytes }

// Close flushes buffered data and closes the file. Safe to call twice.
func (r *RawFile) Close() error {
	if r.file == nil {
		return nil
	}
	flushErr := r.w.Flush()
	closeErr := r.file.Close()
	r.file = nil
	if flushErr != nil {
		return fmt.Errorf("failed to flush %s: %w", r.path, flushErr)
	}
	return closeErr
}

// Memory keeps every consumed frame.
type Memory struct {
	mu     sync.Mutex
	frames []*frame.Frame
}

// Consume stores f.
func (m *Memory) Consume(f *frame.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, f)
	return nil
}

// Frames returns the consumed frames in order.
func (m *Memory) Frames() []*frame.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*frame.Frame, len(m.frames))
	copy(out, m.frames)
	return out
}

// Len returns how many frames were consumed.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

// Discard counts and drops frames.
type Discard struct {
	Count int
}

// Consume drops f.
func (d *Discard) Consume(*frame.Frame) error {
	d.Count++
	return nil
}
