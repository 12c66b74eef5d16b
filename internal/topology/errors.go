package topology

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigured is returned when mutating a frozen topology.
	ErrConfigured = errors.New("topology is already configured")
	// ErrNotConfigured is returned when frames are pushed before Configure.
	ErrNotConfigured = errors.New("topology is not configured")
	// ErrPadClosed is returned when emitting on a pad that already signaled end of stream.
	ErrPadClosed = errors.New("pad already reached end of stream")
)

// ValidationError reports a structural problem: dangling pads, cycles,
// type mismatches or failed format negotiation.
type ValidationError struct {
	Node    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Node == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Node, e.Message)
}

// NodeError wraps a failure raised by a filter while processing data.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("filter %s: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

func validationf(node, format string, args ...any) error {
	return &ValidationError{Node: node, Message: fmt.Sprintf(format, args...)}
}
