package graph

import (
	"errors"
	"fmt"
)

// ErrorCode classifies graph and pump failures.
type ErrorCode string

// ErrorCode constants.
const (
	CodeGraphParse           ErrorCode = "GRAPH_PARSE"
	CodeUnsupportedMediaType ErrorCode = "UNSUPPORTED_MEDIA_TYPE"
	CodeEndpointBind         ErrorCode = "ENDPOINT_BIND"
	CodeTopologyValidation   ErrorCode = "TOPOLOGY_VALIDATION"
	CodeInvalidState         ErrorCode = "INVALID_STATE"
	CodeFeed                 ErrorCode = "FEED"
	CodeDrain                ErrorCode = "DRAIN"
	CodeSink                 ErrorCode = "SINK"
)

// Error is the error type returned by graph operations and endpoint I/O.
type Error struct {
	Code     ErrorCode
	Op       string
	Endpoint string
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Op)
	if e.Endpoint != "" {
		msg += " " + e.Endpoint
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HasCode checks if the error matches a specific code.
func (e *Error) HasCode(code ErrorCode) bool {
	return e.Code == code
}

// IsCode reports whether err is a graph *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Code == code
}

func newError(code ErrorCode, op, endpoint string, cause error, format string, args ...any) *Error {
	return &Error{
		Code:     code,
		Op:       op,
		Endpoint: endpoint,
		Message:  fmt.Sprintf(format, args...),
		Cause:    cause,
	}
}
