package jobs

import (
	"errors"
	"fmt"
)

// JobError represents a job definition or storage failure.
type JobError struct {
	Code    string
	Message string
	Cause   error
}

func (e *JobError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *JobError) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	ErrCodeJobNotFound = "JOB_NOT_FOUND"
	ErrCodeJobExists   = "JOB_EXISTS"
	ErrCodeInvalidJob  = "INVALID_JOB"
	ErrCodeConfigError = "CONFIG_ERROR"
	ErrCodeJobRunning  = "JOB_RUNNING"
	ErrCodeNotRunning  = "JOB_NOT_RUNNING"
	ErrCodeStopped     = "RUNNER_STOPPED"
)

// NewJobError creates a new job error.
func NewJobError(code, message string, cause error) *JobError {
	return &JobError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// HasCode reports whether err is a JobError with the given code.
func HasCode(err error, code string) bool {
	var je *JobError
	return errors.As(err, &je) && je.Code == code
}
