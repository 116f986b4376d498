package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")

	// ErrExternal indicates an upstream service returned a failure
	ErrExternal = errors.New("external service error")

	// ErrNotImplemented indicates the operation is not implemented
	ErrNotImplemented = errors.New("not implemented")
)

// Analysis-specific errors

var (
	// ErrNoData indicates the data source has no rows for the requested ticker
	ErrNoData = errors.New("no data for ticker")

	// ErrTickerNotFound indicates the ticker is not in the S&P 500 reference table
	ErrTickerNotFound = errors.New("ticker not recognized")

	// ErrTaskNotFound indicates the analysis task id is unknown or already swept
	ErrTaskNotFound = errors.New("analysis task not found")

	// ErrTaskTerminal indicates the task already reached a terminal state
	ErrTaskTerminal = errors.New("analysis task already terminal")

	// ErrRateLimited indicates a sender exceeded the per-window message budget
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrMessageTooLong indicates a chat message exceeded the configured maximum
	ErrMessageTooLong = errors.New("message too long")
)

// StageError wraps an error with the analysis stage it originated from
type StageError struct {
	Stage string
	Err   error
}

// Error implements the error interface
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

// Unwrap returns the wrapped error
func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError creates a new stage error
func NewStageError(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
