// Package errors defines the sentinel errors shared across the pipeline and
// maps them onto CLI exit codes.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrMalformedFile      = errors.New("malformed file")
	ErrDimensionMismatch  = errors.New("dimension mismatch")
	ErrWriteFailed        = errors.New("write failed")
	ErrArchiveUnavailable = errors.New("archive unavailable")
	ErrNotFound           = errors.New("not found")
	ErrTimeout            = errors.New("operation timed out")
)

// Exit codes returned by the CLI.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitInput       = 3
	ExitOutput      = 4
	ExitUnavailable = 5
)

// AppError classifies a failure under one of the sentinels above. Message
// says what was being done; Cause, when set, is the underlying error and
// stays reachable through errors.Is and errors.As. StatusCode carries the
// HTTP status of a failed upstream call, or 0.
type AppError struct {
	Err        error
	Message    string
	Cause      error
	StatusCode int
}

func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{Err: sentinel, Message: message, StatusCode: statusCode}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return New(sentinel, statusCode, fmt.Sprintf(format, args...))
}

// Wrap classifies cause under sentinel.
func Wrap(sentinel, cause error, format string, args ...any) *AppError {
	return &AppError{Err: sentinel, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// StatusOf returns the upstream HTTP status recorded anywhere in err's
// chain, or 0.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 0
}

// ExitCode picks the process exit code for err.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrMalformedFile),
		errors.Is(err, ErrDimensionMismatch), errors.Is(err, ErrNotFound):
		return ExitInput
	case errors.Is(err, ErrWriteFailed):
		return ExitOutput
	case errors.Is(err, ErrArchiveUnavailable), errors.Is(err, ErrTimeout):
		return ExitUnavailable
	default:
		return ExitFailure
	}
}
